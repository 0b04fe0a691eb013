// Package catalog reads product price and stock and applies the checkout
// stock decrement. Catalog CRUD lives outside this service.
package catalog

import (
	"context"
	"errors"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrInsufficientStock is returned when a decrement would take stock below zero.
var ErrInsufficientStock = errors.New("catalog: insufficient stock")

// ErrProductNotFound is returned when no product exists for an id.
var ErrProductNotFound = errors.New("catalog: product not found")

// Product is the catalog view the cart and checkout need.
type Product struct {
	ID         uuid.UUID
	Name       string
	PriceCents int64
	Stock      int
}

// Reader is satisfied by anything that can load a product.
type Reader interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*Product, error)
}

// StockDecrementer is satisfied by anything that can take stock away.
type StockDecrementer interface {
	DecrementStock(ctx context.Context, id uuid.UUID, amount int) error
}

// Repository implements Reader and StockDecrementer over the products table.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) GetProduct(ctx context.Context, id uuid.UUID) (*Product, error) {
	var row models.Product
	err := r.db.WithContext(ctx).
		Select("id", "name", "price_cents", "stock").
		Where("id = ?", id).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return toProduct(row), nil
}

// DecrementStock subtracts amount only while enough stock remains. The
// guarded update is the authoritative oversell check under concurrency.
func (r *Repository) DecrementStock(ctx context.Context, id uuid.UUID, amount int) error {
	if amount <= 0 {
		return nil
	}
	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND stock >= ?", id, amount).
		UpdateColumns(map[string]any{
			"stock":      gorm.Expr("stock - ?", amount),
			"updated_at": r.db.NowFunc(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInsufficientStock
	}
	return nil
}

// UpsertBySKU inserts the product or refreshes name, price and stock of the
// row already holding its SKU.
func (r *Repository) UpsertBySKU(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "sku"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "price_cents", "stock", "updated_at"}),
		}).
		Create(product).Error
}

func toProduct(row models.Product) *Product {
	return &Product{
		ID:         row.ID,
		Name:       row.Name,
		PriceCents: row.PriceCents,
		Stock:      row.Stock,
	}
}
