package cart

import (
	"context"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PricedLine is a cart line joined with the product's current name, price and stock.
type PricedLine struct {
	ProductID      uuid.UUID
	Name           string
	Quantity       int
	UnitPriceCents int64
	Stock          int
}

// Repository exposes persistence operations for cart lines.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) LineRepository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) CartExists(ctx context.Context, cartID uuid.UUID) (bool, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Cart{}).Where("id = ?", cartID).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// ReplaceLine upserts the line with qty as its new quantity.
func (r *Repository) ReplaceLine(ctx context.Context, cartID, productID uuid.UUID, qty int) error {
	line := newLine(cartID, productID, qty)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   lineKey,
			DoUpdates: clause.AssignmentColumns([]string{"quantity", "updated_at"}),
		}).
		Create(&line).Error
}

// AddToLine upserts the line adding qty to any existing quantity.
func (r *Repository) AddToLine(ctx context.Context, cartID, productID uuid.UUID, qty int) error {
	line := newLine(cartID, productID, qty)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: lineKey,
			DoUpdates: clause.Assignments(map[string]any{
				"quantity":   gorm.Expr("cart_lines.quantity + excluded.quantity"),
				"updated_at": gorm.Expr("excluded.updated_at"),
			}),
		}).
		Create(&line).Error
}

// DeleteLine removes one line; a missing line is not an error.
func (r *Repository) DeleteLine(ctx context.Context, cartID, productID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		Delete(&models.CartLine{}).Error
}

// DeleteLines empties the cart but keeps the cart row.
func (r *Repository) DeleteLines(ctx context.Context, cartID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Delete(&models.CartLine{}).Error
}

// ListLines returns the raw cart_lines rows without touching products.
func (r *Repository) ListLines(ctx context.Context, cartID uuid.UUID) ([]models.CartLine, error) {
	var rows []models.CartLine
	err := r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Order("created_at ASC").
		Order("product_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListPriced returns the cart's lines with live product data, oldest first.
func (r *Repository) ListPriced(ctx context.Context, cartID uuid.UUID) ([]PricedLine, error) {
	var rows []PricedLine
	err := r.db.WithContext(ctx).
		Table("cart_lines AS cl").
		Select("cl.product_id AS product_id, p.name AS name, cl.quantity AS quantity, p.price_cents AS unit_price_cents, p.stock AS stock").
		Joins("JOIN products AS p ON p.id = cl.product_id").
		Where("cl.cart_id = ?", cartID).
		Order("cl.created_at ASC").
		Order("cl.product_id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

var lineKey = []clause.Column{{Name: "cart_id"}, {Name: "product_id"}}

func newLine(cartID, productID uuid.UUID, qty int) models.CartLine {
	now := time.Now().UTC()
	return models.CartLine{
		CartID:    cartID,
		ProductID: productID,
		Quantity:  qty,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
