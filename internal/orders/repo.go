package orders

import (
	"context"
	"errors"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository persists orders and reads order history.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// Create inserts the order header and its lines.
func (r *Repository) Create(ctx context.Context, order *models.Order, lines []models.OrderLine) error {
	db := r.db.WithContext(ctx)
	if err := db.Omit("Lines").Create(order).Error; err != nil {
		return err
	}
	if len(lines) == 0 {
		return nil
	}
	for i := range lines {
		lines[i].OrderID = order.ID
	}
	return db.Create(&lines).Error
}

// ListByAccount returns the account's orders newest first with line counts.
func (r *Repository) ListByAccount(ctx context.Context, accountID uuid.UUID, limit int, cursor *pagination.Cursor) ([]summaryRow, error) {
	query := r.db.WithContext(ctx).
		Table("orders AS o").
		Select("o.id AS id, o.total_cents AS total_cents, o.created_at AS created_at, COUNT(ol.product_id) AS item_count").
		Joins("LEFT JOIN order_lines AS ol ON ol.order_id = o.id").
		Where("o.account_id = ?", accountID)

	if cursor != nil {
		query = query.Where("(o.created_at < ?) OR (o.created_at = ? AND o.id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []summaryRow
	err := query.
		Group("o.id, o.total_cents, o.created_at").
		Order("o.created_at DESC").
		Order("o.id DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// FindForAccount returns nil when the order does not exist or belongs to another account.
func (r *Repository) FindForAccount(ctx context.Context, accountID, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("id = ? AND account_id = ?", orderID, accountID).
		Take(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *Repository) ListLines(ctx context.Context, orderID uuid.UUID) ([]lineRow, error) {
	var rows []lineRow
	err := r.db.WithContext(ctx).
		Table("order_lines AS ol").
		Select("ol.product_id AS product_id, p.name AS name, ol.quantity AS quantity, ol.unit_price_cents AS unit_price_cents").
		Joins("JOIN products AS p ON p.id = ol.product_id").
		Where("ol.order_id = ?", orderID).
		Order("p.name ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
