package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Order is written once at checkout and never updated.
type Order struct {
	ID         uuid.UUID   `gorm:"column:id;type:uuid;primaryKey"`
	AccountID  uuid.UUID   `gorm:"column:account_id;type:uuid;not null;index:idx_orders_account_created,priority:1"`
	TotalCents int64       `gorm:"column:total_cents;not null"`
	Lines      []OrderLine `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt  time.Time   `gorm:"column:created_at;not null;index:idx_orders_account_created,priority:2"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	assignID(&o.ID)
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	return nil
}
