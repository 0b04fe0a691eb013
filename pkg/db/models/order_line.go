package models

import "github.com/google/uuid"

// OrderLine snapshots the unit price paid at checkout.
type OrderLine struct {
	OrderID        uuid.UUID `gorm:"column:order_id;type:uuid;primaryKey"`
	ProductID      uuid.UUID `gorm:"column:product_id;type:uuid;primaryKey"`
	Quantity       int       `gorm:"column:quantity;not null"`
	UnitPriceCents int64     `gorm:"column:unit_price_cents;not null"`
}
