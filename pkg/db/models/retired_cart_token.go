package models

import (
	"time"

	"github.com/google/uuid"
)

// RetiredCartToken records an anonymous token consumed by a login merge.
// MergedIntoCartID is nil when the token never owned a cart.
type RetiredCartToken struct {
	Token            string     `gorm:"column:token;type:text;primaryKey"`
	AccountID        uuid.UUID  `gorm:"column:account_id;type:uuid;not null"`
	MergedIntoCartID *uuid.UUID `gorm:"column:merged_into_cart_id;type:uuid"`
	RetiredAt        time.Time  `gorm:"column:retired_at;not null"`
}
