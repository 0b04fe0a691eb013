package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Cart belongs to exactly one owner: an account or an anonymous token.
type Cart struct {
	ID             uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	OwnerAccountID *uuid.UUID `gorm:"column:owner_account_id;type:uuid;uniqueIndex"`
	OwnerAnonToken *string    `gorm:"column:owner_anon_token;type:text;uniqueIndex"`
	Lines          []CartLine `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Cart) BeforeCreate(*gorm.DB) error {
	assignID(&c.ID)
	return nil
}
