package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// LineRepository defines the persistence surface required by the cart service.
type LineRepository interface {
	WithTx(tx *gorm.DB) LineRepository
	CartExists(ctx context.Context, cartID uuid.UUID) (bool, error)
	ReplaceLine(ctx context.Context, cartID, productID uuid.UUID, qty int) error
	AddToLine(ctx context.Context, cartID, productID uuid.UUID, qty int) error
	DeleteLine(ctx context.Context, cartID, productID uuid.UUID) error
	DeleteLines(ctx context.Context, cartID uuid.UUID) error
	ListLines(ctx context.Context, cartID uuid.UUID) ([]models.CartLine, error)
	ListPriced(ctx context.Context, cartID uuid.UUID) ([]PricedLine, error)
}
