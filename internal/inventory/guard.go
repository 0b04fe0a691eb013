// Package inventory checks stock sufficiency for cart writes and applies the
// authoritative stock decrement during checkout.
package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/angelmondragon/storefront-backend/internal/catalog"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/google/uuid"
)

// Guard wraps the catalog with stock rules.
type Guard struct {
	products catalog.Reader
}

func NewGuard(products catalog.Reader) (*Guard, error) {
	if products == nil {
		return nil, fmt.Errorf("product reader required")
	}
	return &Guard{products: products}, nil
}

// OutOfStock builds the typed failure for a product that cannot cover qty.
func OutOfStock(productID uuid.UUID, requested int, available *int) *pkgerrors.Error {
	details := map[string]any{
		"product_id": productID.String(),
		"requested":  requested,
	}
	if available != nil {
		details["available"] = *available
	}
	return pkgerrors.New(pkgerrors.CodeOutOfStock, fmt.Sprintf("insufficient stock for product %s", productID)).
		WithDetails(details)
}

// OutOfStockProduct extracts the product id from an OUT_OF_STOCK error.
func OutOfStockProduct(err error) (uuid.UUID, bool) {
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeOutOfStock {
		return uuid.Nil, false
	}
	details, ok := typed.Details().(map[string]any)
	if !ok {
		return uuid.Nil, false
	}
	raw, _ := details["product_id"].(string)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// CheckAvailable is advisory: it reads current stock and rejects qty above it
// without reserving anything.
func (g *Guard) CheckAvailable(ctx context.Context, productID uuid.UUID, qty int) (*catalog.Product, error) {
	product, err := g.products.GetProduct(ctx, productID)
	if errors.Is(err, catalog.ErrProductNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "product not found").
			WithDetails(map[string]any{"product_id": productID.String()})
	}
	if err != nil {
		return nil, err
	}
	if qty > product.Stock {
		available := product.Stock
		return nil, OutOfStock(productID, qty, &available)
	}
	return product, nil
}

// Take decrements stock through dec and reports OUT_OF_STOCK when the guarded
// update matched nothing.
func Take(ctx context.Context, dec catalog.StockDecrementer, productID uuid.UUID, qty int) error {
	err := dec.DecrementStock(ctx, productID, qty)
	if errors.Is(err, catalog.ErrInsufficientStock) {
		return OutOfStock(productID, qty, nil)
	}
	return err
}
