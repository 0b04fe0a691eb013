// Package checkout converts an account cart into an immutable order.
package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/internal/identity"
	"github.com/angelmondragon/storefront-backend/internal/inventory"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	pkgdb "github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/money"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	OutcomeSuccess    = "success"
	OutcomeEmptyCart  = "empty_cart"
	OutcomeOutOfStock = "out_of_stock"
	OutcomeTransient  = "transient"
	OutcomeFailed     = "failed"
)

// Deps bundles the collaborators of the checkout engine.
type Deps struct {
	Tx       pkgdb.TxRunner
	Carts    *identity.Repository
	Lines    cart.LineRepository
	Products *catalog.Repository
	Orders   *orders.Repository
	Metrics  *metrics.EngineMetrics
	Logger   *logger.Logger
	Now      func() time.Time
}

// Engine runs checkouts.
type Engine struct {
	tx       pkgdb.TxRunner
	carts    *identity.Repository
	lines    cart.LineRepository
	products *catalog.Repository
	orders   *orders.Repository
	metrics  *metrics.EngineMetrics
	logg     *logger.Logger
	now      func() time.Time
}

func NewEngine(deps Deps) (*Engine, error) {
	switch {
	case deps.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case deps.Carts == nil:
		return nil, fmt.Errorf("cart repository required")
	case deps.Lines == nil:
		return nil, fmt.Errorf("cart line repository required")
	case deps.Products == nil:
		return nil, fmt.Errorf("catalog repository required")
	case deps.Orders == nil:
		return nil, fmt.Errorf("orders repository required")
	case deps.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	now := deps.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Engine{
		tx:       deps.Tx,
		carts:    deps.Carts,
		lines:    deps.Lines,
		products: deps.Products,
		orders:   deps.Orders,
		metrics:  deps.Metrics,
		logg:     deps.Logger,
		now:      now,
	}, nil
}

// Checkout places an order for the account cart and returns its id. Stock is
// checked against the lines read inside the transaction and then decremented
// conditionally. On any failure cart, stock and orders are left untouched.
func (e *Engine) Checkout(ctx context.Context, accountID uuid.UUID) (uuid.UUID, error) {
	if accountID == uuid.Nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeInvalidIdentity, "account id required")
	}
	ctx = e.logg.WithAccountID(ctx, accountID.String())
	started := time.Now()

	var (
		orderID uuid.UUID
		cartID  uuid.UUID
		total   int64
		count   int
	)
	err := e.tx.WithTx(ctx, func(tx *gorm.DB) error {
		carts := e.carts.WithTx(tx)
		lines := e.lines.WithTx(tx)
		products := e.products.WithTx(tx)
		orderRepo := e.orders.WithTx(tx)

		row, err := carts.FindByOwner(ctx, identity.AccountOwner(accountID))
		if err != nil {
			return err
		}
		if row == nil {
			return pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
		}
		cartID = row.ID

		priced, err := lines.ListPriced(ctx, row.ID)
		if err != nil {
			return err
		}
		if len(priced) == 0 {
			return pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
		}

		snapshot := make([]models.OrderLine, 0, len(priced))
		var sum int64
		for _, line := range priced {
			if line.Stock < line.Quantity {
				available := line.Stock
				return inventory.OutOfStock(line.ProductID, line.Quantity, &available)
			}
			sum += money.Multiply(line.UnitPriceCents, line.Quantity)
			snapshot = append(snapshot, models.OrderLine{
				ProductID:      line.ProductID,
				Quantity:       line.Quantity,
				UnitPriceCents: line.UnitPriceCents,
			})
		}

		order := models.Order{AccountID: accountID, TotalCents: sum, CreatedAt: e.now()}
		if err := orderRepo.Create(ctx, &order, snapshot); err != nil {
			return err
		}
		for _, line := range snapshot {
			if err := inventory.Take(ctx, products, line.ProductID, line.Quantity); err != nil {
				return err
			}
		}
		if err := lines.DeleteLines(ctx, row.ID); err != nil {
			return err
		}

		orderID = order.ID
		total = sum
		count = len(snapshot)
		return nil
	})

	outcome := outcomeFor(err)
	e.metrics.ObserveCheckout(outcome, time.Since(started))

	logCtx := e.logg.WithField(ctx, "outcome", outcome)
	if cartID != uuid.Nil {
		logCtx = e.logg.WithCartID(logCtx, cartID.String())
	}
	if err != nil {
		fields := map[string]any{"error": err.Error()}
		if productID, ok := inventory.OutOfStockProduct(err); ok {
			fields["product_id"] = productID.String()
		}
		e.logg.Warn(e.logg.WithFields(logCtx, fields), "checkout rejected")
		return uuid.Nil, err
	}

	e.logg.Info(e.logg.WithFields(logCtx, map[string]any{
		"order_id":    orderID.String(),
		"total_cents": total,
		"line_count":  count,
	}), "checkout completed")
	return orderID, nil
}

func outcomeFor(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case pkgerrors.IsCode(err, pkgerrors.CodeEmptyCart):
		return OutcomeEmptyCart
	case pkgerrors.IsCode(err, pkgerrors.CodeOutOfStock):
		return OutcomeOutOfStock
	case pkgerrors.IsCode(err, pkgerrors.CodeTransientStore):
		return OutcomeTransient
	default:
		return OutcomeFailed
	}
}
