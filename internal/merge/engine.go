// Package merge folds an anonymous cart into an account cart at login.
package merge

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/identity"
	pkgdb "github.com/angelmondragon/storefront-backend/pkg/db"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	OutcomeMerged  = "merged"
	OutcomeNoCart  = "no_cart"
	OutcomeRetired = "retired"
	OutcomeFailed  = "failed"
)

// Result describes what a merge did.
type Result struct {
	AccountCartID uuid.UUID
	// Merged is false when the token owned no cart.
	Merged      bool
	LinesMerged int
}

// Engine runs login merges.
type Engine struct {
	tx      pkgdb.TxRunner
	carts   *identity.Repository
	lines   cart.LineRepository
	metrics *metrics.EngineMetrics
	logg    *logger.Logger
}

func NewEngine(tx pkgdb.TxRunner, carts *identity.Repository, lines cart.LineRepository, m *metrics.EngineMetrics, logg *logger.Logger) (*Engine, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if lines == nil {
		return nil, fmt.Errorf("cart line repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Engine{tx: tx, carts: carts, lines: lines, metrics: m, logg: logg}, nil
}

// MergeOnLogin moves every line of the token's cart into the account cart,
// summing quantities for products present in both, deletes the anonymous
// cart and retires the token. Stock is not re-checked. The whole merge is
// one transaction.
func (e *Engine) MergeOnLogin(ctx context.Context, anonymousToken string, accountID uuid.UUID) (*Result, error) {
	token := strings.TrimSpace(anonymousToken)
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidIdentity, "anonymous token required")
	}
	if accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidIdentity, "account id required")
	}

	ctx = e.logg.WithAccountID(ctx, accountID.String())

	var result Result
	err := e.tx.WithTx(ctx, func(tx *gorm.DB) error {
		carts := e.carts.WithTx(tx)
		lines := e.lines.WithTx(tx)

		retired, err := carts.IsRetired(ctx, token)
		if err != nil {
			return err
		}
		if retired {
			return pkgerrors.New(pkgerrors.CodeInvalidIdentity, "anonymous cart token has been retired")
		}

		anon, err := carts.FindByOwner(ctx, identity.AnonymousOwner(token))
		if err != nil {
			return err
		}
		if anon == nil {
			return carts.Retire(ctx, token, accountID, nil)
		}

		target, _, err := carts.Ensure(ctx, identity.AccountOwner(accountID))
		if err != nil {
			return err
		}

		// Raw rows: every line that DeleteLines removes below must be moved.
		incoming, err := lines.ListLines(ctx, anon.ID)
		if err != nil {
			return err
		}
		for _, line := range incoming {
			if err := lines.AddToLine(ctx, target.ID, line.ProductID, line.Quantity); err != nil {
				return err
			}
		}

		if err := lines.DeleteLines(ctx, anon.ID); err != nil {
			return err
		}
		if err := carts.Delete(ctx, anon.ID); err != nil {
			return err
		}
		if err := carts.Retire(ctx, token, accountID, &target.ID); err != nil {
			return err
		}

		result = Result{AccountCartID: target.ID, Merged: true, LinesMerged: len(incoming)}
		return nil
	})
	if err != nil {
		outcome := OutcomeFailed
		if pkgerrors.IsCode(err, pkgerrors.CodeInvalidIdentity) {
			outcome = OutcomeRetired
		}
		e.metrics.ObserveMerge(outcome, 0)
		e.logg.Warn(e.logg.WithField(ctx, "error", err.Error()), "cart merge rejected")
		return nil, err
	}

	outcome := OutcomeNoCart
	if result.Merged {
		outcome = OutcomeMerged
	}
	e.metrics.ObserveMerge(outcome, result.LinesMerged)

	logCtx := e.logg.WithFields(ctx, map[string]any{
		"outcome":      outcome,
		"lines_merged": result.LinesMerged,
	})
	if result.Merged {
		logCtx = e.logg.WithCartID(logCtx, result.AccountCartID.String())
	}
	e.logg.Info(logCtx, "cart merge completed")
	return &result, nil
}
