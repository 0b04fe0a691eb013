package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository persists carts keyed by owner. Owners map onto the two nullable
// owner columns only here.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindByOwner returns nil when the owner has no cart.
func (r *Repository) FindByOwner(ctx context.Context, owner Owner) (*models.Cart, error) {
	query, err := ownerScope(r.db.WithContext(ctx), owner)
	if err != nil {
		return nil, err
	}
	var row models.Cart
	err = query.Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// FindByID returns nil when no cart has the id.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Cart, error) {
	var row models.Cart
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// Ensure returns the owner's cart, inserting it when absent. Concurrent
// callers converge on a single row: the insert skips on conflict and the
// winner is re-read.
func (r *Repository) Ensure(ctx context.Context, owner Owner) (*models.Cart, bool, error) {
	existing, err := r.FindByOwner(ctx, owner)
	if err != nil || existing != nil {
		return existing, false, err
	}

	row := models.Cart{}
	switch owner.Kind {
	case KindAccount:
		id := owner.AccountID
		row.OwnerAccountID = &id
	case KindAnonymous:
		token := owner.Token
		row.OwnerAnonToken = &token
	default:
		return nil, false, fmt.Errorf("unknown owner kind %q", owner.Kind)
	}

	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected == 1 {
		return &row, true, nil
	}

	winner, err := r.FindByOwner(ctx, owner)
	if err != nil {
		return nil, false, err
	}
	if winner == nil {
		return nil, false, fmt.Errorf("cart for %s vanished after conflicting insert", owner)
	}
	return winner, false, nil
}

// Delete removes a cart; its lines cascade.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Cart{}).Error
}

// IsRetired reports whether a merge has consumed the token.
func (r *Repository) IsRetired(ctx context.Context, token string) (bool, error) {
	var n int64
	if err := r.db.WithContext(ctx).
		Model(&models.RetiredCartToken{}).
		Where("token = ?", token).
		Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// Retire records the token as consumed. Retiring twice is a no-op.
func (r *Repository) Retire(ctx context.Context, token string, accountID uuid.UUID, mergedInto *uuid.UUID) error {
	row := models.RetiredCartToken{
		Token:            token,
		AccountID:        accountID,
		MergedIntoCartID: mergedInto,
		RetiredAt:        time.Now().UTC(),
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "token"}}, DoNothing: true}).
		Create(&row).Error
}

// OwnerOf maps a cart row back onto its owner variant.
func OwnerOf(row *models.Cart) (Owner, error) {
	switch {
	case row.OwnerAccountID != nil && row.OwnerAnonToken == nil:
		return AccountOwner(*row.OwnerAccountID), nil
	case row.OwnerAccountID == nil && row.OwnerAnonToken != nil:
		return AnonymousOwner(*row.OwnerAnonToken), nil
	}
	return Owner{}, fmt.Errorf("cart %s has no single owner", row.ID)
}

func ownerScope(db *gorm.DB, owner Owner) (*gorm.DB, error) {
	switch owner.Kind {
	case KindAccount:
		return db.Where("owner_account_id = ?", owner.AccountID), nil
	case KindAnonymous:
		return db.Where("owner_anon_token = ?", owner.Token), nil
	}
	return nil, fmt.Errorf("unknown owner kind %q", owner.Kind)
}
