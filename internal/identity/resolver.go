package identity

import (
	"context"
	"fmt"

	pkgdb "github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type cartStore interface {
	Ensure(ctx context.Context, owner Owner) (*models.Cart, bool, error)
	IsRetired(ctx context.Context, token string) (bool, error)
}

// TokenSource mints anonymous cart tokens.
type TokenSource func() (string, error)

// Resolver turns an Identity into a cart handle, creating the cart lazily.
type Resolver struct {
	carts  cartStore
	tokens TokenSource
	logg   *logger.Logger
}

func NewResolver(carts cartStore, tokens TokenSource, logg *logger.Logger) (*Resolver, error) {
	if carts == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if tokens == nil {
		tokens = NewAnonymousToken
	}
	return &Resolver{carts: carts, tokens: tokens, logg: logg}, nil
}

// ResolveCart returns the single cart for the identity. Repeated calls for
// the same owner return the same cart id.
func (r *Resolver) ResolveCart(ctx context.Context, id Identity) (CartHandle, error) {
	owner, needsToken, err := id.Owner()
	if err != nil {
		return CartHandle{}, err
	}

	issued := ""
	if needsToken {
		token, err := r.tokens()
		if err != nil {
			return CartHandle{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint anonymous token")
		}
		owner = AnonymousOwner(token)
		issued = token
	} else if owner.Kind == KindAnonymous {
		retired, err := r.carts.IsRetired(ctx, owner.Token)
		if err != nil {
			return CartHandle{}, pkgdb.ClassifyError(err)
		}
		if retired {
			return CartHandle{}, pkgerrors.New(pkgerrors.CodeInvalidIdentity, "anonymous cart token has been retired")
		}
	}

	row, created, err := r.carts.Ensure(ctx, owner)
	if err != nil {
		return CartHandle{}, pkgdb.ClassifyError(err)
	}

	if created && r.logg != nil {
		logCtx := r.logg.WithCartID(ctx, row.ID.String())
		logCtx = r.logg.WithField(logCtx, "owner_kind", string(owner.Kind))
		r.logg.Debug(logCtx, "cart created")
	}

	return CartHandle{
		CartID:      row.ID,
		Owner:       owner,
		IssuedToken: issued,
		Created:     created,
	}, nil
}
