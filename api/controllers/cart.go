package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	cartsvc "github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/identity"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type cartResolver interface {
	ResolveCart(ctx context.Context, id identity.Identity) (identity.CartHandle, error)
}

type addItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"gt=0"`
}

type setQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// CartGet returns the caller's cart priced at current catalog prices.
func CartGet(resolver cartResolver, svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if resolver == nil || svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		handle, ctx, ok := resolveCart(w, r, resolver, logg)
		if !ok {
			return
		}
		writeCartView(ctx, w, svc, handle.CartID, logg)
	}
}

// CartAddItem writes a line for the product, replacing any existing quantity.
func CartAddItem(resolver cartResolver, svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if resolver == nil || svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		var payload addItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		handle, ctx, ok := resolveCart(w, r, resolver, logg)
		if !ok {
			return
		}
		if err := svc.AddLine(ctx, handle.CartID, payload.ProductID, payload.Quantity); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		writeCartView(ctx, w, svc, handle.CartID, logg)
	}
}

// CartSetItem sets the quantity of a line. A quantity of zero or less removes it.
func CartSetItem(resolver cartResolver, svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if resolver == nil || svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		productID, err := validators.ParseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload setQuantityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		handle, ctx, ok := resolveCart(w, r, resolver, logg)
		if !ok {
			return
		}
		if err := svc.SetLineQuantity(ctx, handle.CartID, productID, payload.Quantity); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		writeCartView(ctx, w, svc, handle.CartID, logg)
	}
}

// CartRemoveItem deletes a line; removing an absent product is a no-op.
func CartRemoveItem(resolver cartResolver, svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if resolver == nil || svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		productID, err := validators.ParseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		handle, ctx, ok := resolveCart(w, r, resolver, logg)
		if !ok {
			return
		}
		if err := svc.RemoveLine(ctx, handle.CartID, productID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		writeCartView(ctx, w, svc, handle.CartID, logg)
	}
}

// resolveCart maps the request identity onto its cart. A rejected guest
// token is replaced by a freshly minted one, which is echoed back in the
// guest cart header.
func resolveCart(w http.ResponseWriter, r *http.Request, resolver cartResolver, logg *logger.Logger) (identity.CartHandle, context.Context, bool) {
	ctx := r.Context()
	id := middleware.IdentityFromContext(ctx)

	handle, err := resolver.ResolveCart(ctx, id)
	if err != nil && id.AccountID == nil && id.Token != "" && pkgerrors.IsCode(err, pkgerrors.CodeInvalidIdentity) {
		if logg != nil {
			logg.Warn(logg.WithField(ctx, "reason", err.Error()), "guest cart token rejected, issuing a new one")
		}
		handle, err = resolver.ResolveCart(ctx, identity.Guest())
	}
	if err != nil {
		responses.WriteError(ctx, logg, w, err)
		return identity.CartHandle{}, ctx, false
	}

	if handle.IssuedToken != "" {
		w.Header().Set(middleware.GuestCartHeader, handle.IssuedToken)
	}
	if logg != nil {
		ctx = logg.WithCartID(ctx, handle.CartID.String())
	}
	return handle, ctx, true
}

func writeCartView(ctx context.Context, w http.ResponseWriter, svc cartsvc.Service, cartID uuid.UUID, logg *logger.Logger) {
	view, err := svc.GetLines(ctx, cartID)
	if err != nil {
		responses.WriteError(ctx, logg, w, err)
		return
	}
	responses.WriteSuccess(w, view)
}
