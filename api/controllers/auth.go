package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/accounts"
	"github.com/angelmondragon/storefront-backend/internal/merge"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type cartMerger interface {
	MergeOnLogin(ctx context.Context, anonymousToken string, accountID uuid.UUID) (*merge.Result, error)
}

type loginResponse struct {
	*accounts.LoginResult
	CartMerge *cartMergeResponse `json:"cart_merge,omitempty"`
}

type cartMergeResponse struct {
	CartID      *uuid.UUID `json:"cart_id,omitempty"`
	Merged      bool       `json:"merged"`
	LinesMerged int        `json:"lines_merged"`
}

// AuthLogin verifies credentials and, when the request carries a guest cart
// token, folds that cart into the account cart.
func AuthLogin(svc accounts.Service, merger cartMerger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		var body accounts.LoginRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Login(r.Context(), body.Email, body.Password)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := loginResponse{LoginResult: result}
		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithAccountID(ctx, result.Account.ID.String())
		}

		if token := middleware.GuestToken(r); token != "" && merger != nil {
			merged, err := merger.MergeOnLogin(ctx, token, result.Account.ID)
			switch {
			case err == nil:
				resp.CartMerge = &cartMergeResponse{Merged: merged.Merged, LinesMerged: merged.LinesMerged}
				if merged.Merged {
					cartID := merged.AccountCartID
					resp.CartMerge.CartID = &cartID
				}
			case pkgerrors.IsCode(err, pkgerrors.CodeInvalidIdentity):
				if logg != nil {
					logg.Warn(logg.WithField(ctx, "reason", err.Error()), "guest cart token ignored at login")
				}
			default:
				revokeSession(ctx, svc, result.AccessID, logg)
				responses.WriteError(ctx, logg, w, err)
				return
			}
		}

		responses.WriteSuccess(w, resp)
	}
}

// revokeSession drops a session minted for a login that did not complete.
func revokeSession(ctx context.Context, svc accounts.Service, accessID string, logg *logger.Logger) {
	if accessID == "" {
		return
	}
	if err := svc.Logout(context.WithoutCancel(ctx), accessID); err != nil && logg != nil {
		logg.Error(ctx, "revoke session after failed login merge", err)
	}
}

// AuthLogout revokes the access session of the presented token.
func AuthLogout(svc accounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		accessID := middleware.AccessIDFromContext(r.Context())
		if accessID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session"))
			return
		}

		if err := svc.Logout(r.Context(), accessID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "logged_out"})
	}
}
