package middleware

import (
	"net/http"

	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/identity"
)

// GuestCartHeader carries the anonymous cart token in both directions.
const GuestCartHeader = "X-Guest-Cart-Id"

const maxGuestTokenLen = 128

// CartIdentity derives the caller's cart identity. An authenticated account
// wins over any guest token; a request with neither becomes a guest that
// will be issued a token.
func CartIdentity() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identityFor(r))))
		})
	}
}

func identityFor(r *http.Request) identity.Identity {
	if accountID, ok := AccountIDFromContext(r.Context()); ok {
		return identity.Account(accountID)
	}
	if token := GuestToken(r); token != "" {
		return identity.Anonymous(token)
	}
	return identity.Guest()
}

// GuestToken returns the sanitized guest token header, or "".
func GuestToken(r *http.Request) string {
	return validators.SanitizeToken(r.Header.Get(GuestCartHeader), maxGuestTokenLen)
}
