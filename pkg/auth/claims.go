package auth

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload is what the login flow knows when minting. An empty JTI
// is generated.
type AccessTokenPayload struct {
	AccountID uuid.UUID
	Email     string
	JTI       string
}

type AccessTokenClaims struct {
	AccountID uuid.UUID `json:"account_id"`
	Email     string    `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Validate runs after the registered-claim checks. The jti doubles as the
// Redis session id and the subject must agree with account_id.
func (c AccessTokenClaims) Validate() error {
	switch {
	case c.AccountID == uuid.Nil:
		return errors.New("token missing account id")
	case c.Subject != c.AccountID.String():
		return errors.New("token subject does not match account id")
	case c.ID == "":
		return errors.New("token missing session id")
	}
	return nil
}
