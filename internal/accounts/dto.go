package accounts

import (
	"time"

	"github.com/google/uuid"
)

// LoginRequest captures the credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"notblank"`
}

// AccountDTO is the public view of an account.
type AccountDTO struct {
	ID          uuid.UUID  `json:"id"`
	Email       string     `json:"email"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// LoginResult is produced by a successful login.
type LoginResult struct {
	AccessToken string     `json:"access_token"`
	ExpiresAt   time.Time  `json:"expires_at"`
	Account     AccountDTO `json:"account"`
	// AccessID is the session id behind AccessToken; never serialized.
	AccessID string `json:"-"`
}
