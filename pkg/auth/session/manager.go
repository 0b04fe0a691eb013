// Package session tracks live access tokens in Redis so logout can revoke a
// token before its exp claim.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	redisclient "github.com/angelmondragon/storefront-backend/pkg/redis"
	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"
)

var errMissingAccessID = errors.New("access id is required")

type sessionStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

type sessionKeyer interface {
	AccessSessionKey(accessID string) string
}

// AccessSessionChecker is the read side the auth middleware needs.
type AccessSessionChecker interface {
	// ValidSession reports whether accessID is registered to accountID.
	ValidSession(ctx context.Context, accessID string, accountID uuid.UUID) (bool, error)
}

// Manager stores one key per access token jti whose value is the owning
// account id.
type Manager struct {
	store sessionStore
	keyer sessionKeyer
	ttl   time.Duration
}

// NewManager requires a session TTL that outlives the access token, so a
// valid token never outlives its session key.
func NewManager(client *redisclient.Client, cfg config.JWTConfig) (*Manager, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	ttl, accessTTL := cfg.SessionTTL(), cfg.AccessTTL()
	switch {
	case ttl <= 0:
		return nil, errors.New("session ttl must be positive")
	case ttl < accessTTL:
		return nil, fmt.Errorf("session ttl (%s) must cover access token ttl (%s)", ttl, accessTTL)
	}
	return &Manager{store: client, keyer: client, ttl: ttl}, nil
}

// NewAccessID produces the identifier used as the JWT jti and Redis key.
func NewAccessID() string {
	return uuid.NewString()
}

func (m *Manager) key(accessID string) (string, error) {
	accessID = strings.TrimSpace(accessID)
	if accessID == "" {
		return "", errMissingAccessID
	}
	return m.keyer.AccessSessionKey(accessID), nil
}

func (m *Manager) Register(ctx context.Context, accessID string, accountID uuid.UUID) error {
	key, err := m.key(accessID)
	if err != nil {
		return err
	}
	if accountID == uuid.Nil {
		return errors.New("account id is required")
	}
	return m.store.Set(ctx, key, accountID.String(), m.ttl)
}

// Revoke is idempotent.
func (m *Manager) Revoke(ctx context.Context, accessID string) error {
	key, err := m.key(accessID)
	if err != nil {
		return err
	}
	return m.store.Del(ctx, key)
}

// ValidSession is false for unknown, revoked or foreign sessions. Only store
// failures are errors.
func (m *Manager) ValidSession(ctx context.Context, accessID string, accountID uuid.UUID) (bool, error) {
	key, err := m.key(accessID)
	if err != nil {
		return false, err
	}
	owner, err := m.store.Get(ctx, key)
	switch {
	case errors.Is(err, redislib.Nil):
		return false, nil
	case err != nil:
		return false, err
	}
	stored, err := uuid.Parse(owner)
	return err == nil && stored == accountID, nil
}
