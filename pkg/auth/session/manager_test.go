package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"
)

type mockStore struct {
	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration
	err  error
}

func newMockStore() *mockStore {
	return &mockStore{data: make(map[string]string), ttls: make(map[string]time.Duration)}
}

func (m *mockStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = fmt.Sprint(value)
	m.ttls[key] = ttl
	return nil
}

func (m *mockStore) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	val, ok := m.data[key]
	if !ok {
		return "", redislib.Nil
	}
	return val, nil
}

func (m *mockStore) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func (m *mockStore) AccessSessionKey(accessID string) string {
	return fmt.Sprintf("sess:%s", accessID)
}

func newTestManager(store *mockStore) *Manager {
	return &Manager{store: store, keyer: store, ttl: time.Hour}
}

func TestManagerRegisterAndRevoke(t *testing.T) {
	store := newMockStore()
	manager := newTestManager(store)
	ctx := context.Background()
	accessID := NewAccessID()
	accountID := uuid.New()

	if err := manager.Register(ctx, accessID, accountID); err != nil {
		t.Fatalf("register: %v", err)
	}
	if stored := store.data[store.AccessSessionKey(accessID)]; stored != accountID.String() {
		t.Fatalf("expected stored account %q, got %q", accountID, stored)
	}
	if ttl := store.ttls[store.AccessSessionKey(accessID)]; ttl != time.Hour {
		t.Fatalf("expected ttl 1h, got %v", ttl)
	}

	ok, err := manager.ValidSession(ctx, accessID, accountID)
	if err != nil || !ok {
		t.Fatalf("expected active session, ok=%v err=%v", ok, err)
	}
	if ok, _ := manager.ValidSession(ctx, accessID, uuid.New()); ok {
		t.Fatal("session must not validate for another account")
	}

	if err := manager.Revoke(ctx, accessID); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	ok, err = manager.ValidSession(ctx, accessID, accountID)
	if err != nil || ok {
		t.Fatalf("expected revoked session, ok=%v err=%v", ok, err)
	}
}

func TestManagerValidatesInput(t *testing.T) {
	manager := newTestManager(newMockStore())
	ctx := context.Background()

	if err := manager.Register(ctx, "", uuid.New()); err == nil {
		t.Fatal("expected access id error")
	}
	if err := manager.Register(ctx, "jti", uuid.Nil); err == nil {
		t.Fatal("expected account id error")
	}
	if _, err := manager.ValidSession(ctx, " ", uuid.New()); err == nil {
		t.Fatal("expected access id error")
	}
}

func TestValidSessionPropagatesStoreErrors(t *testing.T) {
	store := newMockStore()
	store.err = errors.New("redis down")
	manager := newTestManager(store)

	if _, err := manager.ValidSession(context.Background(), "jti", uuid.New()); err == nil {
		t.Fatal("expected store error")
	}
}

func TestNewManagerRequiresTTLCoveringAccessToken(t *testing.T) {
	if _, err := NewManager(nil, config.JWTConfig{}); err == nil {
		t.Fatal("expected redis client requirement")
	}
}

func TestValidSessionIgnoresCorruptValue(t *testing.T) {
	store := newMockStore()
	manager := newTestManager(store)
	store.data[store.AccessSessionKey("jti")] = "not-a-uuid"

	ok, err := manager.ValidSession(context.Background(), "jti", uuid.New())
	if err != nil || ok {
		t.Fatalf("expected corrupt session to be invalid, ok=%v err=%v", ok, err)
	}
}
