package identity

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestResolver(t *testing.T) (*Resolver, *Repository, func(query string, args ...any) int64) {
	t.Helper()
	client := dbtest.Open(t)
	repo := NewRepository(client.DB())
	resolver, err := NewResolver(repo, nil, nil)
	require.NoError(t, err)
	count := func(query string, args ...any) int64 {
		return dbtest.Count(t, client, &models.Cart{}, query, args...)
	}
	return resolver, repo, count
}

func TestResolveCartAccountIsIdempotent(t *testing.T) {
	resolver, _, count := newTestResolver(t)
	ctx := context.Background()
	accountID := seedAccountFor(t, resolver)

	first, err := resolver.ResolveCart(ctx, Account(accountID))
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.Empty(t, first.IssuedToken)
	assert.Equal(t, KindAccount, first.Owner.Kind)

	second, err := resolver.ResolveCart(ctx, Account(accountID))
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.CartID, second.CartID)
	assert.Equal(t, int64(1), count("owner_account_id = ?", accountID))
}

func TestResolveCartGuestMintsToken(t *testing.T) {
	resolver, _, count := newTestResolver(t)
	ctx := context.Background()

	guest, err := resolver.ResolveCart(ctx, Guest())
	require.NoError(t, err)
	require.NotEmpty(t, guest.IssuedToken)
	assert.Equal(t, AnonymousOwner(guest.IssuedToken), guest.Owner)

	again, err := resolver.ResolveCart(ctx, Anonymous(guest.IssuedToken))
	require.NoError(t, err)
	assert.Equal(t, guest.CartID, again.CartID)
	assert.Empty(t, again.IssuedToken)

	other, err := resolver.ResolveCart(ctx, Guest())
	require.NoError(t, err)
	assert.NotEqual(t, guest.CartID, other.CartID)
	assert.Equal(t, int64(2), count("owner_anon_token IS NOT NULL"))
}

func TestResolveCartUnknownTokenCreatesCart(t *testing.T) {
	resolver, _, count := newTestResolver(t)

	handle, err := resolver.ResolveCart(context.Background(), Anonymous("client-held-token"))
	require.NoError(t, err)
	assert.True(t, handle.Created)
	assert.Equal(t, int64(1), count("owner_anon_token = ?", "client-held-token"))
}

func TestResolveCartRejectsRetiredToken(t *testing.T) {
	resolver, repo, count := newTestResolver(t)
	ctx := context.Background()
	accountID := seedAccountFor(t, resolver)

	require.NoError(t, repo.Retire(ctx, "spent", accountID, nil))
	require.NoError(t, repo.Retire(ctx, "spent", accountID, nil), "retiring twice is a no-op")

	_, err := resolver.ResolveCart(ctx, Anonymous("spent"))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidIdentity))
	assert.Equal(t, int64(0), count("owner_anon_token = ?", "spent"))
}

func TestResolveCartRejectsInvalidIdentity(t *testing.T) {
	resolver, _, _ := newTestResolver(t)
	id := uuid.New()

	_, err := resolver.ResolveCart(context.Background(), Identity{AccountID: &id, Token: "tok"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidIdentity))
}

func TestResolveCartConcurrentCallersShareOneCart(t *testing.T) {
	resolver, _, count := newTestResolver(t)
	accountID := seedAccountFor(t, resolver)

	const callers = 8
	ids := make([]uuid.UUID, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			handle, err := resolver.ResolveCart(context.Background(), Account(accountID))
			ids[i], errs[i] = handle.CartID, err
		}(i)
	}
	wg.Wait()

	for i := range ids {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}
	assert.Equal(t, int64(1), count("owner_account_id = ?", accountID))
}

func TestResolveCartTokenSourceFailure(t *testing.T) {
	client := dbtest.Open(t)
	resolver, err := NewResolver(NewRepository(client.DB()), func() (string, error) {
		return "", errors.New("entropy exhausted")
	}, nil)
	require.NoError(t, err)

	_, err = resolver.ResolveCart(context.Background(), Guest())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInternal))
}

func TestEnsureConvergesAfterConflict(t *testing.T) {
	client := dbtest.Open(t)
	repo := NewRepository(client.DB())
	ctx := context.Background()

	token := "raced"
	existing := models.Cart{OwnerAnonToken: &token}
	require.NoError(t, client.DB().Create(&existing).Error)

	row := models.Cart{OwnerAnonToken: &token}
	require.Error(t, client.DB().Create(&row).Error, "unique owner token must reject a second cart")

	got, created, err := repo.Ensure(ctx, AnonymousOwner(token))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, existing.ID, got.ID)

	owner, err := OwnerOf(got)
	require.NoError(t, err)
	assert.Equal(t, AnonymousOwner(token), owner)
}

func seedAccountFor(t *testing.T, resolver *Resolver) uuid.UUID {
	t.Helper()
	repo, ok := resolver.carts.(*Repository)
	require.True(t, ok)
	account := models.Account{Email: uuid.NewString() + "@example.com", PasswordHash: "hash"}
	require.NoError(t, repo.db.Create(&account).Error)
	return account.ID
}
