package merge

import (
	"bytes"
	"context"
	"testing"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/identity"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	client   *db.Client
	engine   *Engine
	carts    *identity.Repository
	lines    *cart.Repository
	resolver *identity.Resolver
	logs     *bytes.Buffer
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	client := dbtest.Open(t)
	logs := &bytes.Buffer{}
	logg := logger.New(logger.Options{ServiceName: "merge-test", Output: logs})

	carts := identity.NewRepository(client.DB())
	lines := cart.NewRepository(client.DB())
	engine, err := NewEngine(client, carts, lines, metrics.NewEngineMetrics(prometheus.NewRegistry()), logg)
	require.NoError(t, err)
	resolver, err := identity.NewResolver(carts, nil, logg)
	require.NoError(t, err)

	return fixture{client: client, engine: engine, carts: carts, lines: lines, resolver: resolver, logs: logs}
}

func (f fixture) guestCart(t *testing.T, quantities map[uuid.UUID]int) string {
	t.Helper()
	handle, err := f.resolver.ResolveCart(context.Background(), identity.Guest())
	require.NoError(t, err)
	for productID, qty := range quantities {
		require.NoError(t, f.lines.ReplaceLine(context.Background(), handle.CartID, productID, qty))
	}
	return handle.IssuedToken
}

func (f fixture) accountQuantities(t *testing.T, accountID uuid.UUID) map[uuid.UUID]int {
	t.Helper()
	row, err := f.carts.FindByOwner(context.Background(), identity.AccountOwner(accountID))
	require.NoError(t, err)
	require.NotNil(t, row)
	priced, err := f.lines.ListPriced(context.Background(), row.ID)
	require.NoError(t, err)
	out := map[uuid.UUID]int{}
	for _, line := range priced {
		out[line.ProductID] = line.Quantity
	}
	return out
}

func TestMergeSumsOverlappingLines(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	account := dbtest.SeedAccount(t, f.client)
	product := dbtest.SeedProduct(t, f.client, "P", 1000, 1)

	accountCart, err := f.resolver.ResolveCart(ctx, identity.Account(account.ID))
	require.NoError(t, err)
	require.NoError(t, f.lines.ReplaceLine(ctx, accountCart.CartID, product.ID, 2))
	token := f.guestCart(t, map[uuid.UUID]int{product.ID: 3})

	result, err := f.engine.MergeOnLogin(ctx, token, account.ID)
	require.NoError(t, err)
	assert.True(t, result.Merged)
	assert.Equal(t, accountCart.CartID, result.AccountCartID)
	assert.Equal(t, 1, result.LinesMerged)

	assert.Equal(t, map[uuid.UUID]int{product.ID: 5}, f.accountQuantities(t, account.ID))

	gone, err := f.carts.FindByOwner(ctx, identity.AnonymousOwner(token))
	require.NoError(t, err)
	assert.Nil(t, gone)
	assert.Equal(t, int64(1), dbtest.Count(t, f.client, &models.Cart{}, ""))
	assert.Contains(t, f.logs.String(), "cart merge completed")
}

func TestMergeDisjointLinesCreatesAccountCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	account := dbtest.SeedAccount(t, f.client)
	a := dbtest.SeedProduct(t, f.client, "A", 100, 10)
	b := dbtest.SeedProduct(t, f.client, "B", 200, 10)

	token := f.guestCart(t, map[uuid.UUID]int{a.ID: 1, b.ID: 2})

	result, err := f.engine.MergeOnLogin(ctx, token, account.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, result.LinesMerged)
	assert.Equal(t, map[uuid.UUID]int{a.ID: 1, b.ID: 2}, f.accountQuantities(t, account.ID))
	assert.Equal(t, int64(0), dbtest.Count(t, f.client, &models.CartLine{}, "cart_id <> ?", result.AccountCartID))
}

func TestMergeMovesLinesWithoutProductRow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	account := dbtest.SeedAccount(t, f.client)
	kept := dbtest.SeedProduct(t, f.client, "Kept", 100, 10)
	orphan := dbtest.SeedProduct(t, f.client, "Orphan", 200, 10)
	token := f.guestCart(t, map[uuid.UUID]int{kept.ID: 1, orphan.ID: 4})

	require.NoError(t, f.client.DB().Exec("PRAGMA foreign_keys = OFF").Error)
	require.NoError(t, f.client.DB().Exec("DELETE FROM products WHERE id = ?", orphan.ID).Error)

	result, err := f.engine.MergeOnLogin(ctx, token, account.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, result.LinesMerged)

	moved, err := f.lines.ListLines(ctx, result.AccountCartID)
	require.NoError(t, err)
	got := map[uuid.UUID]int{}
	for _, line := range moved {
		got[line.ProductID] = line.Quantity
	}
	assert.Equal(t, map[uuid.UUID]int{kept.ID: 1, orphan.ID: 4}, got)
	assert.Equal(t, int64(0), dbtest.Count(t, f.client, &models.CartLine{}, "cart_id <> ?", result.AccountCartID))
}

func TestMergeRetiresTokenAndRejectsReuse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	account := dbtest.SeedAccount(t, f.client)
	product := dbtest.SeedProduct(t, f.client, "P", 1000, 10)
	token := f.guestCart(t, map[uuid.UUID]int{product.ID: 1})

	_, err := f.engine.MergeOnLogin(ctx, token, account.ID)
	require.NoError(t, err)

	_, err = f.engine.MergeOnLogin(ctx, token, account.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidIdentity))
	assert.Equal(t, map[uuid.UUID]int{product.ID: 1}, f.accountQuantities(t, account.ID), "a replayed merge must not double quantities")

	_, err = f.resolver.ResolveCart(ctx, identity.Anonymous(token))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidIdentity))
}

func TestMergeWithoutAnonymousCartIsNoop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	account := dbtest.SeedAccount(t, f.client)

	result, err := f.engine.MergeOnLogin(ctx, "never-used", account.ID)
	require.NoError(t, err)
	assert.False(t, result.Merged)
	assert.Equal(t, int64(0), dbtest.Count(t, f.client, &models.Cart{}, ""))

	retired, err := f.carts.IsRetired(ctx, "never-used")
	require.NoError(t, err)
	assert.True(t, retired)
}

func TestMergeRollsBackOnFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	product := dbtest.SeedProduct(t, f.client, "P", 1000, 10)
	token := f.guestCart(t, map[uuid.UUID]int{product.ID: 2})

	// An account id with no accounts row violates the carts foreign key once
	// the account cart is inserted.
	_, err := f.engine.MergeOnLogin(ctx, token, uuid.New())
	require.Error(t, err)

	still, err := f.carts.FindByOwner(ctx, identity.AnonymousOwner(token))
	require.NoError(t, err)
	require.NotNil(t, still)
	priced, err := f.lines.ListPriced(ctx, still.ID)
	require.NoError(t, err)
	require.Len(t, priced, 1)
	assert.Equal(t, 2, priced[0].Quantity)

	retired, err := f.carts.IsRetired(ctx, token)
	require.NoError(t, err)
	assert.False(t, retired)
}

func TestMergeValidatesInputs(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.MergeOnLogin(context.Background(), " ", uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidIdentity))

	_, err = f.engine.MergeOnLogin(context.Background(), "tok", uuid.Nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidIdentity))
}
