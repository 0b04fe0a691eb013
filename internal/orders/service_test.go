package orders

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*db.Client, *Repository, Service) {
	t.Helper()
	client := dbtest.Open(t)
	repo := NewRepository(client.DB())
	svc, err := NewService(repo)
	require.NoError(t, err)
	return client, repo, svc
}

func placeOrder(t *testing.T, repo *Repository, accountID uuid.UUID, at time.Time, lines ...models.OrderLine) models.Order {
	t.Helper()
	var total int64
	for _, line := range lines {
		total += line.UnitPriceCents * int64(line.Quantity)
	}
	order := models.Order{AccountID: accountID, TotalCents: total, CreatedAt: at}
	require.NoError(t, repo.Create(context.Background(), &order, lines))
	return order
}

func TestListNewestFirstWithCursor(t *testing.T) {
	client, repo, svc := newTestService(t)
	ctx := context.Background()
	account := dbtest.SeedAccount(t, client)
	p1 := dbtest.SeedProduct(t, client, "Mug", 1000, 10)
	p2 := dbtest.SeedProduct(t, client, "Tee", 2500, 10)

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	first := placeOrder(t, repo, account.ID, base,
		models.OrderLine{ProductID: p1.ID, Quantity: 1, UnitPriceCents: 1000})
	second := placeOrder(t, repo, account.ID, base.Add(time.Minute),
		models.OrderLine{ProductID: p1.ID, Quantity: 2, UnitPriceCents: 1000},
		models.OrderLine{ProductID: p2.ID, Quantity: 1, UnitPriceCents: 2500})
	third := placeOrder(t, repo, account.ID, base.Add(2*time.Minute),
		models.OrderLine{ProductID: p2.ID, Quantity: 3, UnitPriceCents: 2500})

	page, err := svc.List(ctx, account.ID, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Orders, 2)
	assert.Equal(t, third.ID, page.Orders[0].ID)
	assert.Equal(t, second.ID, page.Orders[1].ID)
	assert.Equal(t, 2, page.Orders[1].ItemCount)
	assert.Equal(t, "45.00", page.Orders[1].Total)
	require.NotEmpty(t, page.NextCursor)

	next, err := svc.List(ctx, account.ID, pagination.Params{Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, next.Orders, 1)
	assert.Equal(t, first.ID, next.Orders[0].ID)
	assert.Empty(t, next.NextCursor)
}

func TestListIsScopedToAccount(t *testing.T) {
	client, repo, svc := newTestService(t)
	mine := dbtest.SeedAccount(t, client)
	other := dbtest.SeedAccount(t, client)
	product := dbtest.SeedProduct(t, client, "Mug", 1000, 10)
	placeOrder(t, repo, other.ID, time.Now().UTC(),
		models.OrderLine{ProductID: product.ID, Quantity: 1, UnitPriceCents: 1000})

	page, err := svc.List(context.Background(), mine.ID, pagination.Params{})
	require.NoError(t, err)
	assert.Empty(t, page.Orders)
	assert.Empty(t, page.NextCursor)
}

func TestListRejectsBadCursor(t *testing.T) {
	client, _, svc := newTestService(t)
	account := dbtest.SeedAccount(t, client)

	_, err := svc.List(context.Background(), account.ID, pagination.Params{Cursor: "not-a-cursor"})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestDetailUsesSnapshotPrices(t *testing.T) {
	client, repo, svc := newTestService(t)
	ctx := context.Background()
	account := dbtest.SeedAccount(t, client)
	product := dbtest.SeedProduct(t, client, "Mug", 1000, 10)
	order := placeOrder(t, repo, account.ID, time.Now().UTC(),
		models.OrderLine{ProductID: product.ID, Quantity: 2, UnitPriceCents: 1000})

	require.NoError(t, client.DB().Model(&models.Product{}).
		Where("id = ?", product.ID).Update("price_cents", 1500).Error)

	detail, err := svc.Detail(ctx, account.ID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "20.00", detail.Total)
	require.Len(t, detail.Lines, 1)
	assert.Equal(t, "Mug", detail.Lines[0].Name)
	assert.Equal(t, "10.00", detail.Lines[0].UnitPrice)
	assert.Equal(t, "20.00", detail.Lines[0].Subtotal)
}

func TestDetailHidesForeignOrders(t *testing.T) {
	client, repo, svc := newTestService(t)
	owner := dbtest.SeedAccount(t, client)
	intruder := dbtest.SeedAccount(t, client)
	product := dbtest.SeedProduct(t, client, "Mug", 1000, 10)
	order := placeOrder(t, repo, owner.ID, time.Now().UTC(),
		models.OrderLine{ProductID: product.ID, Quantity: 1, UnitPriceCents: 1000})

	_, err := svc.Detail(context.Background(), intruder.ID, order.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = svc.Detail(context.Background(), owner.ID, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
