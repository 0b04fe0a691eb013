package catalog

import (
	"context"
	"testing"

	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetProduct(t *testing.T) {
	client := dbtest.Open(t)
	seeded := dbtest.SeedProduct(t, client, "Lamp", 1299, 4)
	repo := NewRepository(client.DB())

	got, err := repo.GetProduct(context.Background(), seeded.ID)
	require.NoError(t, err)
	assert.Equal(t, &Product{ID: seeded.ID, Name: "Lamp", PriceCents: 1299, Stock: 4}, got)

	_, err = repo.GetProduct(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestDecrementStockIsConditional(t *testing.T) {
	client := dbtest.Open(t)
	seeded := dbtest.SeedProduct(t, client, "Mug", 800, 5)
	repo := NewRepository(client.DB())
	ctx := context.Background()

	require.NoError(t, repo.DecrementStock(ctx, seeded.ID, 2))
	assert.Equal(t, 3, dbtest.Stock(t, client, seeded.ID))

	err := repo.DecrementStock(ctx, seeded.ID, 4)
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, 3, dbtest.Stock(t, client, seeded.ID))

	require.NoError(t, repo.DecrementStock(ctx, seeded.ID, 3))
	assert.Equal(t, 0, dbtest.Stock(t, client, seeded.ID))

	assert.ErrorIs(t, repo.DecrementStock(ctx, uuid.New(), 1), ErrInsufficientStock)
}

func TestUpsertBySKURefreshesExistingRow(t *testing.T) {
	client := dbtest.Open(t)
	seeded := dbtest.SeedProduct(t, client, "Kettle", 2500, 1)
	repo := NewRepository(client.DB())
	ctx := context.Background()

	require.NoError(t, repo.UpsertBySKU(ctx, &models.Product{SKU: seeded.SKU, Name: "Kettle v2", PriceCents: 2700, Stock: 9}))
	assert.Equal(t, int64(1), dbtest.Count(t, client, &models.Product{}, "sku = ?", seeded.SKU))

	got, err := repo.GetProduct(ctx, seeded.ID)
	require.NoError(t, err)
	assert.Equal(t, &Product{ID: seeded.ID, Name: "Kettle v2", PriceCents: 2700, Stock: 9}, got)

	require.NoError(t, repo.UpsertBySKU(ctx, &models.Product{SKU: "NEW-1", Name: "Toaster", PriceCents: 1999, Stock: 2}))
	assert.Equal(t, int64(2), dbtest.Count(t, client, &models.Product{}, ""))
}
