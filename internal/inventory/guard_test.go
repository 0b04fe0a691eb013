package inventory

import (
	"context"
	"errors"
	"testing"

	"github.com/angelmondragon/storefront-backend/internal/catalog"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCatalog struct {
	products  map[uuid.UUID]catalog.Product
	err       error
	decrErr   error
	decrCalls int
}

func (s *stubCatalog) GetProduct(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	if s.err != nil {
		return nil, s.err
	}
	p, ok := s.products[id]
	if !ok {
		return nil, catalog.ErrProductNotFound
	}
	return &p, nil
}

func (s *stubCatalog) DecrementStock(ctx context.Context, id uuid.UUID, amount int) error {
	s.decrCalls++
	return s.decrErr
}

func TestCheckAvailable(t *testing.T) {
	id := uuid.New()
	stub := &stubCatalog{products: map[uuid.UUID]catalog.Product{id: {ID: id, PriceCents: 500, Stock: 3}}}
	guard, err := NewGuard(stub)
	require.NoError(t, err)

	product, err := guard.CheckAvailable(context.Background(), id, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(500), product.PriceCents)

	_, err = guard.CheckAvailable(context.Background(), id, 4)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeOutOfStock))
	got, ok := OutOfStockProduct(err)
	assert.True(t, ok)
	assert.Equal(t, id, got)
	assert.Equal(t, 3, pkgerrors.As(err).Details().(map[string]any)["available"])

	_, err = guard.CheckAvailable(context.Background(), uuid.New(), 1)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestCheckAvailablePropagatesStoreErrors(t *testing.T) {
	boom := errors.New("connection reset")
	guard, err := NewGuard(&stubCatalog{err: boom})
	require.NoError(t, err)

	_, err = guard.CheckAvailable(context.Background(), uuid.New(), 1)
	assert.ErrorIs(t, err, boom)
}

func TestTakeMapsInsufficientStock(t *testing.T) {
	id := uuid.New()
	stub := &stubCatalog{decrErr: catalog.ErrInsufficientStock}

	err := Take(context.Background(), stub, id, 2)
	got, ok := OutOfStockProduct(err)
	require.True(t, ok)
	assert.Equal(t, id, got)

	stub.decrErr = nil
	assert.NoError(t, Take(context.Background(), stub, id, 2))
	assert.Equal(t, 2, stub.decrCalls)
}

func TestNewGuardRequiresReader(t *testing.T) {
	_, err := NewGuard(nil)
	assert.Error(t, err)
}
