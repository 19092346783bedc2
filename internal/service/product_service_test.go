package service

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"foodshop/internal/domain"
	"foodshop/internal/repository"
)

func TestProductService_Validation(t *testing.T) {
	ctx := context.Background()
	ps := NewProductService(repository.NewMemoryStore())

	_, err := ps.Create(ctx, domain.Product{Name: "", Price: decimal.NewFromInt(1)})
	assert.True(t, errors.Is(err, ErrInvalidInput))
	_, err = ps.Create(ctx, domain.Product{Name: "X", Price: decimal.NewFromInt(-1)})
	assert.True(t, errors.Is(err, ErrInvalidInput))
	_, err = ps.Create(ctx, domain.Product{Name: "X", Price: decimal.NewFromInt(1), Stock: -2})
	assert.True(t, errors.Is(err, ErrInvalidInput))
	_, err = ps.GetByID(ctx, 0)
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestProductService_CRUD(t *testing.T) {
	ctx := context.Background()
	ps := NewProductService(repository.NewMemoryStore())

	p, err := ps.Create(ctx, domain.Product{Name: "Tea", Price: decimal.RequireFromString("1.20"), Stock: 3})
	require.NoError(t, err)
	assert.NotZero(t, p.ID)

	p.Stock = 7
	_, err = ps.Update(ctx, *p)
	require.NoError(t, err)

	got, err := ps.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.Stock)

	list, err := ps.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, ps.Delete(ctx, p.ID))
	_, err = ps.GetByID(ctx, p.ID)
	assert.True(t, errors.Is(err, repository.ErrNotFound))
}

func TestProductService_PriceMustFitStorage(t *testing.T) {
	ctx := context.Background()
	ps := NewProductService(repository.NewMemoryStore())

	for _, price := range []string{"1.999", "10000000000"} {
		_, err := ps.Create(ctx, domain.Product{Name: "X", Price: decimal.RequireFromString(price)})
		assert.True(t, errors.Is(err, ErrInvalidInput), "price %s: %v", price, err)
	}

	p, err := ps.Create(ctx, domain.Product{Name: "X", Price: decimal.RequireFromString("1.50"), Stock: 1})
	require.NoError(t, err)
	p.Price = decimal.RequireFromString("2.345")
	_, err = ps.Update(ctx, *p)
	assert.True(t, errors.Is(err, ErrInvalidInput))
}
