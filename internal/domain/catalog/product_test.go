package catalog

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orderdesk/backend/internal/domain/shared"
)

func TestNewProduct(t *testing.T) {
	t.Run("creates product with valid input", func(t *testing.T) {
		p, err := NewProduct("Olive Oil 5L", decimal.NewFromFloat(42.50), 100)
		require.NoError(t, err)
		assert.Equal(t, "Olive Oil 5L", p.Name)
		assert.True(t, p.Price.Equal(decimal.NewFromFloat(42.50)))
		assert.Equal(t, int64(100), p.Stock)
	})

	t.Run("rejects empty name", func(t *testing.T) {
		_, err := NewProduct("  ", decimal.NewFromInt(10), 0)
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_INPUT", domainErr.Code)
	})

	t.Run("rejects negative price", func(t *testing.T) {
		_, err := NewProduct("Flour", decimal.NewFromInt(-1), 0)
		assert.Error(t, err)
	})

	t.Run("rejects negative stock", func(t *testing.T) {
		_, err := NewProduct("Flour", decimal.NewFromInt(1), -5)
		assert.Error(t, err)
	})
}

func TestProductDecreaseStock(t *testing.T) {
	t.Run("decreases stock when enough is available", func(t *testing.T) {
		p, err := NewProduct("Rice 25kg", decimal.NewFromInt(30), 5)
		require.NoError(t, err)

		require.NoError(t, p.DecreaseStock(3))
		assert.Equal(t, int64(2), p.Stock)
	})

	t.Run("rejects insufficient stock with shortfall", func(t *testing.T) {
		p, err := NewProduct("Rice 25kg", decimal.NewFromInt(30), 2)
		require.NoError(t, err)

		err = p.DecreaseStock(5)
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "STOCK_CONFLICT", domainErr.Code)
		assert.Contains(t, domainErr.Message, "short 3")
		assert.Equal(t, int64(2), p.Stock, "stock must be untouched after a rejected decrement")
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		p, _ := NewProduct("Rice 25kg", decimal.NewFromInt(30), 2)
		assert.Error(t, p.DecreaseStock(0))
		assert.Error(t, p.DecreaseStock(-1))
	})
}

func TestProductApplyStockDelta(t *testing.T) {
	p, err := NewProduct("Sugar 1kg", decimal.NewFromInt(2), 10)
	require.NoError(t, err)

	t.Run("negative delta decrements", func(t *testing.T) {
		require.NoError(t, p.ApplyStockDelta(-4))
		assert.Equal(t, int64(6), p.Stock)
	})

	t.Run("positive delta increments", func(t *testing.T) {
		require.NoError(t, p.ApplyStockDelta(10))
		assert.Equal(t, int64(16), p.Stock)
	})

	t.Run("zero delta is rejected", func(t *testing.T) {
		assert.Error(t, p.ApplyStockDelta(0))
	})

	t.Run("negative delta beyond stock is rejected", func(t *testing.T) {
		err := p.ApplyStockDelta(-100)
		require.Error(t, err)
		assert.Equal(t, int64(16), p.Stock)
	})
}
