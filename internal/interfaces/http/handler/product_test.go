package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductHandler_Create(t *testing.T) {
	t.Run("creates a product", func(t *testing.T) {
		f := newAPIFixture(t)

		w := f.do(t, "POST", "/api/v1/products", CreateProductRequest{
			Name:         "Feta 1kg",
			InitialStock: 10,
		})

		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		got := decodeData[ProductResponse](t, w)
		assert.NotEmpty(t, got.ID)
		assert.Equal(t, "Feta 1kg", got.Name)
		assert.Equal(t, "0", got.Price)
		assert.Equal(t, int64(10), got.Stock)
	})

	t.Run("rejects empty name", func(t *testing.T) {
		f := newAPIFixture(t)

		w := f.do(t, "POST", "/api/v1/products", map[string]any{"name": ""})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rejects negative initial stock", func(t *testing.T) {
		f := newAPIFixture(t)

		w := f.do(t, "POST", "/api/v1/products", map[string]any{
			"name":          "Feta 1kg",
			"initial_stock": -1,
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestProductHandler_GetAndList(t *testing.T) {
	f := newAPIFixture(t)
	p := f.addProduct(t, "Feta 1kg", 8.50, 10)
	f.addProduct(t, "Olives 500g", 3.20, 4)

	t.Run("get by id", func(t *testing.T) {
		w := f.do(t, "GET", "/api/v1/products/"+p.ID.String(), nil)
		require.Equal(t, http.StatusOK, w.Code)
		got := decodeData[ProductResponse](t, w)
		assert.Equal(t, "Feta 1kg", got.Name)
		assert.Equal(t, "8.5", got.Price)
	})

	t.Run("unknown product returns 404", func(t *testing.T) {
		w := f.do(t, "GET", "/api/v1/products/2f8a9f74-0c7b-4a57-9d3c-64e78ab3bd01", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "ERR_NOT_FOUND", decodeErrorCode(t, w))
	})

	t.Run("malformed id returns 400", func(t *testing.T) {
		w := f.do(t, "GET", "/api/v1/products/not-a-uuid", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("lists products with pagination meta", func(t *testing.T) {
		w := f.do(t, "GET", "/api/v1/products?page=1&page_size=1", nil)
		require.Equal(t, http.StatusOK, w.Code)

		got := decodeData[[]ProductResponse](t, w)
		assert.Len(t, got, 1)
	})
}

func TestProductHandler_Update(t *testing.T) {
	f := newAPIFixture(t)
	p := f.addProduct(t, "Feta 1kg", 8.50, 10)

	newName := "Feta PDO 1kg"
	w := f.do(t, "PUT", "/api/v1/products/"+p.ID.String(), UpdateProductRequest{Name: &newName})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := decodeData[ProductResponse](t, w)
	assert.Equal(t, "Feta PDO 1kg", got.Name)

	t.Run("stock cannot be changed through update", func(t *testing.T) {
		w := f.do(t, "PUT", "/api/v1/products/"+p.ID.String(), map[string]any{"stock": 999})
		require.Equal(t, http.StatusOK, w.Code)
		got := decodeData[ProductResponse](t, w)
		assert.Equal(t, int64(10), got.Stock)
	})

	t.Run("unknown product returns 404", func(t *testing.T) {
		w := f.do(t, "PUT", "/api/v1/products/2f8a9f74-0c7b-4a57-9d3c-64e78ab3bd01", UpdateProductRequest{Name: &newName})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestProductHandler_Delete(t *testing.T) {
	f := newAPIFixture(t)
	p := f.addProduct(t, "Feta 1kg", 8.50, 10)

	w := f.do(t, "DELETE", "/api/v1/products/"+p.ID.String(), nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = f.do(t, "DELETE", "/api/v1/products/"+p.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
