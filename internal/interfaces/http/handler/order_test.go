package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	orderapp "github.com/orderdesk/backend/internal/application/order"
)

func placeOrder(t *testing.T, f *apiFixture, body PlaceOrderRequest) OrderResponse {
	t.Helper()
	w := f.do(t, "POST", "/api/v1/orders", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decodeData[OrderResponse](t, w)
}

func TestOrderHandler_Place(t *testing.T) {
	t.Run("places an order and decrements stock", func(t *testing.T) {
		f := newAPIFixture(t)
		p := f.addProduct(t, "Feta 1kg", 8.50, 10)

		resp := placeOrder(t, f, PlaceOrderRequest{
			CustomerName: "Nikos Galanis",
			Items: []OrderItemRequest{
				{ProductID: p.ID.String(), Quantity: 4},
			},
		})

		assert.NotEmpty(t, resp.Number)
		assert.Equal(t, "REQUESTED", resp.Status)
		assert.Equal(t, "34", resp.Total)

		stored, err := f.products.FindByID(context.Background(), p.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(6), stored.Stock)
		require.Len(t, f.movements.movements, 1)
		assert.Equal(t, "SALE", f.movements.movements[0].Kind.String())
	})

	t.Run("rejects insufficient stock with 422", func(t *testing.T) {
		f := newAPIFixture(t)
		p := f.addProduct(t, "Olives 500g", 3.20, 2)

		w := f.do(t, "POST", "/api/v1/orders", PlaceOrderRequest{
			CustomerName: "Nikos Galanis",
			Items: []OrderItemRequest{
				{ProductID: p.ID.String(), Quantity: 5},
			},
		})

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, "ERR_STOCK_CONFLICT", decodeErrorCode(t, w))
	})

	t.Run("rejects unknown product with 404", func(t *testing.T) {
		f := newAPIFixture(t)

		w := f.do(t, "POST", "/api/v1/orders", PlaceOrderRequest{
			CustomerName: "Nikos Galanis",
			Items: []OrderItemRequest{
				{ProductID: "2f8a9f74-0c7b-4a57-9d3c-64e78ab3bd01", Quantity: 1},
			},
		})

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "ERR_NOT_FOUND", decodeErrorCode(t, w))
	})

	t.Run("rejects missing items with 400", func(t *testing.T) {
		f := newAPIFixture(t)

		w := f.do(t, "POST", "/api/v1/orders", map[string]any{
			"customer_name": "Nikos Galanis",
			"items":         []any{},
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestOrderHandler_GetAndList(t *testing.T) {
	f := newAPIFixture(t)
	p := f.addProduct(t, "Honey 1kg", 12.00, 20)

	placed := placeOrder(t, f, PlaceOrderRequest{
		CustomerName: "Eleni Vasiliou",
		CustomerID:   "cust-7",
		Items:        []OrderItemRequest{{ProductID: p.ID.String(), Quantity: 2}},
	})

	t.Run("get by id", func(t *testing.T) {
		w := f.do(t, "GET", "/api/v1/orders/"+placed.ID, nil)
		require.Equal(t, http.StatusOK, w.Code)
		got := decodeData[OrderResponse](t, w)
		assert.Equal(t, placed.Number, got.Number)
		assert.Len(t, got.Items, 1)
	})

	t.Run("get unknown order returns 404", func(t *testing.T) {
		w := f.do(t, "GET", "/api/v1/orders/2f8a9f74-0c7b-4a57-9d3c-64e78ab3bd01", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("list filters by customer", func(t *testing.T) {
		w := f.do(t, "GET", "/api/v1/orders?customer_id=cust-7", nil)
		require.Equal(t, http.StatusOK, w.Code)
		got := decodeData[[]OrderResponse](t, w)
		require.Len(t, got, 1)
		assert.Equal(t, "cust-7", got[0].CustomerID)
	})

	t.Run("list with foreign customer is empty", func(t *testing.T) {
		w := f.do(t, "GET", "/api/v1/orders?customer_id=cust-none", nil)
		require.Equal(t, http.StatusOK, w.Code)
		got := decodeData[[]OrderResponse](t, w)
		assert.Empty(t, got)
	})
}

func TestOrderHandler_Edit(t *testing.T) {
	f := newAPIFixture(t)
	p := f.addProduct(t, "Oregano 100g", 2.00, 10)

	placed := placeOrder(t, f, PlaceOrderRequest{
		CustomerName: "Eleni Vasiliou",
		Items:        []OrderItemRequest{{ProductID: p.ID.String(), Quantity: 3}},
	})

	w := f.do(t, "PUT", "/api/v1/orders/"+placed.ID, EditOrderRequest{
		Items: []OrderItemRequest{{ProductID: p.ID.String(), Quantity: 5}},
		StockDeltas: []StockDeltaRequest{
			{ProductID: p.ID.String(), Delta: -2},
		},
	})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := decodeData[OrderResponse](t, w)
	assert.Equal(t, "10", got.Total)

	stored, err := f.products.FindByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), stored.Stock)
}

func TestOrderHandler_Delete(t *testing.T) {
	f := newAPIFixture(t)
	p := f.addProduct(t, "Tahini 300g", 4.00, 8)

	placed := placeOrder(t, f, PlaceOrderRequest{
		CustomerName: "Eleni Vasiliou",
		Items:        []OrderItemRequest{{ProductID: p.ID.String(), Quantity: 3}},
	})

	w := f.do(t, "DELETE", "/api/v1/orders/"+placed.ID, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	stored, err := f.products.FindByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(8), stored.Stock, "deleting an unfulfilled order restores stock")

	w = f.do(t, "DELETE", "/api/v1/orders/"+placed.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOrderHandler_SetStatus(t *testing.T) {
	f := newAPIFixture(t)
	p := f.addProduct(t, "Rusks 700g", 3.50, 12)

	placed := placeOrder(t, f, PlaceOrderRequest{
		CustomerName: "Eleni Vasiliou",
		Items:        []OrderItemRequest{{ProductID: p.ID.String(), Quantity: 2}},
	})

	t.Run("valid transitions succeed", func(t *testing.T) {
		w := f.do(t, "POST", "/api/v1/orders/"+placed.ID+"/status", SetOrderStatusRequest{Status: "PLACED"})
		require.Equal(t, http.StatusOK, w.Code)

		w = f.do(t, "POST", "/api/v1/orders/"+placed.ID+"/status", SetOrderStatusRequest{Status: "FULFILLED"})
		require.Equal(t, http.StatusOK, w.Code)
		got := decodeData[OrderResponse](t, w)
		assert.Equal(t, "FULFILLED", got.Status)
	})

	t.Run("leaving fulfilled is rejected with 422", func(t *testing.T) {
		w := f.do(t, "POST", "/api/v1/orders/"+placed.ID+"/status", SetOrderStatusRequest{Status: "PLACED"})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, "ERR_INVALID_STATE", decodeErrorCode(t, w))
	})

	t.Run("unknown status is rejected by binding", func(t *testing.T) {
		w := f.do(t, "POST", "/api/v1/orders/"+placed.ID+"/status", map[string]any{"status": "SHIPPED"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestOrderHandler_InvoiceURL(t *testing.T) {
	f := newAPIFixture(t)
	p := f.addProduct(t, "Wine 750ml", 9.00, 6)

	placed := placeOrder(t, f, PlaceOrderRequest{
		CustomerName: "Eleni Vasiliou",
		Items:        []OrderItemRequest{{ProductID: p.ID.String(), Quantity: 1}},
	})

	t.Run("missing artifact returns 404", func(t *testing.T) {
		w := f.do(t, "GET", "/api/v1/orders/"+placed.ID+"/invoice-url", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("stored artifact yields a signed link", func(t *testing.T) {
		key := orderapp.InvoiceKey(placed.Number)
		require.NoError(t, f.artifacts.Upload(context.Background(), key, []byte("%PDF-1.4"), "application/pdf"))

		w := f.do(t, "GET", "/api/v1/orders/"+placed.ID+"/invoice-url", nil)
		require.Equal(t, http.StatusOK, w.Code)
		got := decodeData[InvoiceURLResponse](t, w)
		assert.Contains(t, got.URL, key)

		expires, err := time.Parse(time.RFC3339, got.ExpiresAt)
		require.NoError(t, err)
		assert.True(t, expires.After(time.Now()))
	})
}
