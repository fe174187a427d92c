package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fulfillOrder walks an order to FULFILLED and waits for the ledger sync
// task scheduled on the customer's chain.
func fulfillOrder(t *testing.T, f *apiFixture, orderID string) {
	t.Helper()
	w := f.do(t, "POST", "/api/v1/orders/"+orderID+"/status", SetOrderStatusRequest{Status: "PLACED"})
	require.Equal(t, http.StatusOK, w.Code)
	w = f.do(t, "POST", "/api/v1/orders/"+orderID+"/status", SetOrderStatusRequest{Status: "FULFILLED"})
	require.Equal(t, http.StatusOK, w.Code)

	// The sync runs asynchronously; poll until the ledger document appears.
	deadline := time.After(5 * time.Second)
	for {
		if len(f.ledgers.ledgers) > 0 {
			return
		}
		select {
		case <-deadline:
			t.Fatal("ledger sync task never ran")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestLedgerHandler_GetDebts(t *testing.T) {
	f := newAPIFixture(t)
	p := f.addProduct(t, "Honey 1kg", 12.00, 20)

	placed := placeOrder(t, f, PlaceOrderRequest{
		CustomerName: "Eleni Vasiliou",
		CustomerID:   "cust-7",
		Items:        []OrderItemRequest{{ProductID: p.ID.String(), Quantity: 3}},
	})
	fulfillOrder(t, f, placed.ID)

	w := f.do(t, "GET", "/api/v1/customers/cust-7/debts", nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decodeData[DebtLedgerResponse](t, w)

	assert.Equal(t, "cust-7", got.CustomerID)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "36", got.Items[0].Amount)
	assert.False(t, got.Items[0].Paid)
	assert.True(t, got.Owes)

	t.Run("unknown customer returns 404", func(t *testing.T) {
		w := f.do(t, "GET", "/api/v1/customers/cust-none/debts", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestLedgerHandler_SettleOrder(t *testing.T) {
	f := newAPIFixture(t)
	p := f.addProduct(t, "Honey 1kg", 12.00, 20)

	placed := placeOrder(t, f, PlaceOrderRequest{
		CustomerName: "Eleni Vasiliou",
		CustomerID:   "cust-7",
		Items:        []OrderItemRequest{{ProductID: p.ID.String(), Quantity: 1}},
	})
	fulfillOrder(t, f, placed.ID)

	ledgerDoc := f.ledgers.ledgers["cust-7"]
	require.NotNil(t, ledgerDoc)
	orderID := ledgerDoc.Items[0].ID

	w := f.do(t, "POST", "/api/v1/customers/cust-7/debts/"+orderID+"/settle", nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = f.do(t, "GET", "/api/v1/customers/cust-7/debts", nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decodeData[DebtLedgerResponse](t, w)
	require.Len(t, got.Items, 1)
	assert.True(t, got.Items[0].Paid)
	assert.False(t, got.Owes)

	t.Run("settling for an unknown customer returns 404", func(t *testing.T) {
		w := f.do(t, "POST", "/api/v1/customers/cust-none/debts/some-order/settle", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
