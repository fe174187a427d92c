package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	ledgerapp "github.com/orderdesk/backend/internal/application/ledger"
	"github.com/orderdesk/backend/internal/domain/ledger"
	"github.com/orderdesk/backend/internal/infrastructure/queue"
)

// LedgerHandler exposes customer debt ledgers
type LedgerHandler struct {
	BaseHandler
	ledgerService *ledgerapp.Service
	tasks         *queue.KeyedSerializer
}

// NewLedgerHandler creates a new LedgerHandler
func NewLedgerHandler(ledgerService *ledgerapp.Service, tasks *queue.KeyedSerializer) *LedgerHandler {
	return &LedgerHandler{
		ledgerService: ledgerService,
		tasks:         tasks,
	}
}

// RegisterRoutes registers ledger routes on the API group
func (h *LedgerHandler) RegisterRoutes(rg *gin.RouterGroup) {
	customers := rg.Group("/customers")
	{
		customers.GET("/:customer_id/debts", h.GetDebts)
		customers.POST("/:customer_id/debts/:order_id/settle", h.SettleOrder)
	}
}

// DebtItemResponse is one ledger line in API responses
type DebtItemResponse struct {
	ID     string `json:"id"`
	Kind   string `json:"kind"`
	Amount string `json:"amount"`
	Paid   bool   `json:"paid"`
	Date   string `json:"date"`
	Notes  string `json:"notes,omitempty"`
}

// DebtLedgerResponse represents a customer's debt ledger document
type DebtLedgerResponse struct {
	CustomerID string             `json:"customer_id"`
	Items      []DebtItemResponse `json:"items"`
	Owes       bool               `json:"owes"`
	UpdatedAt  string             `json:"updated_at"`
}

func toDebtLedgerResponse(l *ledger.CustomerDebtLedger) DebtLedgerResponse {
	items := make([]DebtItemResponse, 0, len(l.Items))
	for _, item := range l.Items {
		items = append(items, DebtItemResponse{
			ID:     item.ID,
			Kind:   item.Kind,
			Amount: item.Amount.String(),
			Paid:   item.Paid,
			Date:   item.Date.UTC().Format(time.RFC3339),
			Notes:  item.Notes,
		})
	}
	return DebtLedgerResponse{
		CustomerID: l.CustomerID,
		Items:      items,
		Owes:       l.Owes(),
		UpdatedAt:  l.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// GetDebts returns the debt ledger for a customer
func (h *LedgerHandler) GetDebts(c *gin.Context) {
	customerID := c.Param("customer_id")
	if customerID == "" {
		h.BadRequest(c, "Customer ID is required")
		return
	}

	l, err := h.ledgerService.Get(c.Request.Context(), customerID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toDebtLedgerResponse(l))
}

// SettleOrder marks the debt line for an order as paid. The mutation runs on
// the customer's serializer chain so it cannot interleave with ledger syncs.
func (h *LedgerHandler) SettleOrder(c *gin.Context) {
	customerID := c.Param("customer_id")
	orderID := c.Param("order_id")
	if customerID == "" || orderID == "" {
		h.BadRequest(c, "Customer ID and order ID are required")
		return
	}

	handle := h.tasks.Enqueue(customerID, func(ctx context.Context) error {
		return h.ledgerService.SettleOrder(ctx, customerID, orderID)
	})

	select {
	case <-handle.Done():
		if err := handle.Err(); err != nil {
			h.HandleDomainError(c, err)
			return
		}
	case <-c.Request.Context().Done():
		h.InternalError(c, "Request cancelled while settling debt")
		return
	}

	h.NoContent(c)
}
