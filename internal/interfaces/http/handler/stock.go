package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	stockapp "github.com/orderdesk/backend/internal/application/stock"
	"github.com/orderdesk/backend/internal/domain/shared"
	"github.com/orderdesk/backend/internal/domain/stock"
	"github.com/orderdesk/backend/internal/interfaces/http/dto"
)

// StockHandler exposes the movement ledger, snapshots, and reconciliation
type StockHandler struct {
	BaseHandler
	recorder  *stockapp.MovementRecorder
	monitor   *stockapp.DriftMonitor
	snapshots stock.SnapshotRepository
}

// NewStockHandler creates a new StockHandler
func NewStockHandler(
	recorder *stockapp.MovementRecorder,
	monitor *stockapp.DriftMonitor,
	snapshots stock.SnapshotRepository,
) *StockHandler {
	return &StockHandler{
		recorder:  recorder,
		monitor:   monitor,
		snapshots: snapshots,
	}
}

// RegisterRoutes registers stock routes on the API group
func (h *StockHandler) RegisterRoutes(rg *gin.RouterGroup) {
	st := rg.Group("/stock")
	{
		st.GET("/movements", h.ListMovements)
		st.POST("/movements/:id/review", h.MarkReviewed)
		st.GET("/snapshots/:product_id", h.GetSnapshot)
		st.POST("/reconcile", h.Reconcile)
	}
}

// MovementResponse represents a stock movement in API responses
type MovementResponse struct {
	ID          string `json:"id"`
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Delta       int64  `json:"delta"`
	StockBefore int64  `json:"stock_before"`
	StockAfter  int64  `json:"stock_after"`
	Kind        string `json:"kind"`
	ReferenceID string `json:"reference_id"`
	Reason      string `json:"reason,omitempty"`
	Reviewed    bool   `json:"reviewed"`
	OccurredAt  string `json:"occurred_at"`
}

// SnapshotResponse represents a stock snapshot in API responses
type SnapshotResponse struct {
	ProductID string `json:"product_id"`
	Stock     int64  `json:"stock"`
	UpdatedAt string `json:"updated_at"`
}

// ReconcileResponse reports the outcome of a forced reconciliation pass
type ReconcileResponse struct {
	Adjustments int `json:"adjustments"`
}

func toMovementResponse(m *stock.Movement) MovementResponse {
	return MovementResponse{
		ID:          m.ID.String(),
		ProductID:   m.ProductID.String(),
		ProductName: m.ProductName,
		Delta:       m.Delta,
		StockBefore: m.StockBefore,
		StockAfter:  m.StockAfter,
		Kind:        m.Kind.String(),
		ReferenceID: m.ReferenceID,
		Reason:      m.Reason,
		Reviewed:    m.Reviewed,
		OccurredAt:  m.OccurredAt.UTC().Format(time.RFC3339),
	}
}

// ListMovements returns a page of the movement ledger, newest first
func (h *StockHandler) ListMovements(c *gin.Context) {
	list := dto.DefaultListRequest()
	if err := c.ShouldBindQuery(&list); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	filter := shared.Filter{
		Page:     list.Page,
		PageSize: list.PageSize,
		Filters:  map[string]interface{}{},
	}
	if productID := c.Query("product_id"); productID != "" {
		id, err := uuid.Parse(productID)
		if err != nil {
			h.BadRequest(c, "Invalid product ID format")
			return
		}
		filter.Filters["product_id"] = id
	}
	if kind := c.Query("kind"); kind != "" {
		if !stock.MovementKind(kind).IsValid() {
			h.BadRequest(c, "Unknown movement kind")
			return
		}
		filter.Filters["kind"] = kind
	}
	if reviewed := c.Query("reviewed"); reviewed != "" {
		filter.Filters["reviewed"] = reviewed == "true"
	}

	page, err := h.recorder.History(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	items := make([]MovementResponse, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, toMovementResponse(&page.Items[i]))
	}
	h.SuccessWithMeta(c, items, page.Total, page.Page, page.PageSize)
}

// MarkReviewed flags a movement as inspected by an operator
func (h *StockHandler) MarkReviewed(c *gin.Context) {
	movementID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid movement ID format")
		return
	}

	if err := h.recorder.MarkReviewed(c.Request.Context(), movementID); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}

// GetSnapshot returns the last recorded stock level for a product
func (h *StockHandler) GetSnapshot(c *gin.Context) {
	productID, err := uuid.Parse(c.Param("product_id"))
	if err != nil {
		h.BadRequest(c, "Invalid product ID format")
		return
	}

	snapshot, err := h.snapshots.FindByProduct(c.Request.Context(), productID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, SnapshotResponse{
		ProductID: snapshot.ProductID.String(),
		Stock:     snapshot.Stock,
		UpdatedAt: snapshot.UpdatedAt.UTC().Format(time.RFC3339),
	})
}

// Reconcile runs one reconciliation pass immediately
func (h *StockHandler) Reconcile(c *gin.Context) {
	adjustments := h.monitor.RunReconciliationPass(c.Request.Context())
	h.Success(c, ReconcileResponse{Adjustments: adjustments})
}
