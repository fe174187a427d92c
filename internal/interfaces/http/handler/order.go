package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	orderapp "github.com/orderdesk/backend/internal/application/order"
	"github.com/orderdesk/backend/internal/domain/order"
	"github.com/orderdesk/backend/internal/domain/shared"
	"github.com/orderdesk/backend/internal/interfaces/http/dto"
)

// invoiceURLExpiration bounds how long a generated invoice link stays valid
const invoiceURLExpiration = 15 * time.Minute

// OrderHandler handles the order lifecycle endpoints
type OrderHandler struct {
	BaseHandler
	orderService *orderapp.Service
	artifacts    orderapp.ArtifactStore
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orderService *orderapp.Service, artifacts orderapp.ArtifactStore) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		artifacts:    artifacts,
	}
}

// RegisterRoutes registers order routes on the API group
func (h *OrderHandler) RegisterRoutes(rg *gin.RouterGroup) {
	orders := rg.Group("/orders")
	{
		orders.POST("", h.Place)
		orders.GET("", h.List)
		orders.GET("/:id", h.GetByID)
		orders.PUT("/:id", h.Edit)
		orders.DELETE("/:id", h.Delete)
		orders.POST("/:id/status", h.SetStatus)
		orders.GET("/:id/invoice-url", h.InvoiceURL)
	}
}

// OrderItemRequest is one requested order line
type OrderItemRequest struct {
	ProductID     string           `json:"product_id" binding:"required,uuid"`
	Quantity      int64            `json:"quantity" binding:"required,min=1"`
	UnitPrice     *decimal.Decimal `json:"unit_price"`
	PriceOverride *decimal.Decimal `json:"price_override"`
}

// PlaceOrderRequest represents a request to place a new order
type PlaceOrderRequest struct {
	CustomerName string             `json:"customer_name" binding:"required,min=1,max=200"`
	CustomerID   string             `json:"customer_id" binding:"max=50"`
	BusinessName string             `json:"business_name" binding:"max=200"`
	Items        []OrderItemRequest `json:"items" binding:"required,min=1,dive"`
}

// StockDeltaRequest is one caller-computed stock change for an order edit
type StockDeltaRequest struct {
	ProductID string `json:"product_id" binding:"required,uuid"`
	Delta     int64  `json:"delta" binding:"required"`
}

// EditOrderRequest represents a request to replace an order's lines
type EditOrderRequest struct {
	Items       []OrderItemRequest  `json:"items" binding:"required,min=1,dive"`
	StockDeltas []StockDeltaRequest `json:"stock_deltas" binding:"dive"`
}

// SetOrderStatusRequest represents a status transition request
type SetOrderStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=REQUESTED PLACED FULFILLED"`
}

// OrderItemResponse is one order line in API responses
type OrderItemResponse struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int64  `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	Subtotal  string `json:"subtotal"`
}

// OrderResponse represents an order in API responses
type OrderResponse struct {
	ID           string              `json:"id"`
	Number       string              `json:"number"`
	CustomerName string              `json:"customer_name"`
	CustomerID   string              `json:"customer_id,omitempty"`
	BusinessName string              `json:"business_name,omitempty"`
	Items        []OrderItemResponse `json:"items"`
	Total        string              `json:"total"`
	Status       string              `json:"status"`
	PlacedAt     string              `json:"placed_at"`
}

// InvoiceURLResponse carries a presigned invoice download link
type InvoiceURLResponse struct {
	URL       string `json:"url"`
	ExpiresAt string `json:"expires_at"`
}

func toOrderResponse(o *order.Order) OrderResponse {
	items := make([]OrderItemResponse, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, OrderItemResponse{
			ProductID: item.ProductID.String(),
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice.String(),
			Subtotal:  item.Subtotal.String(),
		})
	}
	return OrderResponse{
		ID:           o.ID.String(),
		Number:       o.Number,
		CustomerName: o.CustomerName,
		CustomerID:   o.CustomerID,
		BusinessName: o.BusinessName,
		Items:        items,
		Total:        o.Total.String(),
		Status:       o.Status.String(),
		PlacedAt:     o.PlacedAt.UTC().Format(time.RFC3339),
	}
}

func toItemInputs(reqs []OrderItemRequest) ([]orderapp.ItemInput, bool) {
	items := make([]orderapp.ItemInput, 0, len(reqs))
	for _, it := range reqs {
		productID, err := uuid.Parse(it.ProductID)
		if err != nil {
			return nil, false
		}
		items = append(items, orderapp.ItemInput{
			ProductID:     productID,
			Quantity:      it.Quantity,
			UnitPrice:     it.UnitPrice,
			PriceOverride: it.PriceOverride,
		})
	}
	return items, true
}

// Place creates a new order, committing stock for every line
func (h *OrderHandler) Place(c *gin.Context) {
	var req PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	items, ok := toItemInputs(req.Items)
	if !ok {
		h.BadRequest(c, "Invalid product ID format")
		return
	}

	o, err := h.orderService.Place(c.Request.Context(), orderapp.PlaceInput{
		CustomerName: req.CustomerName,
		CustomerID:   req.CustomerID,
		BusinessName: req.BusinessName,
		Items:        items,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, toOrderResponse(o))
}

// GetByID returns one order
func (h *OrderHandler) GetByID(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid order ID format")
		return
	}

	o, err := h.orderService.Get(c.Request.Context(), orderID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toOrderResponse(o))
}

// List returns a page of orders
func (h *OrderHandler) List(c *gin.Context) {
	list := dto.DefaultListRequest()
	if err := c.ShouldBindQuery(&list); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	filter := shared.Filter{
		Page:     list.Page,
		PageSize: list.PageSize,
		OrderBy:  list.OrderBy,
		OrderDir: list.OrderDir,
		Filters:  map[string]interface{}{},
	}
	if status := c.Query("status"); status != "" {
		filter.Filters["status"] = status
	}
	if customerID := c.Query("customer_id"); customerID != "" {
		filter.Filters["customer_id"] = customerID
	}

	page, err := h.orderService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	items := make([]OrderResponse, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, toOrderResponse(&page.Items[i]))
	}
	h.SuccessWithMeta(c, items, page.Total, page.Page, page.PageSize)
}

// Edit replaces an order's lines and applies the submitted stock deltas
func (h *OrderHandler) Edit(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid order ID format")
		return
	}

	var req EditOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	items, ok := toItemInputs(req.Items)
	if !ok {
		h.BadRequest(c, "Invalid product ID format")
		return
	}

	deltas := make([]orderapp.StockDelta, 0, len(req.StockDeltas))
	for _, d := range req.StockDeltas {
		productID, err := uuid.Parse(d.ProductID)
		if err != nil {
			h.BadRequest(c, "Invalid product ID format")
			return
		}
		deltas = append(deltas, orderapp.StockDelta{ProductID: productID, Delta: d.Delta})
	}

	o, err := h.orderService.Edit(c.Request.Context(), orderID, orderapp.EditInput{
		Items:       items,
		StockDeltas: deltas,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toOrderResponse(o))
}

// Delete removes an order, restoring stock unless it was fulfilled
func (h *OrderHandler) Delete(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid order ID format")
		return
	}

	if err := h.orderService.Delete(c.Request.Context(), orderID); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}

// SetStatus advances the order through its lifecycle
func (h *OrderHandler) SetStatus(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid order ID format")
		return
	}

	var req SetOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	o, err := h.orderService.SetStatus(c.Request.Context(), orderID, order.OrderStatus(req.Status))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toOrderResponse(o))
}

// InvoiceURL issues a presigned download link for the order's invoice
func (h *OrderHandler) InvoiceURL(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid order ID format")
		return
	}

	o, err := h.orderService.Get(c.Request.Context(), orderID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	key := orderapp.InvoiceKey(o.Number)
	exists, err := h.artifacts.ObjectExists(c.Request.Context(), key)
	if err != nil {
		h.InternalError(c, "Failed to check invoice artifact")
		return
	}
	if !exists {
		h.NotFound(c, "No invoice stored for this order")
		return
	}

	url, expiresAt, err := h.artifacts.GenerateDownloadURL(c.Request.Context(), key, invoiceURLExpiration)
	if err != nil {
		h.InternalError(c, "Failed to generate invoice URL")
		return
	}

	h.Success(c, InvoiceURLResponse{
		URL:       url,
		ExpiresAt: expiresAt.UTC().Format(time.RFC3339),
	})
}
