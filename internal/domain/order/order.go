package order

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/orderdesk/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// OrderStatus represents where an order is in its lifecycle
type OrderStatus string

const (
	// OrderStatusRequested means the order was received but not yet confirmed
	OrderStatusRequested OrderStatus = "REQUESTED"
	// OrderStatusPlaced means the order is confirmed and stock is committed
	OrderStatusPlaced OrderStatus = "PLACED"
	// OrderStatusFulfilled means the goods were handed over; terminal
	OrderStatusFulfilled OrderStatus = "FULFILLED"
)

// String returns the string representation of OrderStatus
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid returns true if the status is known
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusRequested, OrderStatusPlaced, OrderStatusFulfilled:
		return true
	}
	return false
}

// CanTransitionTo returns true if the status transition is allowed
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	switch s {
	case OrderStatusRequested:
		return target == OrderStatusPlaced
	case OrderStatusPlaced:
		return target == OrderStatusFulfilled
	case OrderStatusFulfilled:
		return false
	}
	return false
}

// OrderItem is a point-in-time copy of a product line. Name and price are
// denormalized so later catalog changes do not rewrite order history.
type OrderItem struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// NewOrderItem creates an order line, computing its subtotal
func NewOrderItem(productID uuid.UUID, name string, quantity int64, unitPrice decimal.Decimal) (OrderItem, error) {
	if productID == uuid.Nil {
		return OrderItem{}, shared.NewDomainError("INVALID_INPUT", "Product ID cannot be empty")
	}
	if quantity <= 0 {
		return OrderItem{}, shared.NewDomainError("INVALID_INPUT", "Quantity must be positive")
	}
	if unitPrice.IsNegative() {
		return OrderItem{}, shared.NewDomainError("INVALID_INPUT", "Unit price cannot be negative")
	}

	return OrderItem{
		ProductID: productID,
		Name:      name,
		Quantity:  quantity,
		UnitPrice: unitPrice,
		Subtotal:  unitPrice.Mul(decimal.NewFromInt(quantity)),
	}, nil
}

// Order is the aggregate root for a customer order
type Order struct {
	shared.BaseEntity
	Number       string                         `gorm:"type:varchar(30);not null;uniqueIndex"`
	CustomerName string                         `gorm:"type:varchar(200);not null"`
	CustomerID   string                         `gorm:"type:varchar(50);index"`
	BusinessName string                         `gorm:"type:varchar(200)"`
	Items        datatypes.JSONSlice[OrderItem] `gorm:"not null"`
	Total        decimal.Decimal                `gorm:"type:decimal(18,4);not null"`
	Status       OrderStatus                    `gorm:"type:varchar(20);not null;index"`
	PlacedAt     time.Time                      `gorm:"type:timestamptz;not null"`
}

// TableName returns the table name for GORM
func (Order) TableName() string {
	return "orders"
}

// NewOrder creates an order from validated items
func NewOrder(number, customerName, customerID, businessName string, items []OrderItem) (*Order, error) {
	if number == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Order number cannot be empty")
	}
	customerName = strings.TrimSpace(customerName)
	if customerName == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Customer name cannot be empty")
	}
	if len(items) == 0 {
		return nil, shared.NewDomainError("INVALID_INPUT", "Order must contain at least one item")
	}

	o := &Order{
		BaseEntity:   shared.NewBaseEntity(),
		Number:       number,
		CustomerName: customerName,
		CustomerID:   customerID,
		BusinessName: businessName,
		Items:        items,
		Total:        sumItems(items),
		Status:       OrderStatusRequested,
		PlacedAt:     time.Now(),
	}
	return o, nil
}

// ReplaceItems overwrites the order lines and recomputes the total
func (o *Order) ReplaceItems(items []OrderItem) error {
	if len(items) == 0 {
		return shared.NewDomainError("INVALID_INPUT", "Order must contain at least one item")
	}
	o.Items = items
	o.Total = sumItems(items)
	o.Touch()
	return nil
}

// TransitionTo moves the order to a new status, enforcing the lifecycle
func (o *Order) TransitionTo(target OrderStatus) error {
	if !target.IsValid() {
		return shared.NewDomainError("INVALID_INPUT", "Unknown order status")
	}
	if !o.Status.CanTransitionTo(target) {
		return shared.NewDomainError("INVALID_STATE",
			"Cannot transition order from "+o.Status.String()+" to "+target.String())
	}
	o.Status = target
	o.Touch()
	return nil
}

// RestoresStockOnDelete reports whether deleting this order should return
// its quantities to stock. Fulfilled orders already left the warehouse.
func (o *Order) RestoresStockOnDelete() bool {
	return o.Status != OrderStatusFulfilled
}

func sumItems(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal)
	}
	return total
}
