package catalog

import (
	"fmt"
	"strings"

	"github.com/orderdesk/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Product represents a sellable good in the distributor's catalog.
// Stock is the authoritative quantity on hand; every change to it must be
// accompanied by a movement record explaining the change.
type Product struct {
	shared.BaseEntity
	Name  string          `gorm:"type:varchar(200);not null;index"`
	Price decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Stock int64           `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (Product) TableName() string {
	return "products"
}

// NewProduct creates a new product
func NewProduct(name string, price decimal.Decimal, stock int64) (*Product, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Product name cannot be empty")
	}
	if price.IsNegative() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Product price cannot be negative")
	}
	if stock < 0 {
		return nil, shared.NewDomainError("INVALID_INPUT", "Product stock cannot be negative")
	}

	return &Product{
		BaseEntity: shared.NewBaseEntity(),
		Name:       name,
		Price:      price,
		Stock:      stock,
	}, nil
}

// DecreaseStock removes quantity units from stock. It rejects the change
// outright when stock would go negative, reporting the shortfall.
func (p *Product) DecreaseStock(quantity int64) error {
	if quantity <= 0 {
		return shared.NewDomainError("INVALID_INPUT", "Quantity must be positive")
	}
	if p.Stock < quantity {
		return shared.NewDomainError("STOCK_CONFLICT",
			fmt.Sprintf("Insufficient stock for product %q: have %d, need %d (short %d)",
				p.Name, p.Stock, quantity, quantity-p.Stock))
	}
	p.Stock -= quantity
	p.Touch()
	return nil
}

// IncreaseStock returns quantity units to stock
func (p *Product) IncreaseStock(quantity int64) error {
	if quantity <= 0 {
		return shared.NewDomainError("INVALID_INPUT", "Quantity must be positive")
	}
	p.Stock += quantity
	p.Touch()
	return nil
}

// ApplyStockDelta applies a signed stock change. Negative deltas are bounded
// by available stock; positive deltas always apply.
func (p *Product) ApplyStockDelta(delta int64) error {
	if delta == 0 {
		return shared.NewDomainError("INVALID_INPUT", "Stock delta cannot be zero")
	}
	if delta < 0 {
		return p.DecreaseStock(-delta)
	}
	return p.IncreaseStock(delta)
}

// Rename changes the product's display name
func (p *Product) Rename(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewDomainError("INVALID_INPUT", "Product name cannot be empty")
	}
	p.Name = name
	p.Touch()
	return nil
}

// SetPrice updates the catalog price
func (p *Product) SetPrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return shared.NewDomainError("INVALID_INPUT", "Product price cannot be negative")
	}
	p.Price = price
	p.Touch()
	return nil
}
