package stock

import (
	"time"

	"github.com/google/uuid"
	"github.com/orderdesk/backend/internal/domain/shared"
)

// MovementKind classifies why stock changed
type MovementKind string

const (
	// MovementKindSale records stock leaving for a placed order
	MovementKindSale MovementKind = "SALE"
	// MovementKindOrderEdit records an incremental change from editing an order
	MovementKindOrderEdit MovementKind = "ORDER_EDIT"
	// MovementKindOrderDeleteRestore records stock returned when an order is deleted
	MovementKindOrderDeleteRestore MovementKind = "ORDER_DELETE_RESTORE"
	// MovementKindDriftAdjustment records an unexplained difference found by reconciliation
	MovementKindDriftAdjustment MovementKind = "DRIFT_ADJUSTMENT"
)

// String returns the string representation of MovementKind
func (k MovementKind) String() string {
	return string(k)
}

// IsValid returns true if the movement kind is known
func (k MovementKind) IsValid() bool {
	switch k {
	case MovementKindSale,
		MovementKindOrderEdit,
		MovementKindOrderDeleteRestore,
		MovementKindDriftAdjustment:
		return true
	}
	return false
}

// MonitorReference is the reference ID stamped on movements emitted by the
// drift monitor rather than by an order operation.
const MonitorReference = "MONITOR"

// Movement is an immutable record of a single stock change. Once appended it
// is never modified, except for the Reviewed flag which an operator may set
// after inspecting a drift adjustment.
type Movement struct {
	shared.BaseEntity
	ProductID   uuid.UUID    `gorm:"type:uuid;not null;index:idx_movement_product_time,priority:1"`
	ProductName string       `gorm:"type:varchar(200);not null"` // denormalized so the ledger survives product deletion
	Delta       int64        `gorm:"not null"`
	StockBefore int64        `gorm:"not null"`
	StockAfter  int64        `gorm:"not null"`
	Kind        MovementKind `gorm:"type:varchar(30);not null;index:idx_movement_kind"`
	ReferenceID string       `gorm:"type:varchar(50);not null;index:idx_movement_reference"`
	Reason      string       `gorm:"type:varchar(255)"`
	Reviewed    bool         `gorm:"not null;default:false"`
	OccurredAt  time.Time    `gorm:"type:timestamptz;not null;index:idx_movement_product_time,priority:2"`
}

// TableName returns the table name for GORM
func (Movement) TableName() string {
	return "stock_movements"
}

// NewMovement creates a new movement record
func NewMovement(
	productID uuid.UUID,
	productName string,
	stockBefore, stockAfter int64,
	kind MovementKind,
	referenceID string,
) (*Movement, error) {
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "Product ID cannot be empty")
	}
	if productName == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Product name cannot be empty")
	}
	if !kind.IsValid() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Invalid movement kind")
	}
	if referenceID == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Reference ID cannot be empty")
	}
	if stockBefore == stockAfter {
		return nil, shared.NewDomainError("INVALID_INPUT", "Movement must change stock")
	}

	return &Movement{
		BaseEntity:  shared.NewBaseEntity(),
		ProductID:   productID,
		ProductName: productName,
		Delta:       stockAfter - stockBefore,
		StockBefore: stockBefore,
		StockAfter:  stockAfter,
		Kind:        kind,
		ReferenceID: referenceID,
		OccurredAt:  time.Now(),
	}, nil
}

// WithReason attaches a free-form explanation to the movement
func (m *Movement) WithReason(reason string) *Movement {
	m.Reason = reason
	return m
}

// MarkReviewed flags the movement as inspected by an operator
func (m *Movement) MarkReviewed() {
	m.Reviewed = true
	m.Touch()
}

// IsIncrease returns true if the movement added stock
func (m *Movement) IsIncrease() bool {
	return m.Delta > 0
}
