package stock

import (
	"time"

	"github.com/google/uuid"
)

// StockSnapshot is the last stock value the movement recorder confirmed as
// explained for a product. The drift monitor compares it against live stock;
// any difference means a change happened without a movement being recorded.
type StockSnapshot struct {
	ProductID uuid.UUID `gorm:"type:uuid;primaryKey"`
	Stock     int64     `gorm:"not null"`
	UpdatedAt time.Time `gorm:"type:timestamptz;not null"`
}

// TableName returns the table name for GORM
func (StockSnapshot) TableName() string {
	return "stock_snapshots"
}

// NewStockSnapshot creates a snapshot for a product at the given stock level
func NewStockSnapshot(productID uuid.UUID, stock int64) *StockSnapshot {
	return &StockSnapshot{
		ProductID: productID,
		Stock:     stock,
		UpdatedAt: time.Now(),
	}
}
