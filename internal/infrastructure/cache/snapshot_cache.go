package cache

import (
	"context"

	"github.com/google/uuid"

	"github.com/orderdesk/backend/internal/domain/stock"
)

// SnapshotCache is a read-through cache for stock snapshots. A miss is not an
// error; callers fall back to the repository.
type SnapshotCache interface {
	Get(ctx context.Context, productID uuid.UUID) (*stock.StockSnapshot, bool, error)
	Set(ctx context.Context, snapshot *stock.StockSnapshot) error
	Invalidate(ctx context.Context, productID uuid.UUID) error
	Close() error
}
