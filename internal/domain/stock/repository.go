package stock

import (
	"context"

	"github.com/google/uuid"
	"github.com/orderdesk/backend/internal/domain/shared"
)

// MovementRepository defines persistence operations for the movement ledger.
// The ledger is append-only; the only permitted update is the Reviewed flag.
type MovementRepository interface {
	Append(ctx context.Context, movement *Movement) error
	FindByID(ctx context.Context, id uuid.UUID) (*Movement, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]Movement, error)
	Count(ctx context.Context, filter shared.Filter) (int64, error)
	SetReviewed(ctx context.Context, id uuid.UUID) error
}

// SnapshotRepository defines persistence operations for stock snapshots
type SnapshotRepository interface {
	FindByProduct(ctx context.Context, productID uuid.UUID) (*StockSnapshot, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]StockSnapshot, error)
	Upsert(ctx context.Context, snapshot *StockSnapshot) error
	UpsertBatch(ctx context.Context, snapshots []StockSnapshot) error
}
