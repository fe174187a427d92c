package stock

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/orderdesk/backend/internal/domain/shared"
	"github.com/orderdesk/backend/internal/domain/stock"
)

// MovementRecorder appends movement records and keeps the snapshot table in
// step with them. It is called only after the product row change has already
// been committed; a recording failure is therefore never a reason to undo
// the stock change. Callers log the error and move on, and the drift monitor
// later surfaces the gap as a DRIFT_ADJUSTMENT.
type MovementRecorder struct {
	movements stock.MovementRepository
	snapshots stock.SnapshotRepository
	logger    *zap.Logger
}

// NewMovementRecorder creates a new movement recorder
func NewMovementRecorder(
	movements stock.MovementRepository,
	snapshots stock.SnapshotRepository,
	logger *zap.Logger,
) *MovementRecorder {
	return &MovementRecorder{
		movements: movements,
		snapshots: snapshots,
		logger:    logger,
	}
}

// RecordInput describes one confirmed stock change
type RecordInput struct {
	ProductID   uuid.UUID
	ProductName string
	StockBefore int64
	StockAfter  int64
	Kind        stock.MovementKind
	ReferenceID string
	Reason      string
}

// Record appends a movement for the change and advances the product's
// snapshot to the new stock level.
func (r *MovementRecorder) Record(ctx context.Context, in RecordInput) error {
	movement, err := stock.NewMovement(
		in.ProductID, in.ProductName,
		in.StockBefore, in.StockAfter,
		in.Kind, in.ReferenceID,
	)
	if err != nil {
		return err
	}
	if in.Reason != "" {
		movement.WithReason(in.Reason)
	}

	if err := r.movements.Append(ctx, movement); err != nil {
		return fmt.Errorf("append movement: %w", err)
	}

	if err := r.snapshots.Upsert(ctx, stock.NewStockSnapshot(in.ProductID, in.StockAfter)); err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}

	r.logger.Debug("Movement recorded",
		zap.String("product_id", in.ProductID.String()),
		zap.String("kind", in.Kind.String()),
		zap.Int64("delta", movement.Delta),
		zap.String("reference_id", in.ReferenceID),
	)
	return nil
}

// History returns a page of the movement ledger, newest first. Supported
// filters: product_id, kind, reviewed.
func (r *MovementRecorder) History(ctx context.Context, filter shared.Filter) (shared.Paginated[stock.Movement], error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if filter.OrderBy == "" {
		filter.OrderBy = "occurred_at"
		filter.OrderDir = "desc"
	}

	movements, err := r.movements.FindAll(ctx, filter)
	if err != nil {
		return shared.Paginated[stock.Movement]{}, err
	}
	total, err := r.movements.Count(ctx, filter)
	if err != nil {
		return shared.Paginated[stock.Movement]{}, err
	}

	return shared.NewPaginated(movements, total, filter.Page, filter.PageSize), nil
}

// MarkReviewed flags a movement as inspected by an operator
func (r *MovementRecorder) MarkReviewed(ctx context.Context, movementID uuid.UUID) error {
	return r.movements.SetReviewed(ctx, movementID)
}
