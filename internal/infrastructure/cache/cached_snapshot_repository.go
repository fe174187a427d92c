package cache

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/orderdesk/backend/internal/domain/shared"
	"github.com/orderdesk/backend/internal/domain/stock"
)

// CachedSnapshotRepository decorates a SnapshotRepository with a read-through
// cache on FindByProduct. Writes go to the repository first; the cache is only
// updated after the write succeeds, so it never gets ahead of the database.
type CachedSnapshotRepository struct {
	inner  stock.SnapshotRepository
	cache  SnapshotCache
	logger *zap.Logger
}

// NewCachedSnapshotRepository wraps a snapshot repository with a cache
func NewCachedSnapshotRepository(inner stock.SnapshotRepository, cache SnapshotCache, logger *zap.Logger) *CachedSnapshotRepository {
	return &CachedSnapshotRepository{inner: inner, cache: cache, logger: logger}
}

// FindByProduct returns the snapshot from cache when possible, falling back
// to the repository and populating the cache on a miss.
func (r *CachedSnapshotRepository) FindByProduct(ctx context.Context, productID uuid.UUID) (*stock.StockSnapshot, error) {
	if snapshot, hit, err := r.cache.Get(ctx, productID); err == nil && hit {
		return snapshot, nil
	} else if err != nil {
		r.logger.Warn("snapshot cache read failed",
			zap.String("product_id", productID.String()),
			zap.Error(err))
	}

	snapshot, err := r.inner.FindByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	if err := r.cache.Set(ctx, snapshot); err != nil {
		r.logger.Warn("snapshot cache write failed",
			zap.String("product_id", productID.String()),
			zap.Error(err))
	}
	return snapshot, nil
}

// FindAll bypasses the cache; reconciliation scans want repository truth.
func (r *CachedSnapshotRepository) FindAll(ctx context.Context, filter shared.Filter) ([]stock.StockSnapshot, error) {
	return r.inner.FindAll(ctx, filter)
}

// Upsert writes through to the repository and refreshes the cache
func (r *CachedSnapshotRepository) Upsert(ctx context.Context, snapshot *stock.StockSnapshot) error {
	if err := r.inner.Upsert(ctx, snapshot); err != nil {
		return err
	}
	if err := r.cache.Set(ctx, snapshot); err != nil {
		r.logger.Warn("snapshot cache refresh failed",
			zap.String("product_id", snapshot.ProductID.String()),
			zap.Error(err))
	}
	return nil
}

// UpsertBatch writes through to the repository and invalidates affected entries
func (r *CachedSnapshotRepository) UpsertBatch(ctx context.Context, snapshots []stock.StockSnapshot) error {
	if err := r.inner.UpsertBatch(ctx, snapshots); err != nil {
		return err
	}
	for i := range snapshots {
		if err := r.cache.Invalidate(ctx, snapshots[i].ProductID); err != nil {
			r.logger.Warn("snapshot cache invalidation failed",
				zap.String("product_id", snapshots[i].ProductID.String()),
				zap.Error(err))
		}
	}
	return nil
}

// Ensure CachedSnapshotRepository implements SnapshotRepository
var _ stock.SnapshotRepository = (*CachedSnapshotRepository)(nil)
