package stock

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/orderdesk/backend/internal/domain/catalog"
	"github.com/orderdesk/backend/internal/domain/shared"
	"github.com/orderdesk/backend/internal/domain/stock"
)

const (
	// defaultScanPageSize bounds how many rows a reconciliation pass loads at once
	defaultScanPageSize = 500
	// seedBatchSize is how many missing snapshots are written per upsert
	seedBatchSize = 1000
)

// DriftMonitor compares live product stock against the last recorded
// snapshots. Stock that moved without a movement record gets an explicit
// DRIFT_ADJUSTMENT entry, so the ledger stays replayable even when writers
// outside this process touch the products table. A pass never fails the
// process: datastore errors abort it with a log line and a zero count, and
// the next scheduled pass tries again.
type DriftMonitor struct {
	products  catalog.ProductRepository
	snapshots stock.SnapshotRepository
	recorder  *MovementRecorder
	logger    *zap.Logger
	pageSize  int
}

// DriftMonitorOption configures a DriftMonitor
type DriftMonitorOption func(*DriftMonitor)

// WithScanPageSize overrides how many rows a reconciliation pass loads at once
func WithScanPageSize(n int) DriftMonitorOption {
	return func(m *DriftMonitor) {
		if n > 0 {
			m.pageSize = n
		}
	}
}

// NewDriftMonitor creates a new drift monitor
func NewDriftMonitor(
	products catalog.ProductRepository,
	snapshots stock.SnapshotRepository,
	recorder *MovementRecorder,
	logger *zap.Logger,
	opts ...DriftMonitorOption,
) *DriftMonitor {
	m := &DriftMonitor{
		products:  products,
		snapshots: snapshots,
		recorder:  recorder,
		logger:    logger,
		pageSize:  defaultScanPageSize,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// RunReconciliationPass scans all products, emits one adjustment per drifted
// product, and seeds snapshots for products that have none yet. Returns the
// number of adjustments recorded. Running it twice back to back yields zero
// on the second pass.
func (m *DriftMonitor) RunReconciliationPass(ctx context.Context) int {
	known, err := m.loadSnapshots(ctx)
	if err != nil {
		m.logger.Error("Reconciliation pass aborted while loading snapshots", zap.Error(err))
		return 0
	}

	adjustments := 0
	var toSeed []stock.StockSnapshot

	for page := 1; ; page++ {
		products, err := m.products.FindAll(ctx, shared.Filter{
			Page:     page,
			PageSize: m.pageSize,
			OrderBy:  "id",
			OrderDir: "asc",
		})
		if err != nil {
			m.logger.Error("Reconciliation pass aborted while scanning products", zap.Error(err))
			return 0
		}

		for _, product := range products {
			recorded, ok := known[product.ID]
			if !ok {
				// First sighting: seed the snapshot, no movement to emit.
				toSeed = append(toSeed, *stock.NewStockSnapshot(product.ID, product.Stock))
				if len(toSeed) >= seedBatchSize {
					m.flushSeeds(ctx, toSeed)
					toSeed = toSeed[:0]
				}
				continue
			}
			if recorded == product.Stock {
				continue
			}

			err := m.recorder.Record(ctx, RecordInput{
				ProductID:   product.ID,
				ProductName: product.Name,
				StockBefore: recorded,
				StockAfter:  product.Stock,
				Kind:        stock.MovementKindDriftAdjustment,
				ReferenceID: stock.MonitorReference,
				Reason:      "stock changed without a recorded movement",
			})
			if err != nil {
				m.logger.Warn("Failed to record drift adjustment",
					zap.String("product_id", product.ID.String()),
					zap.Int64("recorded", recorded),
					zap.Int64("live", product.Stock),
					zap.Error(err),
				)
				continue
			}
			adjustments++
		}

		if len(products) < m.pageSize {
			break
		}
	}

	if len(toSeed) > 0 {
		m.flushSeeds(ctx, toSeed)
	}

	if adjustments > 0 {
		m.logger.Info("Reconciliation pass found drift", zap.Int("adjustments", adjustments))
	} else {
		m.logger.Debug("Reconciliation pass clean")
	}
	return adjustments
}

// loadSnapshots pages through the snapshot table into a lookup map
func (m *DriftMonitor) loadSnapshots(ctx context.Context) (map[uuid.UUID]int64, error) {
	known := make(map[uuid.UUID]int64)
	for page := 1; ; page++ {
		snapshots, err := m.snapshots.FindAll(ctx, shared.Filter{
			Page:     page,
			PageSize: m.pageSize,
			OrderBy:  "product_id",
			OrderDir: "asc",
		})
		if err != nil {
			return nil, err
		}
		for _, snapshot := range snapshots {
			known[snapshot.ProductID] = snapshot.Stock
		}
		if len(snapshots) < m.pageSize {
			return known, nil
		}
	}
}

func (m *DriftMonitor) flushSeeds(ctx context.Context, seeds []stock.StockSnapshot) {
	batch := make([]stock.StockSnapshot, len(seeds))
	copy(batch, seeds)
	if err := m.snapshots.UpsertBatch(ctx, batch); err != nil {
		m.logger.Warn("Failed to seed snapshots", zap.Int("count", len(batch)), zap.Error(err))
		return
	}
	m.logger.Info("Seeded snapshots for new products", zap.Int("count", len(batch)))
}
