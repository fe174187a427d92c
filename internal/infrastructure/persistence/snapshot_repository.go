package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/orderdesk/backend/internal/domain/shared"
	"github.com/orderdesk/backend/internal/domain/stock"
)

const snapshotBatchSize = 1000

// GormSnapshotRepository implements stock.SnapshotRepository using GORM
type GormSnapshotRepository struct {
	db *gorm.DB
}

// NewGormSnapshotRepository creates a new GormSnapshotRepository
func NewGormSnapshotRepository(db *gorm.DB) *GormSnapshotRepository {
	return &GormSnapshotRepository{db: db}
}

// FindByProduct finds the snapshot for a product
func (r *GormSnapshotRepository) FindByProduct(ctx context.Context, productID uuid.UUID) (*stock.StockSnapshot, error) {
	var snapshot stock.StockSnapshot
	if err := r.db.WithContext(ctx).First(&snapshot, "product_id = ?", productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &snapshot, nil
}

// FindAll finds all snapshots matching the filter
func (r *GormSnapshotRepository) FindAll(ctx context.Context, filter shared.Filter) ([]stock.StockSnapshot, error) {
	var snapshots []stock.StockSnapshot
	query := r.db.WithContext(ctx).Model(&stock.StockSnapshot{})

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	if filter.OrderBy != "" {
		orderDir := "ASC"
		if strings.ToLower(filter.OrderDir) == "desc" {
			orderDir = "DESC"
		}
		field := ValidateSortField(filter.OrderBy, SnapshotSortFields, "product_id")
		query = query.Order(field + " " + orderDir)
	} else {
		query = query.Order("product_id ASC")
	}

	if err := query.Find(&snapshots).Error; err != nil {
		return nil, err
	}
	return snapshots, nil
}

// Upsert inserts or replaces the snapshot for a product
func (r *GormSnapshotRepository) Upsert(ctx context.Context, snapshot *stock.StockSnapshot) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "product_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"stock", "updated_at"}),
		}).
		Create(snapshot).Error
}

// UpsertBatch inserts or replaces snapshots for many products at once
func (r *GormSnapshotRepository) UpsertBatch(ctx context.Context, snapshots []stock.StockSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "product_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"stock", "updated_at"}),
		}).
		CreateInBatches(snapshots, snapshotBatchSize).Error
}

// Ensure GormSnapshotRepository implements SnapshotRepository
var _ stock.SnapshotRepository = (*GormSnapshotRepository)(nil)
