// Package catalog exposes product catalog maintenance operations.
package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/orderdesk/backend/internal/domain/catalog"
	"github.com/orderdesk/backend/internal/domain/shared"
)

// Service manages the product catalog. Stock is never mutated here; only
// order operations and drift adjustments change stock, each leaving a
// movement record behind.
type Service struct {
	products catalog.ProductRepository
	logger   *zap.Logger
}

// NewService creates a new catalog service
func NewService(products catalog.ProductRepository, logger *zap.Logger) *Service {
	return &Service{
		products: products,
		logger:   logger,
	}
}

// CreateInput describes a new product
type CreateInput struct {
	Name         string
	Price        decimal.Decimal
	InitialStock int64
}

// UpdateInput carries optional field updates for a product
type UpdateInput struct {
	Name  *string
	Price *decimal.Decimal
}

// Create validates and persists a new product
func (s *Service) Create(ctx context.Context, in CreateInput) (*catalog.Product, error) {
	product, err := catalog.NewProduct(in.Name, in.Price, in.InitialStock)
	if err != nil {
		return nil, err
	}
	if err := s.products.Save(ctx, product); err != nil {
		return nil, fmt.Errorf("save product %s: %w", product.ID, err)
	}

	s.logger.Info("Product created",
		zap.String("product_id", product.ID.String()),
		zap.String("name", product.Name),
		zap.Int64("initial_stock", product.Stock),
	)
	return product, nil
}

// Get returns one product
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	return s.products.FindByID(ctx, id)
}

// List returns a page of products. Supported filters: name, min_stock, max_stock.
func (s *Service) List(ctx context.Context, filter shared.Filter) (shared.Paginated[catalog.Product], error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	products, err := s.products.FindAll(ctx, filter)
	if err != nil {
		return shared.Paginated[catalog.Product]{}, err
	}
	total, err := s.products.Count(ctx, filter)
	if err != nil {
		return shared.Paginated[catalog.Product]{}, err
	}
	return shared.NewPaginated(products, total, filter.Page, filter.PageSize), nil
}

// Update changes a product's name or price. Stock is deliberately not
// updatable through this path.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (*catalog.Product, error) {
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		if err := product.Rename(*in.Name); err != nil {
			return nil, err
		}
	}
	if in.Price != nil {
		if err := product.SetPrice(*in.Price); err != nil {
			return nil, err
		}
	}

	if err := s.products.Save(ctx, product); err != nil {
		return nil, fmt.Errorf("save product %s: %w", product.ID, err)
	}
	return product, nil
}

// Delete removes a product from the catalog
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.products.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Product deleted", zap.String("product_id", id.String()))
	return nil
}
