package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	appledger "github.com/orderdesk/backend/internal/application/ledger"
	appstock "github.com/orderdesk/backend/internal/application/stock"
	"github.com/orderdesk/backend/internal/domain/catalog"
	"github.com/orderdesk/backend/internal/domain/order"
	"github.com/orderdesk/backend/internal/domain/shared"
	"github.com/orderdesk/backend/internal/domain/stock"
	"github.com/orderdesk/backend/internal/infrastructure/queue"
)

// ArtifactStore abstracts the object storage holding rendered invoice
// documents. Implemented by the S3-compatible storage in infrastructure.
type ArtifactStore interface {
	Upload(ctx context.Context, storageKey string, data []byte, contentType string) error
	DeleteObject(ctx context.Context, storageKey string) error
	ObjectExists(ctx context.Context, storageKey string) (bool, error)
	GenerateDownloadURL(ctx context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error)
}

// Service orchestrates the order lifecycle: placement, edits, deletion and
// status changes, with stock kept consistent through the movement recorder.
// Debt ledger work runs on the keyed serializer so writes for one customer
// never interleave.
type Service struct {
	orders    order.Repository
	products  catalog.ProductRepository
	recorder  *appstock.MovementRecorder
	debts     *appledger.Service
	tasks     *queue.KeyedSerializer
	artifacts ArtifactStore
	node      *snowflake.Node
	logger    *zap.Logger
}

// NewService creates a new order service
func NewService(
	orders order.Repository,
	products catalog.ProductRepository,
	recorder *appstock.MovementRecorder,
	debts *appledger.Service,
	tasks *queue.KeyedSerializer,
	artifacts ArtifactStore,
	node *snowflake.Node,
	logger *zap.Logger,
) *Service {
	return &Service{
		orders:    orders,
		products:  products,
		recorder:  recorder,
		debts:     debts,
		tasks:     tasks,
		artifacts: artifacts,
		node:      node,
		logger:    logger,
	}
}

// ItemInput is one requested order line. UnitPrice is the price the client
// sent with the request; PriceOverride is an operator-set price that wins
// over both the request price and the catalog price.
type ItemInput struct {
	ProductID     uuid.UUID
	Quantity      int64
	UnitPrice     *decimal.Decimal
	PriceOverride *decimal.Decimal
}

// PlaceInput describes a new order
type PlaceInput struct {
	CustomerName string
	CustomerID   string
	BusinessName string
	Items        []ItemInput
}

// StockDelta is a caller-computed incremental stock change for one product,
// produced by diffing an order's old and new lines.
type StockDelta struct {
	ProductID uuid.UUID
	Delta     int64
}

// EditInput replaces an order's lines and applies the matching stock deltas
type EditInput struct {
	Items       []ItemInput
	StockDeltas []StockDelta
}

// Place validates and persists a new order. The whole order is rejected if
// any product is unknown or short on stock; nothing is clamped or skipped.
// Each accepted line decrements the product's stock and records a SALE
// movement referencing the order number.
func (s *Service) Place(ctx context.Context, in PlaceInput) (*order.Order, error) {
	if len(in.Items) == 0 {
		return nil, shared.NewDomainError("INVALID_INPUT", "Order must contain at least one item")
	}

	// Validation phase: fetch every product once and apply all decrements
	// in memory, so multi-line orders for the same product are checked
	// cumulatively before anything is written.
	loaded := make(map[uuid.UUID]*catalog.Product)
	running := make(map[uuid.UUID]int64)
	items := make([]order.OrderItem, 0, len(in.Items))

	for _, it := range in.Items {
		product, ok := loaded[it.ProductID]
		if !ok {
			var err error
			product, err = s.loadProduct(ctx, it.ProductID)
			if err != nil {
				return nil, err
			}
			loaded[it.ProductID] = product
			running[it.ProductID] = product.Stock
		}

		item, err := order.NewOrderItem(product.ID, product.Name, it.Quantity, resolveUnitPrice(product, it))
		if err != nil {
			return nil, err
		}
		if err := product.DecreaseStock(it.Quantity); err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	number := s.node.Generate().String()

	// Apply phase: persist each touched product once, then record one SALE
	// movement per line. Recording is best effort; the drift monitor covers
	// any line that fails to record.
	for _, product := range loaded {
		if err := s.products.Save(ctx, product); err != nil {
			return nil, fmt.Errorf("save product %s: %w", product.ID, err)
		}
	}
	for _, item := range items {
		before := running[item.ProductID]
		after := before - item.Quantity
		running[item.ProductID] = after
		s.recordMovement(ctx, item.ProductID, item.Name, before, after, stock.MovementKindSale, number, "")
	}

	o, err := order.NewOrder(number, in.CustomerName, in.CustomerID, in.BusinessName, items)
	if err != nil {
		return nil, err
	}
	if err := s.orders.Save(ctx, o); err != nil {
		return nil, fmt.Errorf("save order %s: %w", number, err)
	}

	s.logger.Info("Order placed",
		zap.String("order_number", number),
		zap.String("customer", in.CustomerName),
		zap.Int("lines", len(items)),
		zap.String("total", o.Total.String()),
	)
	return o, nil
}

// Edit replaces an order's lines and applies the caller-computed stock
// deltas, each as an independent change with its own ORDER_EDIT movement.
// Editing a fulfilled order re-syncs the customer's debt ledger.
func (s *Service) Edit(ctx context.Context, id uuid.UUID, in EditInput) (*order.Order, error) {
	o, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	for _, delta := range in.StockDeltas {
		if delta.Delta == 0 {
			continue
		}
		product, err := s.loadProduct(ctx, delta.ProductID)
		if err != nil {
			return nil, err
		}
		before := product.Stock
		if err := product.ApplyStockDelta(delta.Delta); err != nil {
			return nil, err
		}
		if err := s.products.Save(ctx, product); err != nil {
			return nil, fmt.Errorf("save product %s: %w", product.ID, err)
		}
		s.recordMovement(ctx, product.ID, product.Name, before, product.Stock,
			stock.MovementKindOrderEdit, o.Number, "order edited")
	}

	items := make([]order.OrderItem, 0, len(in.Items))
	for _, it := range in.Items {
		product, err := s.loadProduct(ctx, it.ProductID)
		if err != nil {
			return nil, err
		}
		item, err := order.NewOrderItem(product.ID, product.Name, it.Quantity, resolveUnitPrice(product, it))
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := o.ReplaceItems(items); err != nil {
		return nil, err
	}
	if err := s.orders.Save(ctx, o); err != nil {
		return nil, fmt.Errorf("save order %s: %w", o.Number, err)
	}

	if o.Status == order.OrderStatusFulfilled && o.CustomerID != "" {
		s.enqueueDebtSync(o)
	}

	s.logger.Info("Order edited",
		zap.String("order_number", o.Number),
		zap.Int("lines", len(items)),
		zap.Int("stock_deltas", len(in.StockDeltas)),
	)
	return o, nil
}

// Delete removes an order. Unless the order was fulfilled, every line's
// quantity is returned to stock with an ORDER_DELETE_RESTORE movement.
// The stored invoice artifact is removed on a best-effort basis.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	o, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if o.RestoresStockOnDelete() {
		for _, item := range o.Items {
			product, err := s.products.FindByID(ctx, item.ProductID)
			if err != nil {
				if errors.Is(err, shared.ErrNotFound) {
					// Product vanished since the order was placed; nothing to restore onto.
					s.logger.Warn("Skipping stock restore for deleted product",
						zap.String("order_number", o.Number),
						zap.String("product_id", item.ProductID.String()),
					)
					continue
				}
				return err
			}
			before := product.Stock
			if err := product.IncreaseStock(item.Quantity); err != nil {
				return err
			}
			if err := s.products.Save(ctx, product); err != nil {
				return fmt.Errorf("save product %s: %w", product.ID, err)
			}
			s.recordMovement(ctx, product.ID, product.Name, before, product.Stock,
				stock.MovementKindOrderDeleteRestore, o.Number, "order deleted")
		}
	}

	if err := s.orders.Delete(ctx, id); err != nil {
		return err
	}

	if s.artifacts != nil {
		if err := s.artifacts.DeleteObject(ctx, InvoiceKey(o.Number)); err != nil {
			s.logger.Warn("Failed to delete invoice artifact",
				zap.String("order_number", o.Number),
				zap.Error(err),
			)
		}
	}

	s.logger.Info("Order deleted",
		zap.String("order_number", o.Number),
		zap.Bool("stock_restored", o.RestoresStockOnDelete()),
	)
	return nil
}

// SetStatus advances the order through its lifecycle. Reaching FULFILLED
// for a known customer schedules a debt ledger sync on that customer's
// serializer chain.
func (s *Service) SetStatus(ctx context.Context, id uuid.UUID, target order.OrderStatus) (*order.Order, error) {
	o, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := o.TransitionTo(target); err != nil {
		return nil, err
	}
	if err := s.orders.Save(ctx, o); err != nil {
		return nil, fmt.Errorf("save order %s: %w", o.Number, err)
	}

	if target == order.OrderStatusFulfilled && o.CustomerID != "" {
		s.enqueueDebtSync(o)
	}

	s.logger.Info("Order status changed",
		zap.String("order_number", o.Number),
		zap.String("status", target.String()),
	)
	return o, nil
}

// Get returns one order
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	return s.orders.FindByID(ctx, id)
}

// List returns a page of orders. Supported filters: status, customer_id.
func (s *Service) List(ctx context.Context, filter shared.Filter) (shared.Paginated[order.Order], error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	orders, err := s.orders.FindAll(ctx, filter)
	if err != nil {
		return shared.Paginated[order.Order]{}, err
	}
	total, err := s.orders.Count(ctx, filter)
	if err != nil {
		return shared.Paginated[order.Order]{}, err
	}
	return shared.NewPaginated(orders, total, filter.Page, filter.PageSize), nil
}

// InvoiceKey returns the object storage key of an order's invoice artifact
func InvoiceKey(orderNumber string) string {
	return "invoices/" + orderNumber + ".pdf"
}

// resolveUnitPrice picks the effective unit price for a line:
// operator override, then the price sent with the request, then the
// live catalog price.
func resolveUnitPrice(product *catalog.Product, it ItemInput) decimal.Decimal {
	if it.PriceOverride != nil {
		return *it.PriceOverride
	}
	if it.UnitPrice != nil {
		return *it.UnitPrice
	}
	return product.Price
}

func (s *Service) loadProduct(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("NOT_FOUND", fmt.Sprintf("Product %s does not exist", id))
		}
		return nil, err
	}
	return product, nil
}

// recordMovement is best effort: the stock change is already committed, so
// a recording failure is logged and left for the drift monitor to surface.
func (s *Service) recordMovement(
	ctx context.Context,
	productID uuid.UUID,
	productName string,
	before, after int64,
	kind stock.MovementKind,
	reference, reason string,
) {
	err := s.recorder.Record(ctx, appstock.RecordInput{
		ProductID:   productID,
		ProductName: productName,
		StockBefore: before,
		StockAfter:  after,
		Kind:        kind,
		ReferenceID: reference,
		Reason:      reason,
	})
	if err != nil {
		s.logger.Warn("Failed to record stock movement",
			zap.String("product_id", productID.String()),
			zap.String("kind", kind.String()),
			zap.String("reference_id", reference),
			zap.Error(err),
		)
	}
}

func (s *Service) enqueueDebtSync(o *order.Order) {
	customerID := o.CustomerID
	orderID := o.ID.String()
	total := o.Total
	s.tasks.Enqueue(customerID, func(ctx context.Context) error {
		return s.debts.SyncOrderCharge(ctx, customerID, orderID, total)
	})
}
