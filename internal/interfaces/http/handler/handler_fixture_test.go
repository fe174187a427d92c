package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	catalogapp "github.com/orderdesk/backend/internal/application/catalog"
	ledgerapp "github.com/orderdesk/backend/internal/application/ledger"
	orderapp "github.com/orderdesk/backend/internal/application/order"
	stockapp "github.com/orderdesk/backend/internal/application/stock"
	"github.com/orderdesk/backend/internal/domain/catalog"
	"github.com/orderdesk/backend/internal/domain/ledger"
	"github.com/orderdesk/backend/internal/domain/order"
	"github.com/orderdesk/backend/internal/domain/shared"
	"github.com/orderdesk/backend/internal/domain/stock"
	"github.com/orderdesk/backend/internal/infrastructure/queue"
	"github.com/orderdesk/backend/internal/infrastructure/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// In-memory repositories backing the full handler stack.

type memProductRepo struct {
	products map[uuid.UUID]*catalog.Product
}

func newMemProductRepo() *memProductRepo {
	return &memProductRepo{products: make(map[uuid.UUID]*catalog.Product)}
}

func (r *memProductRepo) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	p, ok := r.products[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *memProductRepo) FindAll(ctx context.Context, filter shared.Filter) ([]catalog.Product, error) {
	var all []catalog.Product
	for _, p := range r.products {
		all = append(all, *p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return paginate(all, filter), nil
}

func (r *memProductRepo) Save(ctx context.Context, p *catalog.Product) error {
	cp := *p
	r.products[p.ID] = &cp
	return nil
}

func (r *memProductRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := r.products[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.products, id)
	return nil
}

func (r *memProductRepo) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	return int64(len(r.products)), nil
}

type memOrderRepo struct {
	orders map[uuid.UUID]*order.Order
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{orders: make(map[uuid.UUID]*order.Order)}
}

func (r *memOrderRepo) FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	o, ok := r.orders[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (r *memOrderRepo) FindAll(ctx context.Context, filter shared.Filter) ([]order.Order, error) {
	var all []order.Order
	for _, o := range r.orders {
		if status, ok := filter.Filters["status"]; ok && o.Status.String() != status {
			continue
		}
		if customerID, ok := filter.Filters["customer_id"]; ok && o.CustomerID != customerID {
			continue
		}
		all = append(all, *o)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Number < all[j].Number })
	return paginate(all, filter), nil
}

func (r *memOrderRepo) Save(ctx context.Context, o *order.Order) error {
	cp := *o
	r.orders[o.ID] = &cp
	return nil
}

func (r *memOrderRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := r.orders[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.orders, id)
	return nil
}

func (r *memOrderRepo) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	all, _ := r.FindAll(ctx, shared.Filter{Page: 1, PageSize: 1 << 30, Filters: filter.Filters})
	return int64(len(all)), nil
}

type memMovementRepo struct {
	movements []*stock.Movement
}

func (r *memMovementRepo) Append(ctx context.Context, m *stock.Movement) error {
	cp := *m
	r.movements = append(r.movements, &cp)
	return nil
}

func (r *memMovementRepo) FindByID(ctx context.Context, id uuid.UUID) (*stock.Movement, error) {
	for _, m := range r.movements {
		if m.ID == id {
			cp := *m
			return &cp, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memMovementRepo) FindAll(ctx context.Context, filter shared.Filter) ([]stock.Movement, error) {
	var all []stock.Movement
	for _, m := range r.movements {
		if kind, ok := filter.Filters["kind"]; ok && m.Kind.String() != kind {
			continue
		}
		if productID, ok := filter.Filters["product_id"]; ok && m.ProductID != productID {
			continue
		}
		all = append(all, *m)
	}
	// Newest first, matching the persistence default.
	sort.Slice(all, func(i, j int) bool { return all[i].OccurredAt.After(all[j].OccurredAt) })
	return paginate(all, filter), nil
}

func (r *memMovementRepo) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	all, _ := r.FindAll(ctx, shared.Filter{Page: 1, PageSize: 1 << 30, Filters: filter.Filters})
	return int64(len(all)), nil
}

func (r *memMovementRepo) SetReviewed(ctx context.Context, id uuid.UUID) error {
	for _, m := range r.movements {
		if m.ID == id {
			m.Reviewed = true
			return nil
		}
	}
	return shared.ErrNotFound
}

type memSnapshotRepo struct {
	snapshots map[uuid.UUID]*stock.StockSnapshot
}

func newMemSnapshotRepo() *memSnapshotRepo {
	return &memSnapshotRepo{snapshots: make(map[uuid.UUID]*stock.StockSnapshot)}
}

func (r *memSnapshotRepo) FindByProduct(ctx context.Context, productID uuid.UUID) (*stock.StockSnapshot, error) {
	s, ok := r.snapshots[productID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *memSnapshotRepo) FindAll(ctx context.Context, filter shared.Filter) ([]stock.StockSnapshot, error) {
	var all []stock.StockSnapshot
	for _, s := range r.snapshots {
		all = append(all, *s)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].ProductID.String() < all[j].ProductID.String()
	})
	return paginate(all, filter), nil
}

func (r *memSnapshotRepo) Upsert(ctx context.Context, s *stock.StockSnapshot) error {
	cp := *s
	r.snapshots[s.ProductID] = &cp
	return nil
}

func (r *memSnapshotRepo) UpsertBatch(ctx context.Context, snapshots []stock.StockSnapshot) error {
	for i := range snapshots {
		cp := snapshots[i]
		r.snapshots[cp.ProductID] = &cp
	}
	return nil
}

type memLedgerRepo struct {
	ledgers map[string]*ledger.CustomerDebtLedger
}

func newMemLedgerRepo() *memLedgerRepo {
	return &memLedgerRepo{ledgers: make(map[string]*ledger.CustomerDebtLedger)}
}

func (r *memLedgerRepo) FindByCustomer(ctx context.Context, customerID string) (*ledger.CustomerDebtLedger, error) {
	l, ok := r.ledgers[customerID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (r *memLedgerRepo) Save(ctx context.Context, l *ledger.CustomerDebtLedger) error {
	cp := *l
	r.ledgers[l.CustomerID] = &cp
	return nil
}

func paginate[T any](items []T, filter shared.Filter) []T {
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	start := (page - 1) * size
	if start >= len(items) {
		return nil
	}
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

// apiFixture wires the full API stack over in-memory repositories
type apiFixture struct {
	router    *gin.Engine
	products  *memProductRepo
	orders    *memOrderRepo
	movements *memMovementRepo
	snapshots *memSnapshotRepo
	ledgers   *memLedgerRepo
	artifacts *storage.InMemoryArtifactStorage
	tasks     *queue.KeyedSerializer
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	logger := zap.NewNop()
	f := &apiFixture{
		products:  newMemProductRepo(),
		orders:    newMemOrderRepo(),
		movements: &memMovementRepo{},
		snapshots: newMemSnapshotRepo(),
		ledgers:   newMemLedgerRepo(),
		artifacts: storage.NewInMemoryArtifactStorage(),
		tasks:     queue.NewKeyedSerializer(logger),
	}
	t.Cleanup(func() {
		_ = f.tasks.Close(context.Background())
	})

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	recorder := stockapp.NewMovementRecorder(f.movements, f.snapshots, logger)
	monitor := stockapp.NewDriftMonitor(f.products, f.snapshots, recorder, logger)
	catalogService := catalogapp.NewService(f.products, logger)
	ledgerService := ledgerapp.NewService(f.ledgers, logger)
	orderService := orderapp.NewService(
		f.orders, f.products, recorder, ledgerService, f.tasks, f.artifacts, node, logger,
	)

	f.router = gin.New()
	api := f.router.Group("/api/v1")
	NewProductHandler(catalogService).RegisterRoutes(api)
	NewOrderHandler(orderService, f.artifacts).RegisterRoutes(api)
	NewStockHandler(recorder, monitor, f.snapshots).RegisterRoutes(api)
	NewLedgerHandler(ledgerService, f.tasks).RegisterRoutes(api)

	return f
}

func (f *apiFixture) addProduct(t *testing.T, name string, price float64, stockOnHand int64) *catalog.Product {
	t.Helper()
	p, err := catalog.NewProduct(name, decimal.NewFromFloat(price), stockOnHand)
	require.NoError(t, err)
	require.NoError(t, f.products.Save(context.Background(), p))
	return p
}

func (f *apiFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decodeData[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var resp struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Success, "expected success envelope, got %s", w.Body.String())
	var out T
	require.NoError(t, json.Unmarshal(resp.Data, &out))
	return out
}

func decodeErrorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Success bool `json:"success"`
		Error   *struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	return resp.Error.Code
}

var _ = http.StatusOK
