package catalog

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/orderdesk/backend/internal/domain/catalog"
	"github.com/orderdesk/backend/internal/domain/shared"
)

type fakeProductRepo struct {
	products map[uuid.UUID]*catalog.Product
	failSave bool
}

func newFakeProductRepo() *fakeProductRepo {
	return &fakeProductRepo{products: make(map[uuid.UUID]*catalog.Product)}
}

func (f *fakeProductRepo) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProductRepo) FindAll(ctx context.Context, filter shared.Filter) ([]catalog.Product, error) {
	var all []catalog.Product
	for _, p := range f.products {
		all = append(all, *p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return all, nil
}

func (f *fakeProductRepo) Save(ctx context.Context, p *catalog.Product) error {
	if f.failSave {
		return errors.New("disk full")
	}
	cp := *p
	f.products[p.ID] = &cp
	return nil
}

func (f *fakeProductRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := f.products[id]; !ok {
		return shared.ErrNotFound
	}
	delete(f.products, id)
	return nil
}

func (f *fakeProductRepo) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	return int64(len(f.products)), nil
}

func TestServiceCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("persists a valid product", func(t *testing.T) {
		repo := newFakeProductRepo()
		svc := NewService(repo, zap.NewNop())

		p, err := svc.Create(ctx, CreateInput{
			Name:         "Feta 1kg",
			Price:        decimal.NewFromFloat(8.50),
			InitialStock: 10,
		})
		require.NoError(t, err)
		assert.Equal(t, "Feta 1kg", p.Name)
		assert.Equal(t, int64(10), p.Stock)
		assert.Len(t, repo.products, 1)
	})

	t.Run("rejects empty name", func(t *testing.T) {
		repo := newFakeProductRepo()
		svc := NewService(repo, zap.NewNop())

		_, err := svc.Create(ctx, CreateInput{Name: "  "})
		var derr *shared.DomainError
		require.ErrorAs(t, err, &derr)
		assert.Equal(t, "INVALID_INPUT", derr.Code)
	})

	t.Run("save failure surfaces", func(t *testing.T) {
		repo := newFakeProductRepo()
		repo.failSave = true
		svc := NewService(repo, zap.NewNop())

		_, err := svc.Create(ctx, CreateInput{Name: "Feta 1kg"})
		assert.Error(t, err)
	})
}

func TestServiceList(t *testing.T) {
	ctx := context.Background()
	repo := newFakeProductRepo()
	svc := NewService(repo, zap.NewNop())

	for _, name := range []string{"Feta 1kg", "Olives 500g", "Honey 1kg"} {
		_, err := svc.Create(ctx, CreateInput{Name: name, Price: decimal.NewFromInt(5)})
		require.NoError(t, err)
	}

	page, err := svc.List(ctx, shared.Filter{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 20, page.PageSize)
	assert.Len(t, page.Items, 3)
}

func TestServiceUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("renames and reprices", func(t *testing.T) {
		repo := newFakeProductRepo()
		svc := NewService(repo, zap.NewNop())

		p, err := svc.Create(ctx, CreateInput{Name: "Feta 1kg", Price: decimal.NewFromInt(8), InitialStock: 5})
		require.NoError(t, err)

		name := "Feta PDO 1kg"
		price := decimal.NewFromFloat(9.20)
		updated, err := svc.Update(ctx, p.ID, UpdateInput{Name: &name, Price: &price})
		require.NoError(t, err)
		assert.Equal(t, "Feta PDO 1kg", updated.Name)
		assert.True(t, updated.Price.Equal(price))
		assert.Equal(t, int64(5), updated.Stock, "update must not touch stock")
	})

	t.Run("rejects negative price", func(t *testing.T) {
		repo := newFakeProductRepo()
		svc := NewService(repo, zap.NewNop())

		p, err := svc.Create(ctx, CreateInput{Name: "Feta 1kg"})
		require.NoError(t, err)

		price := decimal.NewFromInt(-1)
		_, err = svc.Update(ctx, p.ID, UpdateInput{Price: &price})
		var derr *shared.DomainError
		require.ErrorAs(t, err, &derr)
		assert.Equal(t, "INVALID_INPUT", derr.Code)
	})

	t.Run("unknown product", func(t *testing.T) {
		repo := newFakeProductRepo()
		svc := NewService(repo, zap.NewNop())

		_, err := svc.Update(ctx, uuid.New(), UpdateInput{})
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestServiceDelete(t *testing.T) {
	ctx := context.Background()
	repo := newFakeProductRepo()
	svc := NewService(repo, zap.NewNop())

	p, err := svc.Create(ctx, CreateInput{Name: "Feta 1kg"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, p.ID))
	assert.ErrorIs(t, svc.Delete(ctx, p.ID), shared.ErrNotFound)
}
