package movements

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockval/internal/core/apperror"
	"stockval/internal/core/id"
	"stockval/internal/domain/valuation"
)

type fakeRepo struct {
	mu        sync.Mutex
	byProduct map[id.ID][]valuation.RawMovement
	byClient  map[id.ID][]valuation.RawMovement
	calls     int
	err       error
}

func (r *fakeRepo) ListByProduct(_ context.Context, productID id.ID) ([]valuation.RawMovement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return r.byProduct[productID], r.err
}

func (r *fakeRepo) ListByClient(_ context.Context, clientID id.ID) ([]valuation.RawMovement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return r.byClient[clientID], r.err
}

type mapCache struct {
	mu    sync.Mutex
	items map[string]*valuation.Result
}

func (c *mapCache) Get(scope Scope, method valuation.Method) (*valuation.Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	res, ok := c.items[scope.String()+"/"+string(method)]
	return res, ok
}

func (c *mapCache) Set(scope Scope, method valuation.Method, res *valuation.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[scope.String()+"/"+string(method)] = res
}

type countingRecorder struct {
	mu       sync.Mutex
	observed int
	failed   int
}

func (r *countingRecorder) ObserveValuation(_ valuation.Method, _ ScopeKind, _ int, _ float64, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observed++
	if err != nil {
		r.failed++
	}
}

var (
	productA = id.MustParse("0190f3c2-0000-7000-8000-00000000000a")
	productB = id.MustParse("0190f3c2-0000-7000-8000-00000000000b")
	client1  = id.MustParse("0190f3c2-0000-7000-8000-0000000000c1")
)

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		byProduct: map[id.ID][]valuation.RawMovement{
			productA: {
				{ID: "1", Date: "2024-01-01", Type: "entrada", Quantity: "10", UnitPrice: "100"},
				{ID: "2", Date: "2024-01-05", Type: "entrada", Quantity: "5", UnitPrice: "120"},
				{ID: "3", Date: "2024-01-10", Type: "saída", Quantity: "12", UnitPrice: "150"},
			},
			productB: {
				{ID: "4", Date: "2024-01-01", Type: "venda", Quantity: "5", Amount: "1500"},
				{ID: "5", Date: "2024-02-01", Type: "compra", Quantity: "5", UnitPrice: "200"},
			},
		},
		byClient: map[id.ID][]valuation.RawMovement{
			client1: {
				{ID: "6", Date: "02/01/2024", Type: "venda", Quantity: "2", UnitPrice: "50"},
			},
		},
	}
}

func TestService_Valuate(t *testing.T) {
	rec := &countingRecorder{}
	svc := NewService(newFakeRepo(), ServiceConfig{Recorder: rec})

	res, err := svc.Valuate(context.Background(), ProductScope(productA), valuation.MethodFIFO)
	require.NoError(t, err)

	assert.Equal(t, "1240", res.Totals.CostOfGoods.String())
	assert.Equal(t, "3", res.Rows[0].ID)
	assert.Equal(t, 1, rec.observed)
}

func TestService_ValuateClient(t *testing.T) {
	svc := NewService(newFakeRepo(), DefaultServiceConfig())

	res, err := svc.Valuate(context.Background(), ClientScope(client1), valuation.MethodWAC)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "100", res.Totals.Amount.String())
}

func TestService_Valuate_UsesCache(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, ServiceConfig{Cache: &mapCache{items: map[string]*valuation.Result{}}})
	ctx := context.Background()

	first, err := svc.Valuate(ctx, ProductScope(productA), valuation.MethodWAC)
	require.NoError(t, err)
	second, err := svc.Valuate(ctx, ProductScope(productA), valuation.MethodWAC)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, repo.calls)

	_, err = svc.Valuate(ctx, ProductScope(productA), valuation.MethodFIFO)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.calls, "method is part of the cache key")
}

func TestService_Valuate_StorageError(t *testing.T) {
	repo := newFakeRepo()
	repo.err = errors.New("connection refused")
	svc := NewService(repo, DefaultServiceConfig())

	_, err := svc.Valuate(context.Background(), ProductScope(productA), valuation.MethodFIFO)
	require.Error(t, err)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeDatabase, appErr.Code)
}

func TestService_Valuate_InvalidStoredNumber(t *testing.T) {
	repo := newFakeRepo()
	repo.byProduct[productA] = append(repo.byProduct[productA],
		valuation.RawMovement{ID: "bad", Date: "2024-01-11", Type: "saida", Quantity: "1", UnitPrice: "n/a"})

	rec := &countingRecorder{}
	svc := NewService(repo, ServiceConfig{Recorder: rec})

	_, err := svc.Valuate(context.Background(), ProductScope(productA), valuation.MethodFIFO)
	require.Error(t, err)
	assert.True(t, apperror.IsInvalidMovement(err))
	assert.Equal(t, 1, rec.failed)
}

func TestService_ValuateMany(t *testing.T) {
	svc := NewService(newFakeRepo(), ServiceConfig{MaxParallel: 2})
	scopes := []Scope{ProductScope(productB), ProductScope(productA)}

	results, err := svc.ValuateMany(context.Background(), scopes, valuation.MethodFIFO)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, productB, results[0].Scope.ID)
	assert.Equal(t, "1000", results[0].Result.Totals.CostOfGoods.String())
	assert.Equal(t, productA, results[1].Scope.ID)
	assert.Equal(t, "1240", results[1].Result.Totals.CostOfGoods.String())
}

func TestService_ValuateMany_PropagatesError(t *testing.T) {
	repo := newFakeRepo()
	repo.err = errors.New("boom")
	svc := NewService(repo, DefaultServiceConfig())

	_, err := svc.ValuateMany(context.Background(), []Scope{ProductScope(productA)}, valuation.MethodWAC)
	assert.Error(t, err)
}

func TestService_Preview(t *testing.T) {
	svc := NewService(newFakeRepo(), DefaultServiceConfig())

	res, err := svc.Preview(context.Background(), []valuation.RawMovement{
		{ID: "a", Date: "2024-01-01", Type: "entrada", Quantity: "2", UnitPrice: "10"},
		{ID: "b", Date: "2024-01-02", Type: "saida", Quantity: "1", UnitPrice: "25"},
	}, valuation.MethodWAC)
	require.NoError(t, err)
	assert.Equal(t, "15", res.Totals.Margin.String())
}

func TestScope_String(t *testing.T) {
	assert.Equal(t, "product:0190f3c2-0000-7000-8000-00000000000a", ProductScope(productA).String())
}
