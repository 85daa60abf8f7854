package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockval/internal/core/id"
	"stockval/internal/domain/movements"
	"stockval/internal/domain/valuation"
)

func TestValuationCache_GetSet(t *testing.T) {
	c := NewValuationCache(time.Minute, nil)
	scope := movements.ProductScope(id.New())
	res := &valuation.Result{Method: valuation.MethodFIFO}

	_, ok := c.Get(scope, valuation.MethodFIFO)
	assert.False(t, ok)

	c.Set(scope, valuation.MethodFIFO, res)
	got, ok := c.Get(scope, valuation.MethodFIFO)
	require.True(t, ok)
	assert.Same(t, res, got)

	_, ok = c.Get(scope, valuation.MethodWAC)
	assert.False(t, ok)
}

func TestValuationCache_InvalidateScope(t *testing.T) {
	c := NewValuationCache(time.Minute, nil)
	a := movements.ProductScope(id.New())
	b := movements.ClientScope(id.New())

	c.Set(a, valuation.MethodFIFO, &valuation.Result{})
	c.Set(a, valuation.MethodWAC, &valuation.Result{})
	c.Set(b, valuation.MethodFIFO, &valuation.Result{})

	assert.Equal(t, 2, c.Invalidate(a.String()))

	_, ok := c.Get(a, valuation.MethodWAC)
	assert.False(t, ok)
	_, ok = c.Get(b, valuation.MethodFIFO)
	assert.True(t, ok)

	assert.Equal(t, 1, c.Invalidate(""))
	_, ok = c.Get(b, valuation.MethodFIFO)
	assert.False(t, ok)
}

func TestValuationCache_StartWithoutPoolIsNoop(t *testing.T) {
	c := NewValuationCache(time.Minute, nil)
	c.Start(context.Background())
	c.Stop()
}
