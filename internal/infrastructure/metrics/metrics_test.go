package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockval/internal/domain/movements"
	"stockval/internal/domain/valuation"
)

func TestMetrics_ObserveValuation(t *testing.T) {
	m := New(DefaultConfig())

	m.ObserveValuation(valuation.MethodFIFO, movements.ScopeProduct, 12, 0.002, nil)
	m.ObserveValuation(valuation.MethodFIFO, movements.ScopeProduct, 0, 0, errors.New("bad row"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ValuationsTotal.WithLabelValues("fifo", "product", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ValuationsTotal.WithLabelValues("fifo", "product", "error")))
}

func TestMetrics_Handler(t *testing.T) {
	m := New(DefaultConfig())
	m.ObserveHTTP("GET", "/api/v1/valuations/products/:id", 200, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "stockval_http_requests_total")
}
