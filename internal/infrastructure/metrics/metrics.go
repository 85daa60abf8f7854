// Package metrics exposes Prometheus collectors for the valuation API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"stockval/internal/domain/movements"
	"stockval/internal/domain/valuation"
)

// Compile-time check that Metrics implements movements.Recorder.
var _ movements.Recorder = (*Metrics)(nil)

// Config holds metrics configuration.
type Config struct {
	Namespace string
}

// DefaultConfig returns default metrics configuration.
func DefaultConfig() Config {
	return Config{Namespace: "stockval"}
}

// Metrics holds all collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	ValuationsTotal   *prometheus.CounterVec
	ValuationDuration *prometheus.HistogramVec
	ValuationRows     *prometheus.HistogramVec
}

// New creates and registers all collectors.
func New(cfg Config) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{registry: registry}

	m.HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	m.HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	m.ValuationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "valuations_total",
			Help:      "Valuation runs by costing method, scope kind and outcome",
		},
		[]string{"method", "scope", "status"},
	)

	m.ValuationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Name:      "valuation_duration_seconds",
			Help:      "Engine time per valuation run",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
		},
		[]string{"method"},
	)

	m.ValuationRows = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Name:      "valuation_rows",
			Help:      "Movements per valuation run",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		},
		[]string{"method"},
	)

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.ValuationsTotal,
		m.ValuationDuration,
		m.ValuationRows,
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveValuation records one engine run.
func (m *Metrics) ObserveValuation(method valuation.Method, scope movements.ScopeKind, rows int, seconds float64, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.ValuationsTotal.WithLabelValues(string(method), string(scope), status).Inc()
	if err == nil {
		m.ValuationDuration.WithLabelValues(string(method)).Observe(seconds)
		m.ValuationRows.WithLabelValues(string(method)).Observe(float64(rows))
	}
}

// ObserveHTTP records one finished request; path is the route template.
func (m *Metrics) ObserveHTTP(method, path string, status int, elapsed time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}
