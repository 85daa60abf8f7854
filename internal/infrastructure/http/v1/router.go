// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"stockval/internal/domain/movements"
	"stockval/internal/domain/valuation"
	"stockval/internal/infrastructure/http/v1/handlers"
	"stockval/internal/infrastructure/http/v1/middleware"
	"stockval/internal/infrastructure/metrics"
	"stockval/pkg/logger"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	// Logger for request logging
	Logger *logger.Logger

	// DB is pinged by the readiness probe; nil reports ready without checks.
	DB handlers.Pinger

	// Service values stored ledgers and preview batches.
	Service *movements.Service

	// Metrics, when set, instruments requests and serves /metrics.
	Metrics *metrics.Metrics

	// JWTValidator protects /api/v1; nil leaves the API open (development).
	JWTValidator middleware.JWTValidator

	// RateLimit throttles /api/v1 per client IP.
	RateLimit middleware.RateLimitConfig

	// DefaultMethod applies to requests that do not name a costing method.
	DefaultMethod valuation.Method
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	if cfg.Logger == nil {
		cfg.Logger = logger.Default()
	}

	router := gin.New()

	// Global middleware (order matters!). Recovery must run inside ErrorHandler.
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	if cfg.Metrics != nil {
		router.Use(middleware.Metrics(cfg.Metrics))
	}
	router.Use(middleware.Compress("/metrics", "/health"))
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.Recovery())

	healthHandler := handlers.NewHealthHandler(cfg.DB)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
	}

	if cfg.Metrics != nil {
		router.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	v1 := router.Group("/api/v1")
	v1.Use(middleware.RateLimit(cfg.RateLimit))
	if cfg.JWTValidator != nil {
		v1.Use(middleware.Auth(cfg.JWTValidator))
	}

	registerValuationRoutes(v1, cfg)

	return router
}

func registerValuationRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	h := handlers.NewValuationHandler(handlers.NewBaseHandler(), cfg.Service, cfg.DefaultMethod)

	valuations := rg.Group("/valuations")
	{
		valuations.GET("/products/:id", h.Product)
		valuations.POST("/products/batch", h.Batch)
		valuations.GET("/clients/:id", h.Client)
		valuations.POST("/preview", h.Preview)
	}
}
