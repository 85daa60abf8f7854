// Package main is the entry point for the stock valuation API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"stockval/internal/domain/auth"
	"stockval/internal/domain/movements"
	"stockval/internal/domain/valuation"
	"stockval/internal/infrastructure/cache"
	v1 "stockval/internal/infrastructure/http/v1"
	"stockval/internal/infrastructure/http/v1/middleware"
	"stockval/internal/infrastructure/metrics"
	"stockval/internal/infrastructure/storage/postgres"
	"stockval/internal/infrastructure/storage/postgres/movement_repo"
	"stockval/pkg/logger"
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithLogger(ctx, log)
	log.Info("starting stockval server")

	defaultMethod, err := valuation.ParseMethod(getEnv("DEFAULT_COSTING_METHOD", "fifo"))
	if err != nil {
		log.Fatalw("invalid DEFAULT_COSTING_METHOD", "error", err)
	}

	// --- Database ---
	poolCfg := postgres.DefaultPoolConfig(mustEnv("DATABASE_URL"))
	if maxConns := getEnvInt("DB_MAX_CONNS", 0); maxConns > 0 {
		poolCfg.MaxConns = int32(maxConns)
	}
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Infow("database connection established", "max_conns", poolCfg.MaxConns)

	txm := postgres.NewTxManager(pool)
	repo := movement_repo.NewMovementRepo(txm)

	// --- Metrics ---
	m := metrics.New(metrics.DefaultConfig())

	// --- Valuation cache ---
	serviceCfg := movements.DefaultServiceConfig()
	serviceCfg.Recorder = m
	serviceCfg.MaxParallel = getEnvInt("VALUATION_MAX_PARALLEL", serviceCfg.MaxParallel)

	if ttl := getEnvDuration("VALUATION_CACHE_TTL", time.Minute); ttl > 0 {
		valuationCache := cache.NewValuationCache(ttl, pool.Unwrap())
		valuationCache.Start(ctx)
		defer valuationCache.Stop()
		serviceCfg.Cache = valuationCache
		log.Infow("valuation cache enabled", "ttl", ttl)
	}

	service := movements.NewService(repo, serviceCfg)

	// --- Auth ---
	var validator middleware.JWTValidator
	if secret := getEnv("JWT_SECRET", ""); secret != "" {
		validator = auth.NewJWTService(auth.DefaultJWTConfig(secret))
	} else {
		log.Warn("JWT_SECRET not set, API authentication disabled")
	}

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Logger:       log,
		DB:           pool,
		Service:      service,
		Metrics:      m,
		JWTValidator: validator,
		RateLimit: middleware.RateLimitConfig{
			RPS:   getEnvFloat("RATE_LIMIT_RPS", 20),
			Burst: getEnvInt("RATE_LIMIT_BURST", 40),
		},
		DefaultMethod: defaultMethod,
	})

	// --- HTTP Server ---
	port := getEnv("APP_PORT", "8080")
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", port, "default_method", defaultMethod)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	<-ctx.Done()
	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}

	postgres.LogPoolStats(shutdownCtx, pool.Unwrap())
	log.Info("server stopped")
}
