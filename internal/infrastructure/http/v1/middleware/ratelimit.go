package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"stockval/internal/core/apperror"
	"stockval/pkg/logger"
)

// RateLimitConfig configures per-client token buckets.
type RateLimitConfig struct {
	// RPS is the sustained request rate per client; zero disables limiting.
	RPS   float64
	Burst int

	// IdleTTL drops the bucket of a client that has been silent this long.
	IdleTTL time.Duration
}

// RateLimit throttles requests per client IP.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.RPS <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 10 * time.Minute
	}

	buckets := gocache.New(cfg.IdleTTL, 2*cfg.IdleTTL)

	limiterFor := func(key string) *rate.Limiter {
		if v, ok := buckets.Get(key); ok {
			buckets.SetDefault(key, v)
			return v.(*rate.Limiter)
		}
		l := rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst)
		// Add fails if a concurrent request created the bucket first.
		if err := buckets.Add(key, l, gocache.DefaultExpiration); err != nil {
			if v, ok := buckets.Get(key); ok {
				return v.(*rate.Limiter)
			}
		}
		return l
	}

	return func(c *gin.Context) {
		if !limiterFor(c.ClientIP()).Allow() {
			logger.Warn(c.Request.Context(), "rate limit exceeded",
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"client_ip", c.ClientIP(),
			)
			_ = c.Error(apperror.NewRateLimited())
			c.Abort()
			return
		}
		c.Next()
	}
}
