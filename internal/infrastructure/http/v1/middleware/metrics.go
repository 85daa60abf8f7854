package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

// HTTPObserver records finished requests.
type HTTPObserver interface {
	ObserveHTTP(method, path string, status int, elapsed time.Duration)
}

// Metrics middleware reports every request by route template.
func Metrics(observer HTTPObserver) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		observer.ObserveHTTP(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
