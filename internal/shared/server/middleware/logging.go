package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/etzlertech/rancheye-02-analysis/internal/shared/telemetry"
)

// Logging emits a structured log per ops request. Scrapes of /metrics log at debug.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)

		fields := map[string]any{
			"request_id":  RequestIDFromContext(c),
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status":      c.Writer.Status(),
			"duration_ms": float64(latency.Microseconds()) / 1000.0,
			"client_ip":   c.ClientIP(),
			"user_agent":  c.Request.UserAgent(),
		}
		if c.Request.URL.Path == "/metrics" {
			telemetry.Debug("request.complete", fields)
			return
		}
		telemetry.Info("request.complete", fields)
	}
}
