package respond

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequestIDKey is the gin context key holding the request's correlation ID.
const RequestIDKey = "request_id"

// JSON writes an uncached JSON payload. Ops responses describe live worker state.
func JSON(c *gin.Context, status int, payload any) {
	c.Header("Cache-Control", "no-store")
	c.JSON(status, payload)
}

// Health writes a health report as 200 when healthy and 503 otherwise.
func Health(c *gin.Context, healthy bool, payload any) {
	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	JSON(c, status, payload)
}
