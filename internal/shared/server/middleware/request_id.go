package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/etzlertech/rancheye-02-analysis/internal/shared/server/respond"
)

// HeaderRequestID carries the correlation ID in and out of ops requests.
const HeaderRequestID = "X-Request-Id"

// RequestID keeps the caller's correlation ID or assigns a UUID, and echoes it
// on the response so health checks and scrapers can match worker log lines.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(respond.RequestIDKey, id)
		c.Writer.Header().Set(HeaderRequestID, id)
		c.Next()
	}
}

// RequestIDFromContext returns the ID assigned by RequestID, or "".
func RequestIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(respond.RequestIDKey)
}
