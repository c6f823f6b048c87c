package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/etzlertech/rancheye-02-analysis/internal/shared/server/respond"
	"github.com/etzlertech/rancheye-02-analysis/internal/shared/telemetry"
)

const maxStackBytes = 4096

// Recovery turns a panicking ops handler into a 500 so a broken /costs or
// /healthz handler never takes the worker process down with it.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			stack := debug.Stack()
			if len(stack) > maxStackBytes {
				stack = stack[:maxStackBytes]
			}
			telemetry.Error("ops.panic", map[string]any{
				"request_id": RequestIDFromContext(c),
				"route":      c.FullPath(),
				"method":     c.Request.Method,
				"panic":      fmt.Sprint(rec),
				"stack":      string(stack),
			})
			respond.Error(c, http.StatusInternalServerError, "internal", "Ops handler failed", nil)
		}()
		c.Next()
	}
}
