// Package server exposes the worker's operational HTTP surface.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/etzlertech/rancheye-02-analysis/internal/services/health"
	"github.com/etzlertech/rancheye-02-analysis/internal/shared/metrics"
	"github.com/etzlertech/rancheye-02-analysis/internal/shared/server/middleware"
	"github.com/etzlertech/rancheye-02-analysis/internal/shared/server/respond"
	"github.com/etzlertech/rancheye-02-analysis/internal/usage"
)

// CostReader returns the daily cost records.
type CostReader interface {
	Daily(ctx context.Context, date time.Time) ([]usage.CostRecord, error)
}

// Deps are the handlers' collaborators. Costs may be nil.
type Deps struct {
	Health *health.Service
	Costs  CostReader
}

// NewRouter constructs the Gin engine with middleware and ops routes registered.
func NewRouter(deps Deps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
	)

	r.GET("/healthz", func(c *gin.Context) {
		st := deps.Health.Status(c.Request.Context())
		respond.Health(c, st.OK, st)
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	if deps.Costs != nil {
		r.GET("/costs", costsHandler(deps.Costs))
	}

	return r
}

func costsHandler(costs CostReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		date := time.Now().UTC()
		if raw := c.Query("date"); raw != "" {
			parsed, err := time.Parse(time.DateOnly, raw)
			if err != nil {
				respond.Error(c, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD", nil)
				return
			}
			date = parsed
		}
		records, err := costs.Daily(c.Request.Context(), date)
		if err != nil {
			respond.Error(c, http.StatusInternalServerError, "internal", "Failed to load cost records", nil)
			return
		}
		total := 0.0
		for _, rec := range records {
			total += rec.EstimatedCost
		}
		respond.JSON(c, http.StatusOK, gin.H{
			"date":       usage.Day(date).Format(time.DateOnly),
			"records":    records,
			"total_cost": total,
		})
	}
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":9090"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
