package usage

import (
	"context"
	"time"

	"github.com/etzlertech/rancheye-02-analysis/internal/llm"
	"github.com/etzlertech/rancheye-02-analysis/internal/shared/metrics"
	"github.com/etzlertech/rancheye-02-analysis/internal/shared/telemetry"
	"github.com/etzlertech/rancheye-02-analysis/internal/shared/util"
)

// Tracker prices provider calls and accumulates daily cost records.
// Recording is advisory: store failures never reach the caller.
type Tracker struct {
	store   Store
	pricing Pricing
	now     func() time.Time
}

// NewTracker constructs a Tracker.
func NewTracker(store Store, pricing Pricing) *Tracker {
	return &Tracker{store: store, pricing: pricing, now: time.Now}
}

// Record accumulates one call and returns its estimated cost.
func (t *Tracker) Record(ctx context.Context, res llm.Result) float64 {
	if t == nil || t.store == nil {
		return 0
	}
	cost := t.pricing.EstimateCost(res)
	tokens := res.TotalTokens
	if res.CacheHit {
		tokens = 0
	}
	metrics.AddProviderTokens(string(res.Provider), tokens)
	if err := t.store.Add(ctx, t.now(), string(res.Provider), res.Model, tokens, cost); err != nil {
		telemetry.Warn("usage.record_failed", map[string]any{
			"provider": res.Provider,
			"model":    res.Model,
			"error":    util.SanitizeError(err),
		})
	}
	return cost
}

// Daily returns the cost records for date's UTC day.
func (t *Tracker) Daily(ctx context.Context, date time.Time) ([]CostRecord, error) {
	return t.store.Daily(ctx, date)
}
