package usage

import (
	"context"
	"time"
)

// Store accumulates cost records.
type Store interface {
	Add(ctx context.Context, date time.Time, provider, model string, tokens int, cost float64) error
	Daily(ctx context.Context, date time.Time) ([]CostRecord, error)
}
