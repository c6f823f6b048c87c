package processor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/etzlertech/rancheye-02-analysis/internal/shared/telemetry"
	"github.com/etzlertech/rancheye-02-analysis/internal/shared/util"
)

// RunContinuous processes batches until ctx is cancelled. A full batch loops
// immediately; otherwise the loop waits out the rest of interval. Errors wait
// ErrorBackoff. Cancellation is observed only while waiting, so an in-flight
// batch always drains.
func (p *Processor) RunContinuous(ctx context.Context, interval time.Duration) error {
	telemetry.Info("worker.started", map[string]any{
		"batch_size":  p.opts.BatchSize,
		"max_workers": p.opts.MaxWorkers,
		"interval":    interval.String(),
		"dry_run":     p.opts.DryRun,
	})
	for {
		delay := p.iterate(ctx, interval)
		if err := p.wait(ctx, delay); err != nil {
			telemetry.Info("worker.stopped", map[string]any{"reason": err.Error()})
			return nil
		}
	}
}

// iterate runs one batch and returns how long to wait before the next.
func (p *Processor) iterate(ctx context.Context, interval time.Duration) (delay time.Duration) {
	start := p.now()
	defer func() {
		if r := recover(); r != nil {
			telemetry.Error("worker.loop_panic", map[string]any{"error": fmt.Sprintf("%v", r)})
			delay = p.opts.ErrorBackoff
		}
	}()

	report, err := p.ProcessBatch(context.WithoutCancel(ctx))
	if err != nil {
		level := telemetry.Error
		if errors.Is(err, ErrBatchInFlight) {
			level = telemetry.Warn
		}
		level("worker.loop_error", map[string]any{
			"error":      util.SanitizeError(err),
			"backoff_ms": p.opts.ErrorBackoff.Milliseconds(),
		})
		return p.opts.ErrorBackoff
	}
	if report.Fetched >= p.opts.BatchSize {
		return 0
	}
	remaining := interval - p.now().Sub(start)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// waitContext is the loop's only suspension point.
func waitContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
