package processor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/etzlertech/rancheye-02-analysis/internal/analysis"
	"github.com/etzlertech/rancheye-02-analysis/internal/tasks"
)

// failingFetchRepo errors on FetchPending a fixed number of times.
type failingFetchRepo struct {
	*tasks.MemoryRepo
	mu       sync.Mutex
	failures int
}

func (r *failingFetchRepo) FetchPending(ctx context.Context, limit int) ([]analysis.Task, error) {
	r.mu.Lock()
	if r.failures > 0 {
		r.failures--
		r.mu.Unlock()
		return nil, errors.New("connection reset")
	}
	r.mu.Unlock()
	return r.MemoryRepo.FetchPending(ctx, limit)
}

func TestRunContinuousSchedule(t *testing.T) {
	h := newHarness(t, Options{BatchSize: 2, ErrorBackoff: 90 * time.Second})
	repo := &failingFetchRepo{MemoryRepo: h.repo, failures: 1}
	h.proc.repo = repo

	h.addConfig(t, analysis.Config{ID: "gate"})
	for _, id := range []string{"a", "b", "c"} {
		h.addImage(t, "img-"+id, "cam")
		h.addTask(t, "t-"+id, "img-"+id, "gate", 5)
	}

	clock := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	h.proc.now = func() time.Time { return clock }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var delays []time.Duration
	h.proc.wait = func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		if len(delays) == 4 {
			cancel()
			return ctx.Err()
		}
		return nil
	}

	require.NoError(t, h.proc.RunContinuous(ctx, 30*time.Minute))

	// error -> backoff, full batch -> no wait, partial batch -> interval, empty -> interval.
	assert.Equal(t, []time.Duration{90 * time.Second, 0, 30 * time.Minute, 30 * time.Minute}, delays)
	for _, id := range []string{"t-a", "t-b", "t-c"} {
		task, err := h.repo.GetTask(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, analysis.StatusCompleted, task.Status)
	}
}

func TestRunContinuousDrainsInFlightBatch(t *testing.T) {
	h := newHarness(t, Options{})
	h.openai.delay = 50 * time.Millisecond
	h.addConfig(t, analysis.Config{ID: "gate"})
	h.addImage(t, "img-1", "cam")
	h.addTask(t, "t1", "img-1", "gate", 5)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, h.proc.RunContinuous(ctx, time.Minute))

	task, err := h.repo.GetTask(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, analysis.StatusCompleted, task.Status, "a cancelled context still lets the batch finish")
}

func TestWaitContext(t *testing.T) {
	assert.NoError(t, waitContext(context.Background(), 0))
	assert.NoError(t, waitContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, waitContext(ctx, time.Hour), context.Canceled)
	assert.ErrorIs(t, waitContext(ctx, 0), context.Canceled)
}
