package tasks

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/etzlertech/rancheye-02-analysis/internal/analysis"
)

type storedAlert struct {
	alert analysis.Alert
	at    time.Time
}

// MemoryRepo stores queue state in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu      sync.RWMutex
	tasks   map[string]analysis.Task
	configs map[string]analysis.Config
	logs    []analysis.CallLog
	results map[string]analysis.Result
	alerts  []storedAlert
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		tasks:   make(map[string]analysis.Task),
		configs: make(map[string]analysis.Config),
		results: make(map[string]analysis.Result),
	}
}

func (r *MemoryRepo) FetchPending(ctx context.Context, limit int) ([]analysis.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []analysis.Task
	for _, t := range r.tasks {
		if t.Status == analysis.StatusPending {
			out = append(out, t)
		}
	}
	sortPending(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// sortPending orders by priority descending, then schedule time ascending.
func sortPending(list []analysis.Task) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Priority != list[j].Priority {
			return list[i].Priority > list[j].Priority
		}
		if !list[i].ScheduledAt.Equal(list[j].ScheduledAt) {
			return list[i].ScheduledAt.Before(list[j].ScheduledAt)
		}
		return list[i].ID < list[j].ID
	})
}

func (r *MemoryRepo) GetTask(ctx context.Context, id string) (analysis.Task, error) {
	if err := ctx.Err(); err != nil {
		return analysis.Task{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tasks[id]
	if !ok {
		return analysis.Task{}, analysis.ErrNotFound
	}
	return t, nil
}

func (r *MemoryRepo) CreateTask(ctx context.Context, task analysis.Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if task.Status == "" {
		task.Status = analysis.StatusPending
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.configs[task.ConfigID]; !ok {
		return fmt.Errorf("config %s: %w", task.ConfigID, analysis.ErrNotFound)
	}
	r.tasks[task.ID] = task
	return nil
}

func (r *MemoryRepo) TasksForImage(ctx context.Context, imageID string) ([]analysis.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []analysis.Task
	for _, t := range r.tasks {
		if t.ImageID == imageID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRepo) MarkProcessing(ctx context.Context, id string, at time.Time) error {
	return r.transition(ctx, id, analysis.StatusProcessing, func(t *analysis.Task) {
		t.StartedAt = &at
	})
}

func (r *MemoryRepo) Complete(ctx context.Context, id string, at time.Time) error {
	return r.transition(ctx, id, analysis.StatusCompleted, func(t *analysis.Task) {
		t.CompletedAt = &at
		t.ErrorMessage = ""
	})
}

func (r *MemoryRepo) Fail(ctx context.Context, id, message string, at time.Time) error {
	return r.transition(ctx, id, analysis.StatusFailed, func(t *analysis.Task) {
		t.CompletedAt = &at
		t.ErrorMessage = message
		t.RetryCount++
	})
}

func (r *MemoryRepo) transition(ctx context.Context, id, to string, apply func(*analysis.Task)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return analysis.ErrNotFound
	}
	if !analysis.CanTransition(t.Status, to) {
		return fmt.Errorf("%w: %s -> %s", analysis.ErrInvalidTransition, t.Status, to)
	}
	t.Status = to
	apply(&t)
	r.tasks[id] = t
	return nil
}

func (r *MemoryRepo) GetConfig(ctx context.Context, id string) (analysis.Config, error) {
	if err := ctx.Err(); err != nil {
		return analysis.Config{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.configs[id]
	if !ok {
		return analysis.Config{}, analysis.ErrNotFound
	}
	return cfg, nil
}

func (r *MemoryRepo) ActiveConfigs(ctx context.Context, camera string) ([]analysis.Config, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []analysis.Config
	for _, cfg := range r.configs {
		if cfg.Active && cfg.AppliesTo(camera) {
			out = append(out, cfg)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MemoryRepo) UpsertConfig(ctx context.Context, cfg analysis.Config) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configs[cfg.ID] = cfg
	return nil
}

func (r *MemoryRepo) SaveAnalysisLog(ctx context.Context, log analysis.CallLog) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, log)
	return nil
}

func (r *MemoryRepo) SaveAnalysisResult(ctx context.Context, result analysis.Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results[result.TaskID] = result
	return nil
}

func (r *MemoryRepo) CreateAlert(ctx context.Context, alert analysis.Alert, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, storedAlert{alert: alert, at: at})
	return nil
}

func (r *MemoryRepo) LastAlertAt(ctx context.Context, configID, camera string) (time.Time, bool, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, false, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var last time.Time
	found := false
	for _, a := range r.alerts {
		if a.alert.ConfigID == configID && a.alert.CameraName == camera && (!found || a.at.After(last)) {
			last, found = a.at, true
		}
	}
	return last, found, nil
}

// Logs returns a copy of the stored call logs.
func (r *MemoryRepo) Logs() []analysis.CallLog {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]analysis.CallLog(nil), r.logs...)
}

// Result returns the stored aggregate for a task.
func (r *MemoryRepo) Result(taskID string) (analysis.Result, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.results[taskID]
	return res, ok
}

// Alerts returns a copy of the stored alerts.
func (r *MemoryRepo) Alerts() []analysis.Alert {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]analysis.Alert, 0, len(r.alerts))
	for _, a := range r.alerts {
		out = append(out, a.alert)
	}
	return out
}

var _ Repo = (*MemoryRepo)(nil)
