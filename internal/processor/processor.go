// Package processor drains the analysis task queue through the consensus engine.
package processor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/etzlertech/rancheye-02-analysis/internal/alerts"
	"github.com/etzlertech/rancheye-02-analysis/internal/analysis"
	"github.com/etzlertech/rancheye-02-analysis/internal/cache"
	"github.com/etzlertech/rancheye-02-analysis/internal/consensus"
	"github.com/etzlertech/rancheye-02-analysis/internal/llm"
	"github.com/etzlertech/rancheye-02-analysis/internal/shared/metrics"
	"github.com/etzlertech/rancheye-02-analysis/internal/shared/telemetry"
	"github.com/etzlertech/rancheye-02-analysis/internal/shared/util"
	"github.com/etzlertech/rancheye-02-analysis/internal/usage"
)

// Repo is the queue persistence the processor needs.
type Repo interface {
	FetchPending(ctx context.Context, limit int) ([]analysis.Task, error)
	CreateTask(ctx context.Context, task analysis.Task) error
	MarkProcessing(ctx context.Context, id string, at time.Time) error
	Complete(ctx context.Context, id string, at time.Time) error
	Fail(ctx context.Context, id, message string, at time.Time) error
	GetConfig(ctx context.Context, id string) (analysis.Config, error)
	ActiveConfigs(ctx context.Context, camera string) ([]analysis.Config, error)
	TasksForImage(ctx context.Context, imageID string) ([]analysis.Task, error)
	SaveAnalysisLog(ctx context.Context, log analysis.CallLog) error
	SaveAnalysisResult(ctx context.Context, result analysis.Result) error
	CreateAlert(ctx context.Context, alert analysis.Alert, at time.Time) error
	LastAlertAt(ctx context.Context, configID, camera string) (time.Time, bool, error)
}

// ImageSource resolves image metadata and bytes.
type ImageSource interface {
	GetImageMetadata(ctx context.Context, imageID string) (analysis.ImageMetadata, error)
	DownloadImage(ctx context.Context, storagePath string) ([]byte, error)
}

// Options tunes batch and loop behavior.
type Options struct {
	BatchSize    int
	MaxWorkers   int
	ErrorBackoff time.Duration
	ImageBudget  int
	DryRun       bool
}

func (o Options) withDefaults() Options {
	if o.BatchSize <= 0 {
		o.BatchSize = 10
	}
	if o.MaxWorkers <= 0 {
		o.MaxWorkers = 5
	}
	if o.ErrorBackoff <= 0 {
		o.ErrorBackoff = time.Minute
	}
	if o.ImageBudget <= 0 {
		o.ImageBudget = llm.DefaultImageBudget
	}
	return o
}

// BatchReport summarizes one batch.
type BatchReport struct {
	Fetched   int
	Created   int
	Started   int
	Completed int
	Failed    int
	Skipped   int
	Duration  time.Duration
}

// Processor owns the provider registry and runs tasks through the consensus engine.
type Processor struct {
	repo      Repo
	images    ImageSource
	registry  *llm.Registry
	engine    *consensus.Engine
	publisher alerts.Publisher
	opts      Options

	batchMu sync.Mutex
	now     func() time.Time
	wait    func(ctx context.Context, d time.Duration) error
}

// New wires a processor. The registry is handed to the engine it builds.
func New(repo Repo, images ImageSource, registry *llm.Registry, results *cache.Service, tracker *usage.Tracker, publisher alerts.Publisher, opts Options) *Processor {
	if publisher == nil {
		publisher = alerts.Noop{}
	}
	return &Processor{
		repo:      repo,
		images:    images,
		registry:  registry,
		engine:    consensus.New(registry, results, tracker, repo),
		publisher: publisher,
		opts:      opts.withDefaults(),
		now:       time.Now,
		wait:      waitContext,
	}
}

// Registry returns the adapters this processor dispatches to.
func (p *Processor) Registry() *llm.Registry {
	return p.registry
}

// ProcessBatch runs up to BatchSize pending tasks. It is not reentrant.
func (p *Processor) ProcessBatch(ctx context.Context) (BatchReport, error) {
	if !p.batchMu.TryLock() {
		return BatchReport{}, ErrBatchInFlight
	}
	defer p.batchMu.Unlock()

	start := p.now()
	pending, err := p.repo.FetchPending(ctx, p.opts.BatchSize)
	if err != nil {
		return BatchReport{}, fmt.Errorf("fetch pending: %w", err)
	}
	report := BatchReport{Fetched: len(pending)}
	p.runTasks(ctx, pending, &report)
	report.Duration = p.now().Sub(start)
	metrics.ObserveBatchSeconds(report.Duration.Seconds())
	telemetry.Info("worker.batch", map[string]any{
		"fetched":     report.Fetched,
		"started":     report.Started,
		"completed":   report.Completed,
		"failed":      report.Failed,
		"skipped":     report.Skipped,
		"duration_ms": report.Duration.Milliseconds(),
	})
	return report, nil
}

// ProcessImage creates one task per active config covering the image's camera
// and processes exactly those tasks. Configs that already have a pending or
// processing task for the image are skipped.
func (p *Processor) ProcessImage(ctx context.Context, imageID string) (BatchReport, error) {
	meta, err := p.images.GetImageMetadata(ctx, imageID)
	if err != nil {
		return BatchReport{}, err
	}
	cfgs, err := p.repo.ActiveConfigs(ctx, meta.CameraName)
	if err != nil {
		return BatchReport{}, fmt.Errorf("active configs: %w", err)
	}
	existing, err := p.repo.TasksForImage(ctx, imageID)
	if err != nil {
		return BatchReport{}, fmt.Errorf("tasks for image: %w", err)
	}
	open := make(map[string]bool, len(existing))
	for _, task := range existing {
		if task.Status == analysis.StatusPending || task.Status == analysis.StatusProcessing {
			open[task.ConfigID] = true
		}
	}

	if !p.batchMu.TryLock() {
		return BatchReport{}, ErrBatchInFlight
	}
	defer p.batchMu.Unlock()

	start := p.now()
	var report BatchReport
	created := make([]analysis.Task, 0, len(cfgs))
	for _, cfg := range cfgs {
		if open[cfg.ID] {
			report.Skipped++
			continue
		}
		now := p.now().UTC()
		task := analysis.Task{
			ID:          uuid.NewString(),
			ImageID:     imageID,
			ConfigID:    cfg.ID,
			Status:      analysis.StatusPending,
			Priority:    analysis.DefaultPriority,
			ScheduledAt: now,
			CreatedAt:   now,
		}
		if err := p.repo.CreateTask(ctx, task); err != nil {
			return report, fmt.Errorf("create task for config %s: %w", cfg.ID, err)
		}
		created = append(created, task)
	}
	report.Created = len(created)
	report.Fetched = len(created)
	p.runTasks(ctx, created, &report)
	report.Duration = p.now().Sub(start)
	telemetry.Info("worker.image", map[string]any{
		"image_id":  imageID,
		"camera":    meta.CameraName,
		"created":   report.Created,
		"skipped":   report.Skipped,
		"completed": report.Completed,
		"failed":    report.Failed,
	})
	return report, nil
}

type taskOutcome int

const (
	outcomeCompleted taskOutcome = iota
	outcomeFailed
)

// runTasks marks each task processing and runs the started ones on a bounded pool.
// Once ctx is cancelled no further task is started, but started tasks run to a
// terminal status on a context that ignores the cancellation.
func (p *Processor) runTasks(ctx context.Context, list []analysis.Task, report *BatchReport) {
	started := make([]analysis.Task, 0, len(list))
	for _, task := range list {
		if ctx.Err() != nil {
			report.Skipped++
			continue
		}
		at := p.now().UTC()
		if err := p.repo.MarkProcessing(ctx, task.ID, at); err != nil {
			report.Skipped++
			telemetry.Warn("task.status", map[string]any{
				"task_id":           task.ID,
				"status_transition": analysis.StatusPending + "->" + analysis.StatusProcessing,
				"error":             util.SanitizeError(err),
			})
			continue
		}
		task.Status = analysis.StatusProcessing
		task.StartedAt = &at
		metrics.IncTaskStarted()
		telemetry.Info("task.status", map[string]any{
			"task_id":           task.ID,
			"image_id":          task.ImageID,
			"config_id":         task.ConfigID,
			"status_transition": analysis.StatusPending + "->" + analysis.StatusProcessing,
		})
		started = append(started, task)
	}
	report.Started = len(started)

	drain := context.WithoutCancel(ctx)
	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(p.opts.MaxWorkers)
	for _, task := range started {
		task := task
		g.Go(func() error {
			outcome := p.runTask(drain, task)
			mu.Lock()
			defer mu.Unlock()
			if outcome == outcomeCompleted {
				report.Completed++
			} else {
				report.Failed++
			}
			return nil
		})
	}
	_ = g.Wait()
}

// runTask executes a processing task and records its terminal status.
func (p *Processor) runTask(ctx context.Context, task analysis.Task) taskOutcome {
	start := p.now()
	err := p.safeExecute(ctx, task)
	duration := p.now().Sub(start)
	metrics.ObserveTaskDurationMs(float64(duration.Milliseconds()))
	if err == nil {
		return outcomeCompleted
	}

	msg := util.SanitizeError(err)
	stage := ""
	var taskErr TaskError
	if errors.As(err, &taskErr) {
		stage = taskErr.Stage
	}
	if failErr := p.repo.Fail(ctx, task.ID, msg, p.now().UTC()); failErr != nil {
		telemetry.Error("task.fail_update_failed", map[string]any{
			"task_id": task.ID,
			"error":   util.SanitizeError(failErr),
		})
	}
	metrics.IncTaskFailed()
	telemetry.Error("task.status", map[string]any{
		"task_id":           task.ID,
		"image_id":          task.ImageID,
		"config_id":         task.ConfigID,
		"status_transition": analysis.StatusProcessing + "->" + analysis.StatusFailed,
		"stage":             stage,
		"error":             msg,
		"duration_ms":       duration.Milliseconds(),
	})
	return outcomeFailed
}

func (p *Processor) safeExecute(ctx context.Context, task analysis.Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = TaskError{TaskID: task.ID, Stage: StagePanic, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	return p.execute(ctx, task)
}

func (p *Processor) execute(ctx context.Context, task analysis.Task) error {
	start := p.now()
	fail := func(stage string, err error) error {
		return TaskError{TaskID: task.ID, Stage: stage, Err: err}
	}

	cfg, err := p.repo.GetConfig(ctx, task.ConfigID)
	if err != nil {
		return fail(StageConfig, fmt.Errorf("config %s: %w", task.ConfigID, err))
	}
	if err := cfg.Validate(p.registry.Supports); err != nil {
		return fail(StageValidate, err)
	}
	cfg, dropped := cfg.Available(p.registry.Supports)
	if len(dropped) > 0 {
		telemetry.Warn("task.roles_unavailable", map[string]any{
			"task_id":   task.ID,
			"config_id": cfg.ID,
			"roles":     dropped,
		})
	}
	meta, err := p.images.GetImageMetadata(ctx, task.ImageID)
	if err != nil {
		return fail(StageMetadata, err)
	}
	raw, err := p.images.DownloadImage(ctx, meta.StoragePath)
	if err != nil {
		return fail(StageDownload, err)
	}
	image, err := llm.CompressImage(raw, p.opts.ImageBudget)
	if err != nil {
		return fail(StageCompress, err)
	}

	out, err := p.engine.Run(ctx, consensus.Input{
		Task:      task,
		Config:    cfg,
		Meta:      meta,
		Image:     image,
		ImageHash: util.ContentHash(raw),
	})
	if err != nil {
		return fail(StageConsensus, err)
	}

	result := analysis.Result{
		ID:             uuid.NewString(),
		TaskID:         task.ID,
		ImageID:        task.ImageID,
		ConfigID:       cfg.ID,
		SessionID:      out.SessionID,
		Type:           cfg.Type,
		Data:           out.Final,
		Confidence:     out.FinalConfidence,
		Agreement:      out.Agreement,
		TiebreakerUsed: out.TiebreakerUsed,
		TotalTokens:    out.TotalTokens,
		ProcessingTime: p.now().Sub(start),
		CreatedAt:      p.now().UTC(),
	}
	if out.Primary != nil {
		result.PrimaryResult = out.Primary.Data
	}
	if out.Secondary != nil {
		result.SecondaryResult = out.Secondary.Data
	}
	if out.Tiebreaker != nil {
		result.TiebreakerResult = out.Tiebreaker.Data
	}
	if err := p.repo.SaveAnalysisResult(ctx, result); err != nil {
		return fail(StageSaveResult, err)
	}
	if err := p.repo.Complete(ctx, task.ID, p.now().UTC()); err != nil {
		return fail(StageComplete, err)
	}
	metrics.IncTaskCompleted()
	telemetry.Info("task.status", map[string]any{
		"task_id":           task.ID,
		"image_id":          task.ImageID,
		"config_id":         cfg.ID,
		"session_id":        out.SessionID,
		"status_transition": analysis.StatusProcessing + "->" + analysis.StatusCompleted,
		"confidence":        out.FinalConfidence,
		"agreement":         out.Agreement,
		"tiebreaker_used":   out.TiebreakerUsed,
		"total_tokens":      out.TotalTokens,
		"duration_ms":       result.ProcessingTime.Milliseconds(),
	})

	p.evaluateAlert(ctx, task, cfg, meta, out)
	return nil
}
