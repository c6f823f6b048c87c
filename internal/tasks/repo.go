// Package tasks persists analysis tasks, configs, call logs, results, and alerts.
package tasks

import (
	"context"
	"time"

	"github.com/etzlertech/rancheye-02-analysis/internal/analysis"
)

// Repo defines persistence operations for the analysis queue.
type Repo interface {
	FetchPending(ctx context.Context, limit int) ([]analysis.Task, error)
	CreateTask(ctx context.Context, task analysis.Task) error
	TasksForImage(ctx context.Context, imageID string) ([]analysis.Task, error)
	MarkProcessing(ctx context.Context, id string, at time.Time) error
	Complete(ctx context.Context, id string, at time.Time) error
	Fail(ctx context.Context, id, message string, at time.Time) error

	GetConfig(ctx context.Context, id string) (analysis.Config, error)
	ActiveConfigs(ctx context.Context, camera string) ([]analysis.Config, error)
	UpsertConfig(ctx context.Context, cfg analysis.Config) error

	SaveAnalysisLog(ctx context.Context, log analysis.CallLog) error
	SaveAnalysisResult(ctx context.Context, result analysis.Result) error
	CreateAlert(ctx context.Context, alert analysis.Alert, at time.Time) error
	LastAlertAt(ctx context.Context, configID, camera string) (time.Time, bool, error)
}
