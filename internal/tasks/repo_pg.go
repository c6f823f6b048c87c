package tasks

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/etzlertech/rancheye-02-analysis/internal/analysis"
	"github.com/etzlertech/rancheye-02-analysis/internal/llm"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const taskColumns = `id, image_id, config_id, status, priority, retry_count, error_message,
       scheduled_at, started_at, completed_at, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (analysis.Task, error) {
	var t analysis.Task
	var errorMessage sql.NullString
	var startedAt, completedAt sql.NullTime
	if err := row.Scan(
		&t.ID,
		&t.ImageID,
		&t.ConfigID,
		&t.Status,
		&t.Priority,
		&t.RetryCount,
		&errorMessage,
		&t.ScheduledAt,
		&startedAt,
		&completedAt,
		&t.CreatedAt,
	); err != nil {
		return analysis.Task{}, err
	}
	t.ErrorMessage = errorMessage.String
	if startedAt.Valid {
		v := startedAt.Time
		t.StartedAt = &v
	}
	if completedAt.Valid {
		v := completedAt.Time
		t.CompletedAt = &v
	}
	return t, nil
}

// FetchPending returns pending tasks by priority then schedule time.
func (r *PGRepo) FetchPending(ctx context.Context, limit int) ([]analysis.Task, error) {
	query := `
SELECT ` + taskColumns + `
FROM analysis_tasks
WHERE status = 'pending'
ORDER BY priority DESC, scheduled_at ASC
LIMIT $1`
	return r.queryTasks(ctx, query, limit)
}

// GetTask returns a task by ID.
func (r *PGRepo) GetTask(ctx context.Context, id string) (analysis.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM analysis_tasks WHERE id = $1`
	t, err := scanTask(r.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return analysis.Task{}, analysis.ErrNotFound
	}
	return t, err
}

// TasksForImage lists every task for an image, oldest first.
func (r *PGRepo) TasksForImage(ctx context.Context, imageID string) ([]analysis.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM analysis_tasks WHERE image_id = $1 ORDER BY created_at ASC`
	return r.queryTasks(ctx, query, imageID)
}

func (r *PGRepo) queryTasks(ctx context.Context, query string, args ...any) ([]analysis.Task, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []analysis.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// CreateTask inserts a pending task.
func (r *PGRepo) CreateTask(ctx context.Context, task analysis.Task) error {
	const query = `
INSERT INTO analysis_tasks (id, image_id, config_id, status, priority, retry_count, scheduled_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	status := task.Status
	if status == "" {
		status = analysis.StatusPending
	}
	_, err := r.DB.ExecContext(ctx, query,
		task.ID,
		task.ImageID,
		task.ConfigID,
		status,
		task.Priority,
		task.RetryCount,
		task.ScheduledAt,
		task.CreatedAt,
	)
	return err
}

// MarkProcessing moves a pending task to processing.
func (r *PGRepo) MarkProcessing(ctx context.Context, id string, at time.Time) error {
	const query = `
UPDATE analysis_tasks SET status = 'processing', started_at = $2
WHERE id = $1 AND status = 'pending'`
	return r.guardedUpdate(ctx, id, analysis.StatusProcessing, query, id, at)
}

// Complete moves a processing task to completed.
func (r *PGRepo) Complete(ctx context.Context, id string, at time.Time) error {
	const query = `
UPDATE analysis_tasks SET status = 'completed', completed_at = $2, error_message = NULL
WHERE id = $1 AND status = 'processing'`
	return r.guardedUpdate(ctx, id, analysis.StatusCompleted, query, id, at)
}

// Fail moves a processing task to failed and bumps its retry count.
func (r *PGRepo) Fail(ctx context.Context, id, message string, at time.Time) error {
	const query = `
UPDATE analysis_tasks SET status = 'failed', completed_at = $2, error_message = $3, retry_count = retry_count + 1
WHERE id = $1 AND status = 'processing'`
	return r.guardedUpdate(ctx, id, analysis.StatusFailed, query, id, at, message)
}

func (r *PGRepo) guardedUpdate(ctx context.Context, id, to, query string, args ...any) error {
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}
	current, err := r.GetTask(ctx, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: %s -> %s", analysis.ErrInvalidTransition, current.Status, to)
}

const configColumns = `id, name, analysis_type, prompt_template, model_provider, model_name,
       secondary_provider, secondary_model, tiebreaker_provider, tiebreaker_model,
       threshold, alert_cooldown_minutes, camera_name, active`

func scanConfig(row rowScanner) (analysis.Config, error) {
	var c analysis.Config
	var analysisType, provider string
	var secProvider, secModel, tbProvider, tbModel, camera sql.NullString
	var cooldownMinutes int
	if err := row.Scan(
		&c.ID,
		&c.Name,
		&analysisType,
		&c.PromptTemplate,
		&provider,
		&c.Primary.Model,
		&secProvider,
		&secModel,
		&tbProvider,
		&tbModel,
		&c.Threshold,
		&cooldownMinutes,
		&camera,
		&c.Active,
	); err != nil {
		return analysis.Config{}, err
	}
	c.Type = analysis.ParseType(analysisType)
	c.Primary.Provider = llm.Provider(provider)
	c.Secondary = optionalRef(secProvider, secModel)
	c.Tiebreaker = optionalRef(tbProvider, tbModel)
	c.AlertCooldown = time.Duration(cooldownMinutes) * time.Minute
	c.CameraName = camera.String
	return c, nil
}

func optionalRef(provider, model sql.NullString) *analysis.ModelRef {
	if provider.String == "" && model.String == "" {
		return nil
	}
	return &analysis.ModelRef{Provider: llm.Provider(provider.String), Model: model.String}
}

// GetConfig returns a config by ID.
func (r *PGRepo) GetConfig(ctx context.Context, id string) (analysis.Config, error) {
	query := `SELECT ` + configColumns + ` FROM analysis_configs WHERE id = $1`
	c, err := scanConfig(r.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return analysis.Config{}, analysis.ErrNotFound
	}
	return c, err
}

// ActiveConfigs returns active configs for camera, including camera-agnostic ones.
func (r *PGRepo) ActiveConfigs(ctx context.Context, camera string) ([]analysis.Config, error) {
	query := `
SELECT ` + configColumns + `
FROM analysis_configs
WHERE active AND (camera_name IS NULL OR camera_name = '' OR camera_name = $1)
ORDER BY id`
	rows, err := r.DB.QueryContext(ctx, query, camera)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []analysis.Config
	for rows.Next() {
		c, err := scanConfig(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpsertConfig inserts or replaces a config.
func (r *PGRepo) UpsertConfig(ctx context.Context, cfg analysis.Config) error {
	const query = `
INSERT INTO analysis_configs (
	id, name, analysis_type, prompt_template, model_provider, model_name,
	secondary_provider, secondary_model, tiebreaker_provider, tiebreaker_model,
	threshold, alert_cooldown_minutes, camera_name, active
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
ON CONFLICT (id) DO UPDATE SET
	name = EXCLUDED.name,
	analysis_type = EXCLUDED.analysis_type,
	prompt_template = EXCLUDED.prompt_template,
	model_provider = EXCLUDED.model_provider,
	model_name = EXCLUDED.model_name,
	secondary_provider = EXCLUDED.secondary_provider,
	secondary_model = EXCLUDED.secondary_model,
	tiebreaker_provider = EXCLUDED.tiebreaker_provider,
	tiebreaker_model = EXCLUDED.tiebreaker_model,
	threshold = EXCLUDED.threshold,
	alert_cooldown_minutes = EXCLUDED.alert_cooldown_minutes,
	camera_name = EXCLUDED.camera_name,
	active = EXCLUDED.active,
	updated_at = now()`
	secProvider, secModel := refColumns(cfg.Secondary)
	tbProvider, tbModel := refColumns(cfg.Tiebreaker)
	_, err := r.DB.ExecContext(ctx, query,
		cfg.ID,
		cfg.Name,
		string(cfg.Type),
		cfg.PromptTemplate,
		string(cfg.Primary.Provider),
		cfg.Primary.Model,
		secProvider,
		secModel,
		tbProvider,
		tbModel,
		cfg.Threshold,
		int(cfg.AlertCooldown/time.Minute),
		nullString(cfg.CameraName),
		cfg.Active,
	)
	return err
}

func refColumns(ref *analysis.ModelRef) (any, any) {
	if ref == nil {
		return nil, nil
	}
	return string(ref.Provider), ref.Model
}

// SaveAnalysisLog inserts one provider call row.
func (r *PGRepo) SaveAnalysisLog(ctx context.Context, log analysis.CallLog) error {
	const query = `
INSERT INTO ai_analysis_logs (
	id, session_id, task_id, image_id, config_id, role, model_provider, model_name,
	prompt_text, custom_prompt, raw_response, parsed_response, confidence,
	input_tokens, output_tokens, tokens_used, estimated_cost, processing_time_ms,
	temperature, max_tokens, cache_hit, error_message, created_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)`
	parsed, err := marshalJSONB(log.Parsed)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, query,
		log.ID,
		log.SessionID,
		log.TaskID,
		log.ImageID,
		log.ConfigID,
		log.Role,
		string(log.Provider),
		log.Model,
		log.Prompt,
		log.CustomPrompt,
		nullString(log.Raw),
		parsed,
		log.Confidence,
		nullInt(log.InputTokens),
		nullInt(log.OutputTokens),
		log.TotalTokens,
		log.EstimatedCost,
		log.Latency.Milliseconds(),
		float64(log.Temperature),
		log.MaxTokens,
		log.CacheHit,
		nullString(log.ErrorMessage),
		log.CreatedAt,
	)
	return err
}

// SaveAnalysisResult upserts the aggregate result for a task.
func (r *PGRepo) SaveAnalysisResult(ctx context.Context, res analysis.Result) error {
	const query = `
INSERT INTO image_analysis_results (
	id, task_id, image_id, config_id, session_id, analysis_type, result, confidence,
	agreement, tiebreaker_used, primary_result, secondary_result, tiebreaker_result,
	total_tokens, processing_time_ms, created_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
ON CONFLICT (task_id) DO UPDATE SET
	session_id = EXCLUDED.session_id,
	result = EXCLUDED.result,
	confidence = EXCLUDED.confidence,
	agreement = EXCLUDED.agreement,
	tiebreaker_used = EXCLUDED.tiebreaker_used,
	primary_result = EXCLUDED.primary_result,
	secondary_result = EXCLUDED.secondary_result,
	tiebreaker_result = EXCLUDED.tiebreaker_result,
	total_tokens = EXCLUDED.total_tokens,
	processing_time_ms = EXCLUDED.processing_time_ms`
	final, err := marshalJSONB(res.Data)
	if err != nil {
		return err
	}
	primary, err := optionalJSONB(res.PrimaryResult)
	if err != nil {
		return err
	}
	secondary, err := optionalJSONB(res.SecondaryResult)
	if err != nil {
		return err
	}
	tiebreaker, err := optionalJSONB(res.TiebreakerResult)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, query,
		res.ID,
		res.TaskID,
		res.ImageID,
		res.ConfigID,
		res.SessionID,
		string(res.Type),
		final,
		res.Confidence,
		res.Agreement,
		res.TiebreakerUsed,
		primary,
		secondary,
		tiebreaker,
		res.TotalTokens,
		res.ProcessingTime.Milliseconds(),
		res.CreatedAt,
	)
	return err
}

// CreateAlert inserts an alert row.
func (r *PGRepo) CreateAlert(ctx context.Context, alert analysis.Alert, at time.Time) error {
	const query = `
INSERT INTO analysis_alerts (
	id, task_id, image_id, config_id, camera_name, alert_type, severity, title, message,
	confidence, image_url, data, created_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	data, err := marshalJSONB(alert.Data)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, query,
		alert.ID,
		alert.TaskID,
		alert.ImageID,
		alert.ConfigID,
		alert.CameraName,
		alert.AlertType,
		alert.Severity,
		alert.Title,
		alert.Message,
		alert.Confidence,
		nullString(alert.ImageURL),
		data,
		at,
	)
	return err
}

// LastAlertAt returns when the latest alert for config and camera was raised.
func (r *PGRepo) LastAlertAt(ctx context.Context, configID, camera string) (time.Time, bool, error) {
	const query = `
SELECT created_at FROM analysis_alerts
WHERE config_id = $1 AND camera_name = $2
ORDER BY created_at DESC
LIMIT 1`
	var at time.Time
	err := r.DB.QueryRowContext(ctx, query, configID, camera).Scan(&at)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return at, true, nil
}

func marshalJSONB(value map[string]any) ([]byte, error) {
	if value == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(value)
}

func optionalJSONB(value map[string]any) (any, error) {
	if value == nil {
		return nil, nil
	}
	return json.Marshal(value)
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullInt(v *int) any {
	if v == nil {
		return nil
	}
	return int64(*v)
}

var _ Repo = (*PGRepo)(nil)
