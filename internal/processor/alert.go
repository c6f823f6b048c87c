package processor

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/etzlertech/rancheye-02-analysis/internal/analysis"
	"github.com/etzlertech/rancheye-02-analysis/internal/consensus"
	"github.com/etzlertech/rancheye-02-analysis/internal/shared/metrics"
	"github.com/etzlertech/rancheye-02-analysis/internal/shared/telemetry"
	"github.com/etzlertech/rancheye-02-analysis/internal/shared/util"
)

// evaluateAlert raises an alert for a completed task when the final answer is
// confident enough and describes a dangerous condition. Failures here never
// affect the task.
func (p *Processor) evaluateAlert(ctx context.Context, task analysis.Task, cfg analysis.Config, meta analysis.ImageMetadata, out consensus.Outcome) {
	if out.FinalConfidence < cfg.AlertThreshold() {
		return
	}
	finding, err := analysis.DecodeFinding(cfg.Type, out.Final)
	if err != nil {
		telemetry.Debug("alert.decode_partial", map[string]any{"task_id": task.ID, "error": err.Error()})
	}
	if !finding.Alerting() {
		return
	}

	fields := map[string]any{
		"task_id":    task.ID,
		"config_id":  cfg.ID,
		"camera":     meta.CameraName,
		"confidence": out.FinalConfidence,
	}

	now := p.now().UTC()
	if cfg.AlertCooldown > 0 {
		last, ok, err := p.repo.LastAlertAt(ctx, cfg.ID, meta.CameraName)
		if err != nil {
			fields["error"] = util.SanitizeError(err)
			telemetry.Warn("alert.cooldown_lookup_failed", fields)
			delete(fields, "error")
		} else if ok && now.Sub(last) < cfg.AlertCooldown {
			fields["last_alert_at"] = last.UTC().Format(time.RFC3339)
			telemetry.Info("alert.suppressed", fields)
			metrics.IncAlert("suppressed")
			return
		}
	}

	alert := analysis.BuildAlert(task, cfg, meta, finding, out.Final, out.FinalConfidence)
	alert.ID = uuid.NewString()
	fields["alert_type"] = alert.AlertType
	fields["title"] = alert.Title

	if p.opts.DryRun {
		telemetry.Info("alert.dry_run", fields)
		metrics.IncAlert("dry_run")
		return
	}
	if err := p.repo.CreateAlert(ctx, alert, now); err != nil {
		fields["error"] = util.SanitizeError(err)
		telemetry.Error("alert.create_failed", fields)
		metrics.IncAlert("failed")
		return
	}
	metrics.IncAlert("created")
	telemetry.Info("alert.created", fields)

	if err := p.publisher.Publish(ctx, alert); err != nil {
		fields["error"] = util.SanitizeError(err)
		telemetry.Warn("alert.publish_failed", fields)
	}
}
