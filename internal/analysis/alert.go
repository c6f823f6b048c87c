package analysis

import (
	"fmt"
	"strings"
)

const (
	AlertTypeImmediate = "immediate"
	AlertTypeWarning   = "warning"

	SeverityCritical = "critical"
	SeverityWarning  = "warning"
)

// immediateConfidence is the confidence above which an alert is raised as immediate.
const immediateConfidence = 0.9

// Alert is the payload persisted to analysis_alerts and fanned out to publishers.
type Alert struct {
	ID         string         `json:"id"`
	TaskID     string         `json:"task_id"`
	ImageID    string         `json:"image_id"`
	ConfigID   string         `json:"config_id"`
	CameraName string         `json:"camera_name"`
	AlertType  string         `json:"alert_type"`
	Severity   string         `json:"severity"`
	Title      string         `json:"title"`
	Message    string         `json:"message"`
	Confidence float64        `json:"confidence"`
	ImageURL   string         `json:"image_url,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
}

// BuildAlert renders the alert for a finding that passed threshold and danger checks.
func BuildAlert(task Task, cfg Config, meta ImageMetadata, finding Finding, data map[string]any, confidence float64) Alert {
	alertType, severity := AlertTypeWarning, SeverityWarning
	if confidence > immediateConfidence {
		alertType, severity = AlertTypeImmediate, SeverityCritical
	}
	camera := meta.CameraName
	title, message := describe(cfg, camera, finding, confidence)
	return Alert{
		TaskID:     task.ID,
		ImageID:    task.ImageID,
		ConfigID:   cfg.ID,
		CameraName: camera,
		AlertType:  alertType,
		Severity:   severity,
		Title:      title,
		Message:    message,
		Confidence: confidence,
		ImageURL:   meta.ImageURL,
		Data:       data,
	}
}

func describe(cfg Config, camera string, finding Finding, confidence float64) (string, string) {
	pct := int(confidence*100 + 0.5)
	switch f := finding.(type) {
	case GateFinding:
		return "Gate Open Alert - " + camera,
			fmt.Sprintf("Gate detected open at %s (confidence %d%%)", camera, pct)
	case LevelFinding:
		level := normalizeLevel(f.Level)
		if f.Percentage != nil {
			level = fmt.Sprintf("%s (%.0f%%)", level, *f.Percentage)
		}
		if f.Kind == TypeFeedBin {
			return "Low Feed Alert - " + camera,
				fmt.Sprintf("Feed level %s at %s (confidence %d%%)", level, camera, pct)
		}
		return "Low Water Alert - " + camera,
			fmt.Sprintf("Water level %s at %s (confidence %d%%)", level, camera, pct)
	case CustomFinding:
		msg := strings.TrimSpace(f.AlertMessage)
		if msg == "" {
			msg = fmt.Sprintf("%s condition detected at %s (confidence %d%%)", cfg.Name, camera, pct)
		}
		return "Alert - " + camera, msg
	default:
		return "Alert - " + camera, fmt.Sprintf("%s condition detected at %s", cfg.Name, camera)
	}
}
