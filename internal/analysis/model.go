package analysis

import (
	"strings"
	"time"

	"github.com/etzlertech/rancheye-02-analysis/internal/llm"
)

const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// DefaultThreshold applies when a config carries no alert threshold.
const DefaultThreshold = 0.8

// DefaultPriority is used for tasks created from an image arrival.
const DefaultPriority = 5

// CanTransition reports whether a task may move from one status to another.
// The lifecycle is pending -> processing -> completed|failed.
func CanTransition(from, to string) bool {
	switch from {
	case StatusPending:
		return to == StatusProcessing
	case StatusProcessing:
		return to == StatusCompleted || to == StatusFailed
	default:
		return false
	}
}

// Task is one unit of work: analyze one image under one config.
type Task struct {
	ID           string
	ImageID      string
	ConfigID     string
	Status       string
	Priority     int
	RetryCount   int
	ErrorMessage string
	ScheduledAt  time.Time
	StartedAt    *time.Time
	CompletedAt  *time.Time
	CreatedAt    time.Time
}

// ModelRef names a provider and a model on it.
type ModelRef struct {
	Provider llm.Provider `yaml:"provider" json:"provider"`
	Model    string       `yaml:"model" json:"model"`
}

// IsZero reports whether the reference is unset.
func (m ModelRef) IsZero() bool {
	return m.Provider == "" && strings.TrimSpace(m.Model) == ""
}

func (m ModelRef) String() string {
	return string(m.Provider) + "/" + m.Model
}

// Config is a named analysis recipe. It is read-only while a task runs.
type Config struct {
	ID             string        `yaml:"id" json:"id"`
	Name           string        `yaml:"name" json:"name"`
	Type           Type          `yaml:"analysis_type" json:"analysis_type"`
	PromptTemplate string        `yaml:"prompt_template" json:"prompt_template"`
	Primary        ModelRef      `yaml:"primary" json:"primary"`
	Secondary      *ModelRef     `yaml:"secondary,omitempty" json:"secondary,omitempty"`
	Tiebreaker     *ModelRef     `yaml:"tiebreaker,omitempty" json:"tiebreaker,omitempty"`
	Threshold      float64       `yaml:"threshold" json:"threshold"`
	AlertCooldown  time.Duration `yaml:"alert_cooldown" json:"alert_cooldown"`
	CameraName     string        `yaml:"camera_name,omitempty" json:"camera_name,omitempty"`
	Active         bool          `yaml:"active" json:"active"`
}

// AlertThreshold returns the configured threshold or DefaultThreshold when unset.
func (c Config) AlertThreshold() float64 {
	if c.Threshold <= 0 {
		return DefaultThreshold
	}
	return c.Threshold
}

// AppliesTo reports whether the config covers images from camera.
func (c Config) AppliesTo(camera string) bool {
	return c.CameraName == "" || c.CameraName == camera
}

// ImageMetadata describes a stored camera image.
type ImageMetadata struct {
	ImageID     string
	CameraName  string
	CapturedAt  time.Time
	StoragePath string
	ImageURL    string
}
