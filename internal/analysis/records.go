package analysis

import (
	"time"

	"github.com/etzlertech/rancheye-02-analysis/internal/llm"
)

// Call roles within one consensus run.
const (
	RolePrimary    = "primary"
	RoleSecondary  = "secondary"
	RoleTiebreaker = "tiebreaker"
)

// CallLog is one provider call, live or served from cache, as written to ai_analysis_logs.
type CallLog struct {
	ID            string
	SessionID     string
	TaskID        string
	ImageID       string
	ConfigID      string
	Role          string
	Provider      llm.Provider
	Model         string
	Prompt        string
	CustomPrompt  bool
	Raw           string
	Parsed        map[string]any
	Confidence    float64
	InputTokens   *int
	OutputTokens  *int
	TotalTokens   int
	EstimatedCost float64
	Latency       time.Duration
	Temperature   float32
	MaxTokens     int
	CacheHit      bool
	ErrorMessage  string
	CreatedAt     time.Time
}

// Result is the persisted aggregate of one task's consensus run.
type Result struct {
	ID               string
	TaskID           string
	ImageID          string
	ConfigID         string
	SessionID        string
	Type             Type
	Data             map[string]any
	Confidence       float64
	Agreement        bool
	TiebreakerUsed   bool
	PrimaryResult    map[string]any
	SecondaryResult  map[string]any
	TiebreakerResult map[string]any
	TotalTokens      int
	ProcessingTime   time.Duration
	CreatedAt        time.Time
}
