package cache

import (
	"time"

	"github.com/etzlertech/rancheye-02-analysis/internal/llm"
)

// DefaultTTL is how long a cached answer stays valid.
const DefaultTTL = 24 * time.Hour

// Key identifies one cached model answer.
type Key struct {
	ImageHash    string
	AnalysisType string
	Provider     llm.Provider
	Model        string
}

// Valid reports whether every component is set.
func (k Key) Valid() bool {
	return k.ImageHash != "" && k.AnalysisType != "" && k.Provider != "" && k.Model != ""
}

// Entry is a cached parsed answer.
type Entry struct {
	Key        Key
	Data       map[string]any
	Confidence float64
	ExpiresAt  time.Time
}
