package consensus

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/etzlertech/rancheye-02-analysis/internal/analysis"
)

// WithContext prefixes a prompt with the camera and capture time.
func WithContext(meta analysis.ImageMetadata, prompt string) string {
	captured := "unknown"
	if !meta.CapturedAt.IsZero() {
		captured = meta.CapturedAt.UTC().Format(time.RFC3339)
	}
	return fmt.Sprintf("Camera: %s\nTime: %s\n\n%s", meta.CameraName, captured, prompt)
}

// TiebreakerPrompt asks a third model to judge the image given two conflicting answers.
func TiebreakerPrompt(original string, first, second map[string]any) string {
	var b strings.Builder
	b.WriteString(original)
	b.WriteString("\n\nTwo AI models have analyzed this image with different results:\n\n")
	b.WriteString("Model 1 Result: ")
	b.WriteString(indentJSON(first))
	b.WriteString("\n\nModel 2 Result: ")
	b.WriteString(indentJSON(second))
	b.WriteString("\n\nPlease analyze the image independently and provide your assessment. ")
	b.WriteString("Consider both previous results but make your own determination based on what you see in the image.")
	return b.String()
}

func indentJSON(v map[string]any) string {
	if v == nil {
		return "{}"
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(out)
}
