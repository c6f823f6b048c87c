package llm

import (
	"embed"
	"strings"
)

//go:embed prompts/*.txt
var promptFiles embed.FS

// DefaultPrompt returns the built-in prompt template for an analysis type and
// whether one exists. Seeded configs without their own prompt use it.
func DefaultPrompt(analysisType string) (string, bool) {
	name := strings.ToLower(strings.TrimSpace(analysisType))
	if name == "" || strings.ContainsAny(name, "/\\.") {
		return "", false
	}
	data, err := promptFiles.ReadFile("prompts/" + name + ".txt")
	if err != nil {
		return "", false
	}
	return strings.TrimSpace(string(data)), true
}
