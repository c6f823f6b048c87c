package llm

import (
	"errors"
	"fmt"
	"strings"
)

// Provider identifies a vision model vendor.
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderGemini Provider = "gemini"
)

// ErrUnsupportedProvider is returned for provider names without an adapter implementation.
var ErrUnsupportedProvider = errors.New("unsupported provider")

// DefaultTemperature is used for every analysis call.
const DefaultTemperature float32 = 0.3

// ParseProvider maps a configured name to a known provider.
func ParseProvider(raw string) (Provider, error) {
	switch Provider(strings.ToLower(strings.TrimSpace(raw))) {
	case ProviderOpenAI:
		return ProviderOpenAI, nil
	case ProviderGemini:
		return ProviderGemini, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedProvider, raw)
	}
}

// MaxOutputTokens is the per-call output budget. Gemini answers run longer.
func (p Provider) MaxOutputTokens() int {
	if p == ProviderGemini {
		return 1000
	}
	return 500
}
