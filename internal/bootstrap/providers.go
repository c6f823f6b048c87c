package bootstrap

import (
	"fmt"
	"strings"

	"github.com/etzlertech/rancheye-02-analysis/internal/llm"
	"github.com/etzlertech/rancheye-02-analysis/internal/llm/gemini"
	"github.com/etzlertech/rancheye-02-analysis/internal/llm/openai"
	"github.com/etzlertech/rancheye-02-analysis/internal/shared/config"
	"github.com/etzlertech/rancheye-02-analysis/internal/shared/telemetry"
)

// BuildAdapter constructs the adapter for a provider.
func BuildAdapter(provider llm.Provider, apiKey string) (llm.Adapter, error) {
	switch provider {
	case llm.ProviderOpenAI:
		return openai.New(apiKey)
	case llm.ProviderGemini:
		return gemini.New(apiKey)
	default:
		return nil, fmt.Errorf("%w: %q", llm.ErrUnsupportedProvider, provider)
	}
}

// BuildRegistry registers an adapter for every provider with a configured key.
// Providers without a key are skipped; configs that reference them fail validation.
func BuildRegistry(cfg config.Config) (*llm.Registry, error) {
	registry := llm.NewRegistry()
	keys := []struct {
		provider llm.Provider
		key      string
	}{
		{llm.ProviderOpenAI, cfg.OpenAIAPIKey},
		{llm.ProviderGemini, cfg.GeminiAPIKey},
	}
	for _, k := range keys {
		if strings.TrimSpace(k.key) == "" {
			telemetry.Warn("bootstrap.provider_skipped", map[string]any{
				"provider": k.provider,
				"reason":   "missing api key",
			})
			continue
		}
		adapter, err := BuildAdapter(k.provider, k.key)
		if err != nil {
			return nil, fmt.Errorf("build %s adapter: %w", k.provider, err)
		}
		registry.Register(adapter)
	}
	return registry, nil
}
