package usage

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/etzlertech/rancheye-02-analysis/internal/llm"
)

// Rate is USD per one million tokens.
type Rate struct {
	InputPerMillion  float64 `yaml:"input_per_million"`
	OutputPerMillion float64 `yaml:"output_per_million"`
}

// Pricing maps provider/model pairs to rates, with per-provider fallbacks.
type Pricing struct {
	Models    map[string]Rate `yaml:"models"`
	Providers map[string]Rate `yaml:"providers"`
}

// DefaultPricing returns the built-in rate table.
func DefaultPricing() Pricing {
	return Pricing{
		Models: map[string]Rate{
			"openai/gpt-4o":           {InputPerMillion: 2.50, OutputPerMillion: 10.00},
			"openai/gpt-4o-mini":      {InputPerMillion: 0.15, OutputPerMillion: 0.60},
			"openai/gpt-4-turbo":      {InputPerMillion: 10.00, OutputPerMillion: 30.00},
			"openai/gpt-4.1-mini":     {InputPerMillion: 0.40, OutputPerMillion: 1.60},
			"openai/gpt-5-mini":       {InputPerMillion: 0.25, OutputPerMillion: 2.00},
			"gemini/gemini-1.5-flash": {InputPerMillion: 0.075, OutputPerMillion: 0.30},
			"gemini/gemini-1.5-pro":   {InputPerMillion: 1.25, OutputPerMillion: 5.00},
			"gemini/gemini-2.0-flash": {InputPerMillion: 0.10, OutputPerMillion: 0.40},
			"gemini/gemini-2.5-flash": {InputPerMillion: 0.30, OutputPerMillion: 2.50},
			"gemini/gemini-2.5-pro":   {InputPerMillion: 1.25, OutputPerMillion: 10.00},
		},
		Providers: map[string]Rate{
			string(llm.ProviderOpenAI): {InputPerMillion: 2.50, OutputPerMillion: 10.00},
			string(llm.ProviderGemini): {InputPerMillion: 1.25, OutputPerMillion: 5.00},
		},
	}
}

// LoadPricing overlays a YAML rate file on the defaults. An empty path returns the defaults.
func LoadPricing(path string) (Pricing, error) {
	pricing := DefaultPricing()
	if strings.TrimSpace(path) == "" {
		return pricing, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Pricing{}, fmt.Errorf("read pricing file: %w", err)
	}
	var override Pricing
	if err := yaml.Unmarshal(raw, &override); err != nil {
		return Pricing{}, fmt.Errorf("parse pricing file: %w", err)
	}
	for k, v := range override.Models {
		pricing.Models[strings.ToLower(k)] = v
	}
	for k, v := range override.Providers {
		pricing.Providers[strings.ToLower(k)] = v
	}
	return pricing, nil
}

// RateFor returns the model rate, falling back to the provider rate.
func (p Pricing) RateFor(provider llm.Provider, model string) (Rate, bool) {
	key := strings.ToLower(string(provider) + "/" + strings.TrimSpace(model))
	if r, ok := p.Models[key]; ok {
		return r, true
	}
	r, ok := p.Providers[strings.ToLower(string(provider))]
	return r, ok
}

// EstimateCost prices a call. With only a total known, 30% is billed as input and 70% as output.
func (p Pricing) EstimateCost(res llm.Result) float64 {
	if res.CacheHit {
		return 0
	}
	rate, ok := p.RateFor(res.Provider, res.Model)
	if !ok {
		return 0
	}
	var in, out float64
	if res.InputTokens != nil && res.OutputTokens != nil {
		in, out = float64(*res.InputTokens), float64(*res.OutputTokens)
	} else {
		total := float64(res.TotalTokens)
		in, out = total*0.3, total*0.7
	}
	return (in*rate.InputPerMillion + out*rate.OutputPerMillion) / 1_000_000
}
