package analysis

import (
	"errors"
	"testing"
	"time"

	"github.com/etzlertech/rancheye-02-analysis/internal/llm"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{StatusPending, StatusProcessing, true},
		{StatusProcessing, StatusCompleted, true},
		{StatusProcessing, StatusFailed, true},
		{StatusPending, StatusCompleted, false},
		{StatusCompleted, StatusProcessing, false},
		{StatusFailed, StatusPending, false},
		{StatusProcessing, StatusPending, false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Fatalf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func validConfig() Config {
	return Config{
		ID:             "cfg-1",
		Name:           "Gate watch",
		Type:           TypeGateDetection,
		PromptTemplate: "Is the gate open?",
		Primary:        ModelRef{Provider: llm.ProviderOpenAI, Model: "gpt-4o-mini"},
		Threshold:      0.8,
		Active:         true,
	}
}

func onlyOpenAI(p llm.Provider) bool { return p == llm.ProviderOpenAI }

func TestConfigValidate(t *testing.T) {
	gemini := &ModelRef{Provider: llm.ProviderGemini, Model: "gemini-1.5-flash"}
	unknown := &ModelRef{Provider: "anthropic", Model: "claude"}
	openai := &ModelRef{Provider: llm.ProviderOpenAI, Model: "gpt-4o"}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "missing prompt", mutate: func(c *Config) { c.PromptTemplate = " " }, wantErr: true},
		{name: "unknown provider", mutate: func(c *Config) { c.Secondary = unknown }, wantErr: true},
		{name: "primary without adapter", mutate: func(c *Config) { c.Primary = *gemini }, wantErr: true},
		{name: "secondary without adapter", mutate: func(c *Config) { c.Secondary = gemini }},
		{name: "tiebreaker without secondary", mutate: func(c *Config) { c.Tiebreaker = openai }, wantErr: true},
		{name: "threshold out of range", mutate: func(c *Config) { c.Threshold = 1.5 }, wantErr: true},
		{name: "negative cooldown", mutate: func(c *Config) { c.AlertCooldown = -time.Minute }, wantErr: true},
		{name: "full chain", mutate: func(c *Config) { c.Secondary = openai; c.Tiebreaker = openai }},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate(onlyOpenAI)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidConfig) {
					t.Fatalf("expected ErrInvalidConfig, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestConfigAvailableDropsRolesWithoutAdapters(t *testing.T) {
	gemini := &ModelRef{Provider: llm.ProviderGemini, Model: "gemini-1.5-flash"}
	openai := &ModelRef{Provider: llm.ProviderOpenAI, Model: "gpt-4o"}

	tests := []struct {
		name           string
		secondary      *ModelRef
		tiebreaker     *ModelRef
		wantSecondary  bool
		wantTiebreaker bool
		wantDropped    int
	}{
		{name: "all available", secondary: openai, tiebreaker: openai, wantSecondary: true, wantTiebreaker: true},
		{name: "secondary missing drops tiebreaker", secondary: gemini, tiebreaker: openai, wantDropped: 2},
		{name: "tiebreaker missing", secondary: openai, tiebreaker: gemini, wantSecondary: true, wantDropped: 1},
		{name: "primary only", wantDropped: 0},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Secondary = tt.secondary
			cfg.Tiebreaker = tt.tiebreaker
			got, dropped := cfg.Available(onlyOpenAI)
			if (got.Secondary != nil) != tt.wantSecondary || (got.Tiebreaker != nil) != tt.wantTiebreaker {
				t.Fatalf("secondary=%v tiebreaker=%v", got.Secondary, got.Tiebreaker)
			}
			if len(dropped) != tt.wantDropped {
				t.Fatalf("dropped %v, want %d roles", dropped, tt.wantDropped)
			}
			if cfg.Secondary != tt.secondary {
				t.Fatalf("Available must not mutate the receiver")
			}
		})
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := validConfig()
	cfg.Threshold = 0
	if got := cfg.AlertThreshold(); got != DefaultThreshold {
		t.Fatalf("expected default threshold, got %v", got)
	}
	if !cfg.AppliesTo("any-camera") {
		t.Fatalf("expected unscoped config to apply to all cameras")
	}
	cfg.CameraName = "north-gate"
	if cfg.AppliesTo("south-pond") || !cfg.AppliesTo("north-gate") {
		t.Fatalf("expected camera scoping to be honored")
	}
}
