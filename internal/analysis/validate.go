package analysis

import (
	"fmt"
	"strings"

	"github.com/etzlertech/rancheye-02-analysis/internal/llm"
)

// Validate checks the config against the set of providers that have adapters.
// Unknown provider names are rejected for every role. A known provider without
// an adapter is only an error for the primary; Available drops the other roles.
func (c Config) Validate(supported func(llm.Provider) bool) error {
	if strings.TrimSpace(c.ID) == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidConfig)
	}
	if strings.TrimSpace(string(c.Type)) == "" {
		return fmt.Errorf("%w: config %s missing analysis type", ErrInvalidConfig, c.ID)
	}
	if strings.TrimSpace(c.PromptTemplate) == "" {
		return fmt.Errorf("%w: config %s missing prompt", ErrInvalidConfig, c.ID)
	}
	if err := validateRef("primary", c.Primary, supported); err != nil {
		return fmt.Errorf("config %s: %w", c.ID, err)
	}
	if c.Secondary != nil {
		if err := validateRef("secondary", *c.Secondary, nil); err != nil {
			return fmt.Errorf("config %s: %w", c.ID, err)
		}
	}
	if c.Tiebreaker != nil {
		if c.Secondary == nil {
			return fmt.Errorf("%w: config %s has a tiebreaker without a secondary", ErrInvalidConfig, c.ID)
		}
		if err := validateRef("tiebreaker", *c.Tiebreaker, nil); err != nil {
			return fmt.Errorf("config %s: %w", c.ID, err)
		}
	}
	if c.Threshold < 0 || c.Threshold > 1 {
		return fmt.Errorf("%w: config %s threshold %v outside [0,1]", ErrInvalidConfig, c.ID, c.Threshold)
	}
	if c.AlertCooldown < 0 {
		return fmt.Errorf("%w: config %s negative alert cooldown", ErrInvalidConfig, c.ID)
	}
	return nil
}

func validateRef(role string, ref ModelRef, supported func(llm.Provider) bool) error {
	if ref.IsZero() {
		return fmt.Errorf("%w: %s model missing", ErrInvalidConfig, role)
	}
	if strings.TrimSpace(ref.Model) == "" {
		return fmt.Errorf("%w: %s model name missing", ErrInvalidConfig, role)
	}
	if _, err := llm.ParseProvider(string(ref.Provider)); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, role, err)
	}
	if supported != nil && !supported(ref.Provider) {
		return fmt.Errorf("%w: %s provider %s has no configured adapter", ErrInvalidConfig, role, ref.Provider)
	}
	return nil
}

// Available returns the config with the secondary and tiebreaker removed when
// their provider has no adapter, and the roles it removed. Without a secondary
// the tiebreaker has nothing to break, so it goes too.
func (c Config) Available(supported func(llm.Provider) bool) (Config, []string) {
	if supported == nil {
		return c, nil
	}
	var dropped []string
	if c.Secondary != nil && !supported(c.Secondary.Provider) {
		c.Secondary = nil
		dropped = append(dropped, "secondary")
	}
	if c.Tiebreaker != nil && (c.Secondary == nil || !supported(c.Tiebreaker.Provider)) {
		c.Tiebreaker = nil
		dropped = append(dropped, "tiebreaker")
	}
	return c, dropped
}
