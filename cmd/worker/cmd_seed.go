package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/etzlertech/rancheye-02-analysis/internal/analysis"
	"github.com/etzlertech/rancheye-02-analysis/internal/llm"
)

type seedFile struct {
	Configs []analysis.Config `yaml:"configs"`
}

func newSeedCommand(logLevel *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed-configs <file.yaml>",
		Short: "Create or update analysis configs from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open seed file: %w", err)
			}
			defer f.Close()

			configs, err := loadConfigs(f)
			if err != nil {
				return err
			}

			app, err := loadApp(cmd.Context(), *logLevel)
			if err != nil {
				return err
			}
			defer app.Close()

			for _, c := range configs {
				if err := app.Repo.UpsertConfig(cmd.Context(), c); err != nil {
					return fmt.Errorf("upsert config %s: %w", c.ID, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "seeded %s (%s) primary=%s\n", c.ID, c.Type, c.Primary)
			}
			return nil
		},
	}
}

// loadConfigs decodes and validates seed configs. Missing ids are generated and
// missing prompts fall back to the built-in prompt for the analysis type.
// Provider availability is checked when tasks run, not here.
func loadConfigs(r io.Reader) ([]analysis.Config, error) {
	var file seedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode seed file: %w", err)
	}
	if len(file.Configs) == 0 {
		return nil, fmt.Errorf("seed file has no configs")
	}

	out := make([]analysis.Config, 0, len(file.Configs))
	for i, c := range file.Configs {
		if strings.TrimSpace(c.ID) == "" {
			c.ID = uuid.NewString()
		}
		if strings.TrimSpace(c.PromptTemplate) == "" {
			prompt, ok := llm.DefaultPrompt(string(c.Type))
			if !ok {
				return nil, fmt.Errorf("config %d (%s): no prompt and no built-in prompt for type %q", i, c.ID, c.Type)
			}
			c.PromptTemplate = prompt
		}
		if err := c.Validate(nil); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}
