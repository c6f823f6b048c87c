package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/etzlertech/rancheye-02-analysis/internal/bootstrap"
	"github.com/etzlertech/rancheye-02-analysis/internal/shared/config"
	"github.com/etzlertech/rancheye-02-analysis/internal/shared/telemetry"
)

// buildApp is swapped in tests.
var buildApp = bootstrap.Build

func newRootCommand() *cobra.Command {
	var logLevel string
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "RanchEye trail-camera analysis worker",
		Long: `Runs trail-camera image analysis tasks through one or more vision models,
reconciles their answers, and raises alerts for high-confidence findings.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); defaults to LOG_LEVEL")

	run := newRunCommand(&logLevel)
	cmd.RunE = run.RunE
	cmd.AddCommand(run)
	cmd.AddCommand(newOnceCommand(&logLevel))
	cmd.AddCommand(newImageCommand(&logLevel))
	cmd.AddCommand(newRegisterCommand(&logLevel))
	cmd.AddCommand(newSeedCommand(&logLevel))
	cmd.AddCommand(newCostsCommand(&logLevel))
	return cmd
}

// loadApp reads configuration, applies the log level, and wires dependencies.
func loadApp(ctx context.Context, logLevel string) (*bootstrap.App, error) {
	cfg := config.Load()
	if logLevel == "" {
		logLevel = cfg.LogLevel
	}
	telemetry.SetLevel(logLevel)
	return buildApp(ctx, cfg)
}
