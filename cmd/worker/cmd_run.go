package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/etzlertech/rancheye-02-analysis/internal/shared/server"
	"github.com/etzlertech/rancheye-02-analysis/internal/shared/telemetry"
)

const shutdownTimeout = 30 * time.Second

func newRunCommand(logLevel *string) *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process pending tasks continuously until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := loadApp(ctx, *logLevel)
			if err != nil {
				return err
			}
			defer func() {
				if err := app.Close(); err != nil {
					telemetry.Warn("worker.close_failed", map[string]any{"error": err.Error()})
				}
			}()

			if interval <= 0 {
				interval = app.Config.AnalysisInterval
			}

			var srv *http.Server
			if app.Config.OpsAddr != "" {
				srv = &http.Server{
					Addr:              server.Addr(app.Config.OpsAddr),
					Handler:           app.Router,
					ReadHeaderTimeout: 5 * time.Second,
				}
				go func() {
					telemetry.Info("ops.listen", map[string]any{"addr": srv.Addr})
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						telemetry.Error("ops.listen_failed", map[string]any{"error": err.Error()})
					}
				}()
			}

			telemetry.Info("worker.started", map[string]any{
				"interval_s":  interval.Seconds(),
				"batch_size":  app.Config.BatchSize,
				"max_workers": app.Config.MaxWorkers,
				"dry_run":     app.Config.DryRun,
			})
			runErr := app.Processor.RunContinuous(ctx, interval)

			if srv != nil {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					telemetry.Warn("ops.shutdown_failed", map[string]any{"error": err.Error()})
				}
			}
			telemetry.Info("worker.stopped", nil)
			return runErr
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 0, "Time between batches; defaults to ANALYSIS_INTERVAL_MINUTES")
	return cmd
}
