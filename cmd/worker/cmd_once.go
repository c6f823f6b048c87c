package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/etzlertech/rancheye-02-analysis/internal/processor"
)

func newOnceCommand(logLevel *string) *cobra.Command {
	return &cobra.Command{
		Use:   "once",
		Short: "Process one batch of pending tasks and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(cmd.Context(), *logLevel)
			if err != nil {
				return err
			}
			defer app.Close()

			report, err := app.Processor.ProcessBatch(cmd.Context())
			if err != nil {
				return err
			}
			printReport(cmd.OutOrStdout(), report)
			return nil
		},
	}
}

func newImageCommand(logLevel *string) *cobra.Command {
	return &cobra.Command{
		Use:   "image <image-id>",
		Short: "Create and run tasks for one image under every active config",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(cmd.Context(), *logLevel)
			if err != nil {
				return err
			}
			defer app.Close()

			report, err := app.Processor.ProcessImage(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printReport(cmd.OutOrStdout(), report)
			return nil
		},
	}
}

func printReport(w io.Writer, r processor.BatchReport) {
	fmt.Fprintf(w, "fetched=%d created=%d started=%d completed=%d failed=%d skipped=%d duration=%s\n",
		r.Fetched, r.Created, r.Started, r.Completed, r.Failed, r.Skipped, r.Duration.Round(time.Millisecond))
}
