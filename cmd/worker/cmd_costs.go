package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newCostsCommand(logLevel *string) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "costs",
		Short: "Print per-provider usage and estimated cost for a day",
		RunE: func(cmd *cobra.Command, args []string) error {
			day := time.Now().UTC()
			if date != "" {
				parsed, err := time.Parse(time.DateOnly, date)
				if err != nil {
					return fmt.Errorf("invalid --date %q: want YYYY-MM-DD", date)
				}
				day = parsed
			}

			app, err := loadApp(cmd.Context(), *logLevel)
			if err != nil {
				return err
			}
			defer app.Close()

			records, err := app.Tracker.Daily(cmd.Context(), day)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PROVIDER\tMODEL\tCALLS\tTOKENS\tCOST_USD")
			total := 0.0
			for _, r := range records {
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%.4f\n", r.Provider, r.Model, r.AnalysisCount, r.TokensUsed, r.EstimatedCost)
				total += r.EstimatedCost
			}
			fmt.Fprintf(w, "TOTAL\t\t\t\t%.4f\n", total)
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "UTC day as YYYY-MM-DD; defaults to today")
	return cmd
}
