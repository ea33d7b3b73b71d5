package main

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"career-twin/internal/analytics"
	"career-twin/internal/storage"
)

func newStatsCmd(a *app) *cobra.Command {
	var (
		day    string
		report bool
		send   bool
	)
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Aggregate the recorded sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := storage.Open(a.cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			entries, err := store.LoadSessions(cmd.Context())
			if err != nil {
				return err
			}

			var stats *analytics.Stats
			if day != "" {
				date, err := time.Parse("2006-01-02", day)
				if err != nil {
					return errors.Wrapf(err, "invalid --day %q", day)
				}
				stats = analytics.AnalyzeDay(entries, date)
			} else {
				stats = analytics.Aggregate(entries)
			}

			if send {
				return reportNotifier(a.cfg).Notify(cmd.Context(), stats.GenerateReportSummary())
			}
			if report {
				fmt.Fprintln(cmd.OutOrStdout(), stats.GenerateReportSummary())
				return nil
			}
			js, err := stats.ToJSON()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), js)
			return nil
		},
	}
	cmd.Flags().StringVar(&day, "day", "", "restrict to one UTC day (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&report, "report", false, "print the plain-text report instead of JSON")
	cmd.Flags().BoolVar(&send, "send", false, "send the report through the configured notifier")
	return cmd
}
