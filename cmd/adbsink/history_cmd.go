package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/adbsink/adbsink/internal/history"
)

func init() {
	rootCmd.AddCommand(newHistoryCmd())
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent sync runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			limit, _ := cmd.Flags().GetInt("limit")
			failedOnly, _ := cmd.Flags().GetBool("failed")

			store := history.NewStore(filepath.Join(appDir(), "history.db"))
			if err := store.Open(); err != nil {
				return err
			}
			defer store.Close()

			if failedOnly {
				failures, err := store.RecentFailures(limit)
				if err != nil {
					return err
				}
				printFailures(cmd.OutOrStdout(), failures)
				return nil
			}

			runs, err := store.Runs(limit)
			if err != nil {
				return err
			}
			printRuns(cmd.OutOrStdout(), runs)
			return nil
		},
	}
	cmd.Flags().Int("limit", 20, "maximum rows to show")
	cmd.Flags().Bool("failed", false, "show recent failed entries instead of runs")
	return cmd
}
