package commands

import (
	"time"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(onceCmd)
}

var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "Runs a single cycle and prints the leaderboard.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		a, err := openApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.close()

		report := a.scheduler.RefreshNow(cmd.Context())
		renderSnapshot(cmd.OutOrStdout(), report.Snapshot, time.Now())
		if report.Failure != nil {
			return report.Failure
		}
		return nil
	},
}
