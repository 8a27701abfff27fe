package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"votetracker/internal/components/telemetry"
	"votetracker/internal/samplestore"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var historyLimit *int

func init() {
	historyLimit = historyCmd.Flags().IntP("limit", "n", 20, "How many samples to print.")
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history <submission>",
	Short: "Prints the recorded samples of a submission, newest first.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if !cfg.Database.Enabled() {
			return fmt.Errorf("no database configured, nothing has been recorded")
		}
		registry, err := cfg.Registry()
		if err != nil {
			return err
		}
		entity, ok := registry.Lookup(args[0])
		if !ok {
			return fmt.Errorf("no submission matches %q", args[0])
		}

		database, err := cfg.Database.OpenDB()
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer database.Close()

		ctx := cmd.Context()
		store := samplestore.NewStore(database, telemetry.NewSlogAPI(slog.Default()))
		err = store.Migrate(ctx)
		if err != nil {
			return err
		}

		return printHistory(ctx, cmd, store, entity.ID, entity.Name)
	},
}

func printHistory(ctx context.Context, cmd *cobra.Command, store samplestore.Store, id, name string) error {
	samples, err := store.Pull(ctx, id, *historyLimit)
	if err != nil {
		return err
	}
	stats, err := store.Stats(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s (%s), %d cycles recorded, %d failed\n", name, id, stats.Cycles, stats.FailedCycles)

	t := newTable(out)
	t.AppendHeader(table.Row{"Time", "Votes", "Views", "Trigger", "Result"})
	for _, s := range samples {
		trigger := "scheduled"
		if s.Manual {
			trigger = "manual"
		}
		result := "ok"
		if !s.Success {
			result = s.FailureReason
		}
		t.AppendRow(table.Row{
			s.Time.Format(time.DateTime),
			formatCount(s.Votes),
			formatCount(s.Views),
			trigger,
			result,
		})
	}
	t.Render()
	return nil
}
