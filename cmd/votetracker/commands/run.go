package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"votetracker/internal/tracker"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(runCmd)
}

// dashboard prints the snapshot after every cycle.
type dashboard struct {
	mu  sync.Mutex
	out io.Writer
}

func (d *dashboard) OnCycle(ctx context.Context, report tracker.CycleReport) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	renderSnapshot(d.out, report.Snapshot, time.Now())
	return nil
}

func (d *dashboard) println(a ...any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprintln(d.out, a...)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Tracks votes until interrupted, controlled with start (s), stop (x), refresh (r) and quit (q) on stdin.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		board := &dashboard{out: cmd.OutOrStdout()}
		a, err := openApp(ctx, cfg, board)
		if err != nil {
			return err
		}
		defer a.close()

		var refreshes sync.WaitGroup
		defer func() {
			cancel()
			refreshes.Wait()
		}()

		if delay := cfg.AutoStartDelay(); delay >= 0 {
			go func() {
				select {
				case <-time.After(delay):
					a.scheduler.Start(ctx)
				case <-ctx.Done():
				}
			}()
		}

		board.println("Commands: start (s), stop (x), refresh (r), quit (q)")
		controls := readControls(ctx, os.Stdin)
		for {
			select {
			case <-ctx.Done():
				return nil
			case control, ok := <-controls:
				if !ok {
					// stdin closed, keep tracking until interrupted
					controls = nil
					continue
				}
				switch control {
				case controlStart:
					a.scheduler.Start(ctx)
				case controlStop:
					a.scheduler.Stop()
				case controlRefresh:
					refreshes.Add(1)
					go func() {
						defer refreshes.Done()
						a.scheduler.RefreshNow(ctx)
					}()
				case controlQuit:
					slog.Info("quitting")
					return nil
				default:
					board.println("Unknown command, expected start (s), stop (x), refresh (r) or quit (q)")
				}
			}
		}
	},
}
