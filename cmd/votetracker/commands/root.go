package commands

import (
	"context"

	"votetracker/internal/config"
	"votetracker/lib/configutil"
	"votetracker/lib/telemetry"
	"votetracker/lib/util/serviceutil"

	"github.com/spf13/cobra"
)

var (
	configPath    string
	telemetryPath string
	verbose       bool
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.json5", "The config file, a .local variant next to it overrides its fields.")
	rootCmd.PersistentFlags().StringVar(&telemetryPath, "telemetry", "telemetry.json5", "The OTLP exporter config, telemetry stays off when it does not exist.")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enables debug logging.")
}

var rootCmd = &cobra.Command{
	Use:           "votetracker",
	Short:         "votetracker polls contest submission pages and tracks their vote counts.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// loadConfig reads the config named by the flags and installs the logger it asks for.
func loadConfig() (config.Config, error) {
	path := configPath
	if !rootCmd.PersistentFlags().Changed("config") {
		found, err := configutil.FindRecursively(configPath)
		if err == nil {
			path = found
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	if verbose {
		cfg.Verbose = true
	}
	telemetry.InitSlog(cfg.Verbose)
	return cfg, nil
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		serviceutil.Fatal("votetracker failed", err)
	}
}
