package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/morabah/posalpro-app-sub013/internal/config"
	"github.com/morabah/posalpro-app-sub013/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "posalpro",
	Short: "PosalPro API server",
	Long: `PosalPro serves the proposal API behind a route pipeline that authenticates
callers, validates input, replays idempotent requests and normalises errors.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to the YAML configuration file")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "", "Log format (text, json)")
}

// loadConfig reads the configuration file and environment, then applies
// any flags the user set explicitly.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}

	overrides := map[string]*string{
		"log-level":  &cfg.Log.Level,
		"log-format": &cfg.Log.Format,
		"addr":       &cfg.Addr,
		"routes":     &cfg.RoutesFile,
	}
	for name, dst := range overrides {
		if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
			*dst = f.Value.String()
		}
	}
	return cfg, cfg.Validate()
}

func newLogger(cfg config.Config) *slog.Logger {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	return logging.NewWithFormat(os.Stderr, level, cfg.Log.Format)
}
