package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"actcal/internal/config"
	appLog "actcal/internal/log"
)

var (
	configPath string
	debug      bool

	rootCmd = &cobra.Command{
		Use:   "actcal",
		Short: "Log desktop activity into your calendar",
		Long: `actcal reads window activity from ActivityWatch, summarizes each hour with a
local Ollama model and writes one calendar event per hour. It can also show a
day of your calendar as merged hour blocks.

Examples:
  actcal serve                                         # hourly runs + HTTP surface
  actcal run                                           # process the last completed hour
  actcal backfill --start 2025-05-06T08:00 --end 2025-05-06T18:00
  actcal timeline --date 2025-05-06
  actcal token set --access ya29... --expiry 2025-05-06T18:00:00Z`,
		SilenceUsage: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			if debug {
				appLog.SetLevel(appLog.LevelDebug)
			}
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath(),
		"path to the YAML config file (created with defaults if missing)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// loadConfig reads the config file named by --config.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", configPath, err)
	}
	return cfg, nil
}

// signalContext is cancelled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		appLog.Info("shutting down", "reason", context.Cause(ctx))
	}()
	return ctx, cancel
}
