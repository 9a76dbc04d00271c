package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"actcal/internal/window"
)

var (
	echoTokens    bool
	backfillStart string
	backfillEnd   string

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Process the last completed hour once",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := newApp(cfg, appOptions{echo: echoTokens})
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := signalContext()
			defer cancel()
			return a.sched.RunNow(ctx)
		},
	}

	backfillCmd = &cobra.Command{
		Use:   "backfill",
		Short: "Post one event per hour for a past range",
		Long: `Backfill splits [start, end) into hourly windows and processes them oldest
first. Times are RFC3339 or local wall-clock (2006-01-02T15:04). The first
failing window stops the backfill; Ctrl-C stops it between windows.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := newApp(cfg, appOptions{echo: echoTokens})
			if err != nil {
				return err
			}
			defer a.Close()

			start, err := window.ParseInstant(backfillStart, a.loc)
			if err != nil {
				return fmt.Errorf("--start: %w", err)
			}
			end, err := window.ParseInstant(backfillEnd, a.loc)
			if err != nil {
				return fmt.Errorf("--end: %w", err)
			}

			ctx, cancel := signalContext()
			defer cancel()
			return a.sched.RunRange(ctx, start, end)
		},
	}
)

func init() {
	runCmd.Flags().BoolVar(&echoTokens, "echo", false, "print streamed summarizer output to stderr")

	backfillCmd.Flags().BoolVar(&echoTokens, "echo", false, "print streamed summarizer output to stderr")
	backfillCmd.Flags().StringVar(&backfillStart, "start", "", "range start (inclusive)")
	backfillCmd.Flags().StringVar(&backfillEnd, "end", "", "range end (exclusive)")
	_ = backfillCmd.MarkFlagRequired("start")
	_ = backfillCmd.MarkFlagRequired("end")

	rootCmd.AddCommand(runCmd, backfillCmd)
}
