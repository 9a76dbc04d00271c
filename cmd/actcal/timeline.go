package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"actcal/internal/model"
	"actcal/internal/window"
)

var (
	viewDate string

	timelineCmd = &cobra.Command{
		Use:   "timeline",
		Short: "Print a day of the calendar as merged hour blocks",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, date, cleanup, err := dayCommandSetup()
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, cancel := signalContext()
			defer cancel()
			tl, err := a.sched.Timeline(ctx, date)
			if err != nil {
				return err
			}
			printTimeline(cmd.OutOrStdout(), tl, a.loc)
			return nil
		},
	}

	digestCmd = &cobra.Command{
		Use:   "digest",
		Short: "Ask the summarizer for a review of a day",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, date, cleanup, err := dayCommandSetup()
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, cancel := signalContext()
			defer cancel()
			d, err := a.sched.DailyDigest(ctx, date)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), d)
			return nil
		},
	}
)

func init() {
	for _, c := range []*cobra.Command{timelineCmd, digestCmd} {
		c.Flags().StringVar(&viewDate, "date", "", "day to show (YYYY-MM-DD, default today)")
		rootCmd.AddCommand(c)
	}
}

func dayCommandSetup() (*app, time.Time, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, time.Time{}, nil, err
	}
	a, err := newApp(cfg, appOptions{})
	if err != nil {
		return nil, time.Time{}, nil, err
	}
	date, err := window.ParseDate(viewDate, time.Now(), a.loc)
	if err != nil {
		a.Close()
		return nil, time.Time{}, nil, err
	}
	return a, date, a.Close, nil
}

func printTimeline(w io.Writer, tl model.Timeline, loc *time.Location) {
	fmt.Fprintf(w, "%s (%s)\n", tl.Date, tl.Timezone)
	for _, ev := range tl.AllDay {
		fmt.Fprintf(w, "  all day      %s\n", ev.Summary)
	}
	for _, b := range tl.Batches {
		fmt.Fprintf(w, "  %02d:00-%02d:59  ", b.StartHour, b.EndHour)
		if !b.IsEvent() {
			fmt.Fprintln(w, "free")
			continue
		}
		for i, ev := range b.Events {
			if i > 0 {
				fmt.Fprint(w, "               ")
			}
			fmt.Fprintf(w, "%s-%s %s\n",
				ev.Start.DateTime.In(loc).Format("15:04"), ev.End.DateTime.In(loc).Format("15:04"), ev.Summary)
		}
	}
}
