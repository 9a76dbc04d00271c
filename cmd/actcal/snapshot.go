package main

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/spf13/cobra"

	"actcal/internal/capture"
	appLog "actcal/internal/log"
	"actcal/internal/web"
)

var (
	snapshotOut  string
	snapshotDate string
	snapshotURL  string

	snapshotCmd = &cobra.Command{
		Use:   "snapshot",
		Short: "Render a day's timeline page to a PNG with headless Chromium",
		Long: `Snapshot serves the timeline page on a throwaway local listener (or uses
--url to point at a running "actcal serve") and captures it as a PNG.`,
		RunE: runSnapshot,
	}
)

func init() {
	snapshotCmd.Flags().StringVar(&snapshotOut, "out", "", "output PNG (default next to the config file)")
	snapshotCmd.Flags().StringVar(&snapshotDate, "date", "", "day to render (YYYY-MM-DD, default today)")
	snapshotCmd.Flags().StringVar(&snapshotURL, "url", "", "base URL of a running server")
	rootCmd.AddCommand(snapshotCmd)
}

func runSnapshot(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	out := snapshotOut
	if out == "" {
		out = previewPath()
	}

	ctx, cancel := signalContext()
	defer cancel()

	opts := capture.Options{OutputPath: out, Timeout: time.Minute}
	base := snapshotURL
	if base == "" {
		a, err := newApp(cfg, appOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return err
		}
		srv := &http.Server{
			Handler:           web.NewServer(a.sched, web.Options{Location: a.loc}).Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				appLog.Error("snapshot listener failed", err)
			}
		}()
		defer srv.Close()
		base = "http://" + ln.Addr().String()
	} else if cfg.BasicAuth != nil {
		opts.Username, opts.Password = cfg.BasicAuth.Username, cfg.BasicAuth.Password
	}

	u, err := url.Parse(base)
	if err != nil {
		return fmt.Errorf("--url: %w", err)
	}
	u = u.JoinPath("timeline")
	if snapshotDate != "" {
		u.RawQuery = url.Values{"date": {snapshotDate}}.Encode()
	}
	opts.URL = u.String()

	if err := capture.Snapshot(ctx, opts); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}
