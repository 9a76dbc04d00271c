package main

import (
	"context"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	appLog "actcal/internal/log"
	"actcal/internal/web"
)

var (
	listenAddr string

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the hourly scheduler and the HTTP surface",
		RunE:  runServe,
	}
)

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "HTTP listen address (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if listenAddr != "" {
		cfg.Listen = listenAddr
	}

	a, err := newApp(cfg, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signalContext()
	defer cancel()

	srv := web.NewServer(a.sched, web.Options{
		Listen:      cfg.Listen,
		BasicAuth:   cfg.BasicAuth,
		Location:    a.loc,
		PreviewPath: previewPath(),
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.ListenAndServe(gctx)
	})
	g.Go(func() error {
		a.sched.Start()
		<-gctx.Done()
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer stopCancel()
		return a.sched.Stop(stopCtx)
	})

	err = g.Wait()
	appLog.Info("actcal exiting")
	return err
}

// previewPath is where snapshot writes and /preview.png reads.
func previewPath() string {
	return filepath.Join(filepath.Dir(configPath), "timeline.png")
}
