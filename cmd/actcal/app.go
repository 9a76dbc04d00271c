package main

import (
	"io"
	"os"
	"time"

	"actcal/internal/activity"
	"actcal/internal/aggregate"
	"actcal/internal/config"
	"actcal/internal/gcal"
	"actcal/internal/ics"
	appLog "actcal/internal/log"
	"actcal/internal/pipeline"
	"actcal/internal/scheduler"
	"actcal/internal/summary"
	"actcal/internal/token"
)

// app is the wired object graph for one process.
type app struct {
	cfg   *config.Config
	loc   *time.Location
	orch  *pipeline.Orchestrator
	sched *scheduler.Scheduler

	closers []io.Closer
}

type appOptions struct {
	// echo, when true, prints streamed summarizer tokens to stderr.
	echo bool
}

func newApp(cfg *config.Config, opts appOptions) (*app, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, loc: loc}

	var observer summary.Observer
	if opts.echo {
		observer = summary.ObserverFunc(func(tok string) { _, _ = io.WriteString(os.Stderr, tok) })
	}
	narrator := summary.NewOllama(summary.OllamaOptions{
		BaseURL:  cfg.Summarizer.URL,
		Model:    cfg.Summarizer.Model,
		Stream:   cfg.Summarizer.Stream,
		Observer: observer,
		Timeout:  cfg.Summarizer.Timeout(),
	})

	var (
		gate   token.Gate
		sink   pipeline.Sink
		source pipeline.Source
	)
	switch cfg.Calendar.Backend {
	case config.BackendICS:
		store := ics.NewFileStore(cfg.Calendar.ICSPath, loc)
		gate, sink, source = token.Static{}, store, store
	default:
		tokens, err := token.Open(cfg.TokenDB)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, tokens)
		client := gcal.NewClient(cfg.Calendar.APIBase, cfg.Calendar.CalendarID)
		gate, sink, source = tokens, client, client
	}

	if subs := subscriptionSources(cfg); len(subs) > 0 {
		source = pipeline.MultiSource{source, ics.NewSubscriptions(ics.NewFetcher(cfg.CacheDir), subs, loc)}
	}

	a.orch = pipeline.New(pipeline.Options{
		Gate:       gate,
		Activity:   activity.NewClient(cfg.ActivityWatch.URL, cfg.ActivityWatch.Bucket),
		Summarizer: narrator,
		Reviewer:   narrator.DayReviewer(),
		Sink:       sink,
		Source:     source,
		Browsers:   aggregate.NewBrowserSet(cfg.Browsers...),
		Location:   loc,
		MaxChars:   cfg.Summarizer.MaxChars,
	})

	a.sched, err = scheduler.New(a.orch, cfg.Schedule, loc)
	if err != nil {
		a.Close()
		return nil, err
	}

	appLog.Info("actcal configured",
		"calendar", cfg.Calendar.Backend,
		"timezone", loc.String(),
		"schedule", cfg.Schedule,
		"subscriptions", len(cfg.Subscriptions),
		"summarizer", cfg.Summarizer.Model,
	)
	return a, nil
}

func subscriptionSources(cfg *config.Config) []ics.Source {
	out := make([]ics.Source, 0, len(cfg.Subscriptions))
	for _, s := range cfg.Subscriptions {
		if s.URL == "" {
			continue
		}
		out = append(out, ics.Source{ID: s.ID, URL: s.URL})
	}
	return out
}

func (a *app) Close() {
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			appLog.Error("close failed", err)
		}
	}
}
