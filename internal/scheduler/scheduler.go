// Package scheduler drives the pipeline from a cron schedule and serializes
// runs so that at most one is in flight.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/semaphore"

	"actcal/internal/errs"
	appLog "actcal/internal/log"
	"actcal/internal/model"
)

// DefaultSpec fires at the top of every hour.
const DefaultSpec = "0 * * * *"

// Runner is the part of the orchestrator the scheduler drives.
type Runner interface {
	RunCurrentHour(ctx context.Context) error
	RunRange(ctx context.Context, start, end time.Time) error
	Timeline(ctx context.Context, date time.Time) (model.Timeline, error)
	DailyDigest(ctx context.Context, date time.Time) (string, error)
}

// Scheduler owns the cron ticker and the single-run guard.
type Scheduler struct {
	runner Runner
	cron   *cron.Cron
	guard  *semaphore.Weighted

	// base is cancelled by Stop so a tick's run ends with the scheduler.
	base   context.Context
	cancel context.CancelFunc
}

// New registers runner on spec in loc. An empty spec means DefaultSpec.
func New(runner Runner, spec string, loc *time.Location) (*Scheduler, error) {
	if spec == "" {
		spec = DefaultSpec
	}
	if loc == nil {
		loc = time.Local
	}

	logger := appLog.CronLogger{}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger)),
	)

	base, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		runner: runner,
		cron:   c,
		guard:  semaphore.NewWeighted(1),
		base:   base,
		cancel: cancel,
	}
	if _, err := c.AddFunc(spec, s.tick); err != nil {
		cancel()
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start begins ticking in the background.
func (s *Scheduler) Start() {
	appLog.Info("scheduler started", "entries", len(s.cron.Entries()))
	s.cron.Start()
}

// Stop halts the ticker, cancels an in-flight tick and waits for it to
// return or for ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	s.cancel()
	select {
	case <-done.Done():
		appLog.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// tick runs the current hour unless a run is already in flight, in which
// case the tick is dropped.
func (s *Scheduler) tick() {
	if !s.guard.TryAcquire(1) {
		appLog.Info("scheduler tick dropped; a run is in progress")
		return
	}
	defer s.guard.Release(1)

	start := time.Now()
	if err := s.runner.RunCurrentHour(s.base); err != nil {
		appLog.Error("scheduled run failed", err, "elapsed", time.Since(start).String())
		return
	}
	appLog.Info("scheduled run completed", "elapsed", time.Since(start).String())
}

// acquire waits for the run guard. A cancelled wait is reported as busy.
func (s *Scheduler) acquire(ctx context.Context) error {
	if err := s.guard.Acquire(ctx, 1); err != nil {
		return &errs.Error{Kind: errs.KindBusy, Err: fmt.Errorf("waiting for running pipeline: %w", err)}
	}
	return nil
}

// RunNow processes the current hour on demand, waiting for any in-flight
// run to finish first.
func (s *Scheduler) RunNow(ctx context.Context) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.guard.Release(1)
	return s.runner.RunCurrentHour(ctx)
}

// RunRange backfills [start, end) on demand under the run guard.
func (s *Scheduler) RunRange(ctx context.Context, start, end time.Time) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.guard.Release(1)
	return s.runner.RunRange(ctx, start, end)
}

// Timeline is read-only and is not serialized with runs.
func (s *Scheduler) Timeline(ctx context.Context, date time.Time) (model.Timeline, error) {
	return s.runner.Timeline(ctx, date)
}

// DailyDigest is read-only and is not serialized with runs.
func (s *Scheduler) DailyDigest(ctx context.Context, date time.Time) (string, error) {
	return s.runner.DailyDigest(ctx, date)
}
