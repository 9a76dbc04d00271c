// Package pipeline turns tracked desktop activity into calendar events and
// reads the calendar back as a batched day timeline.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"actcal/internal/activity"
	"actcal/internal/aggregate"
	"actcal/internal/errs"
	appLog "actcal/internal/log"
	"actcal/internal/model"
	"actcal/internal/summary"
	"actcal/internal/timeline"
	"actcal/internal/token"
	"actcal/internal/window"
)

const (
	// NoActivityTitle is posted for backfill windows with no activity events.
	NoActivityTitle = "No Activity"

	// NoEventsDigest is returned by DailyDigest for a day with no events.
	NoEventsDigest = "No events found for today."

	digestMaxChars = 4000

	// titleMaxChars caps the posted event title in runes.
	titleMaxChars = 120
)

// Sink receives derived events.
type Sink interface {
	CreateEvent(ctx context.Context, accessToken string, ev model.DerivedEvent) error
}

// Source lists calendar events overlapping a window, ordered by start.
type Source interface {
	ListEvents(ctx context.Context, accessToken string, w model.TimeWindow) ([]model.CalendarEventRef, error)
}

// Options wires an Orchestrator. Gate, Activity, Summarizer, Sink and
// Source are required.
type Options struct {
	Gate       token.Gate
	Activity   activity.Source
	Summarizer summary.Adapter
	// Reviewer writes the daily digest. Nil falls back to Summarizer.
	Reviewer summary.Adapter
	Sink     Sink
	Source   Source

	Browsers aggregate.BrowserSet
	Location *time.Location
	MaxChars int
	Now      func() time.Time
}

// Orchestrator sequences one pipeline run. It holds no per-run state and is
// safe for concurrent use; serializing runs is the Scheduler's job.
type Orchestrator struct {
	gate       token.Gate
	activity   activity.Source
	summarizer summary.Adapter
	reviewer   summary.Adapter
	sink       Sink
	source     Source

	browsers aggregate.BrowserSet
	loc      *time.Location
	maxChars int
	now      func() time.Time
}

func New(opts Options) *Orchestrator {
	o := &Orchestrator{
		gate:       opts.Gate,
		activity:   opts.Activity,
		summarizer: opts.Summarizer,
		reviewer:   opts.Reviewer,
		sink:       opts.Sink,
		source:     opts.Source,
		browsers:   opts.Browsers,
		loc:        opts.Location,
		maxChars:   opts.MaxChars,
		now:        opts.Now,
	}
	if o.reviewer == nil {
		o.reviewer = o.summarizer
	}
	if o.browsers == nil {
		o.browsers = aggregate.NewBrowserSet(aggregate.DefaultBrowsers...)
	}
	if o.loc == nil {
		o.loc = time.Local
	}
	if o.maxChars <= 0 {
		o.maxChars = summary.DefaultMaxChars
	}
	if o.now == nil {
		o.now = time.Now
	}
	return o
}

// Location is the zone the orchestrator aligns windows and days in.
func (o *Orchestrator) Location() *time.Location { return o.loc }

// accessToken reads the credential and refuses an expired one. It runs
// before any upstream call.
func (o *Orchestrator) accessToken(ctx context.Context) (string, error) {
	tok, err := o.gate.Token(ctx)
	if err != nil {
		return "", err
	}
	if now := o.now(); tok.Expired(now) {
		return "", errs.CredentialExpired("token expired at %s", tok.Expiry.UTC().Format(time.RFC3339))
	}
	return tok.AccessToken, nil
}

// RunCurrentHour processes the last completed hour. Any failing step aborts
// the run and nothing is posted.
func (o *Orchestrator) RunCurrentHour(ctx context.Context) error {
	tok, err := o.accessToken(ctx)
	if err != nil {
		return err
	}
	w := window.CurrentHour(o.now(), o.loc)
	return o.runWindow(ctx, tok, w, false)
}

// RunRange backfills [start, end) one hour at a time, oldest first. The
// first failing window stops the backfill; windows already posted stay
// posted. Cancellation is honored between windows.
func (o *Orchestrator) RunRange(ctx context.Context, start, end time.Time) error {
	tok, err := o.accessToken(ctx)
	if err != nil {
		return err
	}
	windows, err := window.SplitRange(start, end)
	if err != nil {
		return err
	}

	appLog.Info("backfill started", "start", start.Format(time.RFC3339), "end", end.Format(time.RFC3339),
		"windows", len(windows))
	for i, w := range windows {
		if err := ctx.Err(); err != nil {
			appLog.Info("backfill cancelled", "done", i, "windows", len(windows))
			return err
		}
		if err := o.runWindow(ctx, tok, w, true); err != nil {
			return fmt.Errorf("window %s: %w", w.Start.In(o.loc).Format(time.RFC3339), err)
		}
	}
	appLog.Info("backfill completed", "windows", len(windows))
	return nil
}

// runWindow is FetchActivity → Aggregate → Summarize → Post for one window.
// In backfill mode an empty activity list posts the "No Activity" pair;
// in either mode an idle aggregation never reaches the summarizer.
func (o *Orchestrator) runWindow(ctx context.Context, accessToken string, w model.TimeWindow, backfill bool) error {
	events, err := o.activity.Events(ctx, w)
	if err != nil {
		return err
	}

	var ev model.DerivedEvent
	switch agg := aggregate.Aggregate(events, o.browsers); {
	case backfill && len(events) == 0:
		ev = model.DerivedEvent{Summary: NoActivityTitle, Description: summary.NoActivity, Window: w}
	case agg.Idle:
		ev = model.DerivedEvent{Summary: agg.TitleLine, Description: agg.DetailText, Window: w}
	default:
		desc, err := summary.Narrate(ctx, o.summarizer, agg.DetailText, o.maxChars)
		if err != nil {
			return err
		}
		ev = model.DerivedEvent{Summary: agg.TitleLine, Description: desc, Window: w}
	}

	ev.Summary = clipTitle(ev.Summary, titleMaxChars)
	if err := o.sink.CreateEvent(ctx, accessToken, ev); err != nil {
		return err
	}
	appLog.Info("activity posted", "start", w.Start.In(o.loc).Format(time.RFC3339),
		"end", w.End.In(o.loc).Format(time.RFC3339), "summary", ev.Summary, "events", len(events))
	return nil
}

func clipTitle(s string, maxChars int) string {
	if utf8.RuneCountInString(s) <= maxChars {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:maxChars-1])) + "…"
}

// Timeline returns the batched view of the calendar day containing date.
func (o *Orchestrator) Timeline(ctx context.Context, date time.Time) (model.Timeline, error) {
	tok, err := o.accessToken(ctx)
	if err != nil {
		return model.Timeline{}, err
	}
	day := window.Day(date, o.loc)
	events, err := o.source.ListEvents(ctx, tok, day)
	if err != nil {
		return model.Timeline{}, err
	}
	return timeline.Build(day, events, o.loc), nil
}

// DailyDigest asks the reviewer for a critique of the day's calendar.
func (o *Orchestrator) DailyDigest(ctx context.Context, date time.Time) (string, error) {
	tok, err := o.accessToken(ctx)
	if err != nil {
		return "", err
	}
	day := window.Day(date, o.loc)
	events, err := o.source.ListEvents(ctx, tok, day)
	if err != nil {
		return "", err
	}
	if len(events) == 0 {
		return NoEventsDigest, nil
	}

	out, err := o.reviewer.Summarize(ctx, dayLog(events, o.loc))
	if err != nil {
		return "", err
	}
	return summary.Clean(out, digestMaxChars), nil
}

// dayLog renders events as one bullet per event, the way the reviewer
// prompt expects them.
func dayLog(events []model.CalendarEventRef, loc *time.Location) string {
	var b strings.Builder
	for _, ev := range events {
		b.WriteString("- ")
		if ev.AllDay() {
			b.WriteString("all day")
		} else {
			b.WriteString(ev.Start.DateTime.In(loc).Format("15:04"))
			b.WriteString("-")
			b.WriteString(ev.End.DateTime.In(loc).Format("15:04"))
		}
		b.WriteString(": ")
		b.WriteString(ev.Summary)
		if d := strings.TrimSpace(ev.Description); d != "" {
			b.WriteString("\n  ")
			b.WriteString(strings.ReplaceAll(d, "\n", "\n  "))
		}
		b.WriteString("\n")
	}
	return b.String()
}
