package model

import "time"

// ActivityEvent is one sample reported by the desktop activity tracker.
// App and Title are empty when the tracker did not report them.
type ActivityEvent struct {
	Duration float64 // seconds
	App      string
	Title    string
}

// TimeWindow is a half-open interval [Start, End).
type TimeWindow struct {
	Start time.Time
	End   time.Time
}

// Valid reports whether End is strictly after Start.
func (w TimeWindow) Valid() bool {
	return w.End.After(w.Start)
}

// Duration returns End - Start.
func (w TimeWindow) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// AggregationResult is the compact and detailed rendition of one window's
// activity. TitleLine becomes the calendar event summary and DetailText is
// the summarizer input.
type AggregationResult struct {
	TitleLine  string
	DetailText string
	// Idle is true when no activity time was observed.
	Idle bool
}

// DerivedEvent is what the pipeline writes to the calendar sink.
type DerivedEvent struct {
	Summary     string
	Description string
	Window      TimeWindow
}

// CalendarToken is the bearer credential supplied by the token gate.
type CalendarToken struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
}

// Expired reports whether the token is past its expiry at now. A zero
// Expiry never expires.
func (t CalendarToken) Expired(now time.Time) bool {
	if t.Expiry.IsZero() {
		return false
	}
	return now.After(t.Expiry)
}
