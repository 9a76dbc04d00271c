package pipeline

import (
	"context"
	"sort"
	"time"

	"actcal/internal/model"
)

// MultiSource reads several calendars and merges their events by start.
// Any failing source fails the whole read.
type MultiSource []Source

func (m MultiSource) ListEvents(ctx context.Context, accessToken string, w model.TimeWindow) ([]model.CalendarEventRef, error) {
	out := make([]model.CalendarEventRef, 0)
	for _, src := range m {
		evs, err := src.ListEvents(ctx, accessToken, w)
		if err != nil {
			return nil, err
		}
		out = append(out, evs...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return sortKey(out[i]).Before(sortKey(out[j]))
	})
	return out, nil
}

// sortKey puts whole-day events at UTC midnight of their date, ahead of
// timed events that start later the same day.
func sortKey(ev model.CalendarEventRef) time.Time {
	if ev.Start.IsDate() {
		t, _ := time.Parse("2006-01-02", ev.Start.Date)
		return t
	}
	return ev.Start.DateTime
}
