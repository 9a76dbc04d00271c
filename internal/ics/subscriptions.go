package ics

import (
	"context"
	"errors"
	"time"

	"actcal/internal/errs"
	appLog "actcal/internal/log"
	"actcal/internal/model"
)

// Subscriptions reads events from a set of remote ICS feeds. It needs no
// credential; the access token argument is ignored.
type Subscriptions struct {
	fetcher *Fetcher
	sources []Source
	loc     *time.Location
}

func NewSubscriptions(fetcher *Fetcher, sources []Source, loc *time.Location) *Subscriptions {
	if loc == nil {
		loc = time.Local
	}
	return &Subscriptions{fetcher: fetcher, sources: sources, loc: loc}
}

// ListEvents fetches every feed, expands it over w and returns the merged
// occurrences ordered by start. A feed that fails is logged and skipped;
// only when every feed fails is the error returned.
func (s *Subscriptions) ListEvents(ctx context.Context, _ string, w model.TimeWindow) ([]model.CalendarEventRef, error) {
	parsed := make([]ParsedEvent, 0)
	var failures []error

	for _, src := range s.sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := s.fetcher.Fetch(ctx, src)
		if err != nil {
			appLog.Error("ics subscription fetch failed", err, "id", src.ID, "url", redactURL(src.URL))
			failures = append(failures, err)
			continue
		}
		evs, err := ParseICS(src, res.Body)
		if err != nil {
			failures = append(failures, errs.Malformed(errs.SourceCalendar, err))
			continue
		}
		parsed = append(parsed, evs...)
	}

	if len(s.sources) > 0 && len(failures) == len(s.sources) {
		return nil, errors.Join(failures...)
	}

	return ExpandOccurrences(parsed, ExpandConfig{
		Location:   s.loc,
		RangeStart: w.Start,
		RangeEnd:   w.End,
	})
}
