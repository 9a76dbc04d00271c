package ics

import (
	"errors"
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	appLog "actcal/internal/log"
	"actcal/internal/model"
)

const defaultMaxOccurrences = 5000

// ExpandConfig bounds an expansion.
type ExpandConfig struct {
	// Location is the zone occurrences are reported in. Nil means time.Local.
	Location *time.Location

	RangeStart time.Time
	RangeEnd   time.Time

	// MaxOccurrences caps instances per UID. Zero means defaultMaxOccurrences.
	MaxOccurrences int
}

// ExpandOccurrences turns parsed VEVENTs into concrete calendar events that
// overlap [RangeStart, RangeEnd), ordered by start. It applies RRULE,
// EXDATE and RECURRENCE-ID overrides. All-day occurrences come back with
// date-only start and end.
func ExpandOccurrences(events []ParsedEvent, cfg ExpandConfig) ([]model.CalendarEventRef, error) {
	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return nil, errors.New("expand: range end is before range start")
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.MaxOccurrences <= 0 {
		cfg.MaxOccurrences = defaultMaxOccurrences
	}

	bases := make(map[string][]ParsedEvent)
	overrides := make(map[string][]ParsedEvent)
	order := make([]string, 0)
	for _, ev := range events {
		if ev.IsOverride && ev.Recurrence != nil {
			overrides[ev.UID] = append(overrides[ev.UID], ev)
			continue
		}
		if _, seen := bases[ev.UID]; !seen {
			order = append(order, ev.UID)
		}
		bases[ev.UID] = append(bases[ev.UID], ev)
	}

	out := make([]model.CalendarEventRef, 0)
	for _, uid := range order {
		for _, ev := range bases[uid] {
			if ev.RawRRule == "" {
				if ref, ok := expandSingle(ev, overrides[uid], cfg); ok {
					out = append(out, ref)
				}
				continue
			}
			refs, capped := expandRecurring(ev, overrides[uid], cfg)
			if capped {
				appLog.Error("expand: occurrences truncated", errors.New("max occurrences reached"),
					"uid", uid, "cap", cfg.MaxOccurrences)
			}
			out = append(out, refs...)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return startOf(out[i], cfg.Location).Before(startOf(out[j], cfg.Location))
	})
	return out, nil
}

func expandSingle(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) (model.CalendarEventRef, bool) {
	if o, ok := findOverride(overrides, ev.Start); ok {
		ev = o
	}
	if !overlaps(ev.Start, ev.End, cfg.RangeStart, cfg.RangeEnd) {
		return model.CalendarEventRef{}, false
	}
	return toRef(ev, ev.Start, ev.End, false, cfg.Location), true
}

func expandRecurring(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) ([]model.CalendarEventRef, bool) {
	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		appLog.Error("expand: bad RRULE", err, "uid", ev.UID, "rrule", ev.RawRRule)
		return nil, false
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	// Widen the lower bound by the event length so instances that started
	// before the range but are still running are included.
	dur := ev.End.Sub(ev.Start)
	from := cfg.RangeStart.Add(-dur).In(ev.Start.Location())
	days := 0
	if ev.AllDay {
		days = spanDays(ev.Start, ev.End)
		from = cfg.RangeStart.In(ev.Start.Location()).AddDate(0, 0, -days)
	}
	to := cfg.RangeEnd.In(ev.Start.Location())

	starts := set.Between(from, to, true)
	capped := false
	if len(starts) > cfg.MaxOccurrences {
		starts = starts[:cfg.MaxOccurrences]
		capped = true
	}

	out := make([]model.CalendarEventRef, 0, len(starts))
	for _, s := range starts {
		e := s.Add(dur)
		if ev.AllDay {
			s = time.Date(s.Year(), s.Month(), s.Day(), 0, 0, 0, 0, s.Location())
			e = s.AddDate(0, 0, days)
		}

		inst := ev
		if o, ok := findOverride(overrides, s); ok {
			inst, s, e = o, o.Start, o.End
		}
		if !overlaps(s, e, cfg.RangeStart, cfg.RangeEnd) {
			continue
		}
		out = append(out, toRef(inst, s, e, true, cfg.Location))
	}
	return out, capped
}

// spanDays counts whole calendar days from start to end, at least one.
func spanDays(start, end time.Time) int {
	sy, sm, sd := start.Date()
	ey, em, ed := end.Date()
	n := int(time.Date(ey, em, ed, 0, 0, 0, 0, time.UTC).Sub(time.Date(sy, sm, sd, 0, 0, 0, 0, time.UTC)).Hours() / 24)
	if n < 1 {
		return 1
	}
	return n
}

// findOverride returns the override whose RECURRENCE-ID equals start.
func findOverride(overrides []ParsedEvent, start time.Time) (ParsedEvent, bool) {
	for _, ov := range overrides {
		if ov.Recurrence != nil && ov.Recurrence.Equal(start) {
			return ov, true
		}
	}
	return ParsedEvent{}, false
}

// toRef builds the public record. Recurring instances get the instance start
// appended to the UID so each occurrence has its own identity.
func toRef(ev ParsedEvent, start, end time.Time, recurring bool, loc *time.Location) model.CalendarEventRef {
	ref := model.CalendarEventRef{
		ID:          ev.UID,
		Summary:     ev.Summary,
		Description: ev.Description,
		Location:    ev.Location,
	}
	if recurring {
		ref.ID = ev.UID + "/" + start.UTC().Format("20060102T150405Z")
	}
	if ev.AllDay {
		ref.Start = model.EventTime{Date: start.Format("2006-01-02")}
		ref.End = model.EventTime{Date: end.Format("2006-01-02")}
		return ref
	}
	ref.Start = model.EventTime{DateTime: start.In(loc)}
	ref.End = model.EventTime{DateTime: end.In(loc)}
	return ref
}

func startOf(ref model.CalendarEventRef, loc *time.Location) time.Time {
	if ref.Start.IsDate() {
		t, _ := time.ParseInLocation("2006-01-02", ref.Start.Date, loc)
		return t
	}
	return ref.Start.DateTime
}

// overlaps treats both intervals as half-open; zero-length events count
// when they sit inside the range.
func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	if !aEnd.After(aStart) {
		return !aStart.Before(bStart) && aStart.Before(bEnd)
	}
	return aStart.Before(bEnd) && aEnd.After(bStart)
}
