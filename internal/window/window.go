package window

import (
	"time"

	"actcal/internal/errs"
	"actcal/internal/model"
)

// CurrentHour returns the last completed hour before now.
//
// The end is now truncated to the top of the hour on loc's wall clock; the
// start is exactly one hour earlier. Both are returned in UTC. Truncating on
// the local clock keeps half-hour zones aligned with the user's hours, and
// stepping back a real hour keeps consecutive ticks contiguous across DST
// transitions.
func CurrentHour(now time.Time, loc *time.Location) model.TimeWindow {
	if loc == nil {
		loc = time.Local
	}
	local := now.In(loc)
	into := time.Duration(local.Minute())*time.Minute +
		time.Duration(local.Second())*time.Second +
		time.Duration(local.Nanosecond())
	end := local.Add(-into)
	return model.TimeWindow{Start: end.Add(-time.Hour).UTC(), End: end.UTC()}
}

// SplitRange cuts [start, end) into consecutive one-hour windows. The last
// window is shortened to end when the range is not a whole number of hours.
func SplitRange(start, end time.Time) ([]model.TimeWindow, error) {
	if !end.After(start) {
		return nil, errs.InvalidRange("end %s is not after start %s",
			end.Format(time.RFC3339), start.Format(time.RFC3339))
	}

	out := make([]model.TimeWindow, 0, int(end.Sub(start)/time.Hour)+1)
	for cur := start; cur.Before(end); {
		next := cur.Add(time.Hour)
		if next.After(end) {
			next = end
		}
		out = append(out, model.TimeWindow{Start: cur, End: next})
		cur = next
	}
	return out, nil
}

// Day returns [local midnight, next local midnight) for the calendar day
// containing date in loc. On DST transition days the window is 23 or 25
// hours long.
func Day(date time.Time, loc *time.Location) model.TimeWindow {
	if loc == nil {
		loc = time.Local
	}
	d := date.In(loc)
	start := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
	end := time.Date(d.Year(), d.Month(), d.Day()+1, 0, 0, 0, 0, loc)
	return model.TimeWindow{Start: start, End: end}
}
