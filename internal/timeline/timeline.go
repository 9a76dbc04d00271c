package timeline

import (
	"fmt"
	"time"

	"actcal/internal/model"
)

const hoursPerDay = 24

// HourSlots returns the 24 fixed slots of a calendar day.
func HourSlots() []model.HourSlot {
	slots := make([]model.HourSlot, 0, hoursPerDay)
	for h := 0; h < hoursPerDay; h++ {
		h12 := h % 12
		if h12 == 0 {
			h12 = 12
		}
		suffix := "AM"
		if h >= 12 {
			suffix = "PM"
		}
		slots = append(slots, model.HourSlot{
			Hour:       h,
			Label:      fmt.Sprintf("%d:00 %s - %d:59 %s", h12, suffix, h12, suffix),
			StartLabel: fmt.Sprintf("%02d:00", h),
			EndLabel:   fmt.Sprintf("%02d:59", h),
		})
	}
	return slots
}

// Build returns the batched view of day. Whole-day events are listed in
// Timeline.AllDay and never occupy hour slots.
func Build(day model.TimeWindow, events []model.CalendarEventRef, loc *time.Location) model.Timeline {
	if loc == nil {
		loc = time.Local
	}
	slots := HourSlots()

	allDay := make([]model.CalendarEventRef, 0)
	for _, ev := range events {
		if ev.AllDay() {
			allDay = append(allDay, ev)
		}
	}

	return model.Timeline{
		Date:     day.Start.In(loc).Format("2006-01-02"),
		Timezone: loc.String(),
		Slots:    slots,
		Batches:  MakeBatches(day, slots, events, loc),
		AllDay:   allDay,
	}
}

// MakeBatches partitions slots into maximal runs.
//
// Consecutive free hours always merge. Consecutive event hours merge only
// while each hour is occupied by exactly one event and it is the same event
// as the one that opened the run; any other change starts a new batch so a
// schedule change is never hidden.
func MakeBatches(day model.TimeWindow, slots []model.HourSlot, events []model.CalendarEventRef, loc *time.Location) []model.Batch {
	byHour := hourMembership(day, events, loc)
	batches := make([]model.Batch, 0)

	open := false
	var cur model.Batch
	prevHour := 0

	closeRun := func(end int) {
		cur.EndHour = end
		cur.Label = batchLabel(cur)
		batches = append(batches, cur)
		open = false
	}

	for _, slot := range slots {
		h := slot.Hour
		hourEvents := byHour[h]

		switch {
		case len(hourEvents) == 0:
			if open && cur.Kind == model.BatchFree {
				break
			}
			if open {
				closeRun(prevHour)
			}
			cur = model.Batch{StartHour: h, Kind: model.BatchFree, Events: []model.CalendarEventRef{}}
			open = true

		default:
			if open && continues(cur, hourEvents) {
				break
			}
			if open {
				closeRun(prevHour)
			}
			evs := make([]model.CalendarEventRef, len(hourEvents))
			copy(evs, hourEvents)
			cur = model.Batch{StartHour: h, Kind: model.BatchEvent, Events: evs}
			open = true
		}
		prevHour = h
	}

	if open {
		closeRun(hoursPerDay - 1)
	}
	return batches
}

// continues reports whether hourEvents extends the open event run.
func continues(run model.Batch, hourEvents []model.CalendarEventRef) bool {
	if run.Kind != model.BatchEvent {
		return false
	}
	if len(hourEvents) != 1 || len(run.Events) != 1 {
		return false
	}
	return run.Events[0].SameEvent(hourEvents[0])
}

// hourMembership maps each hour of day to the timed events active in it.
//
// An event ending exactly on an hour boundary does not claim that hour
// unless it also starts in it. Events reaching outside day are clamped to
// its first and last hour.
func hourMembership(day model.TimeWindow, events []model.CalendarEventRef, loc *time.Location) map[int][]model.CalendarEventRef {
	out := make(map[int][]model.CalendarEventRef)
	for _, ev := range events {
		if ev.AllDay() || ev.Start.DateTime.IsZero() || ev.End.DateTime.IsZero() {
			continue
		}
		start := ev.Start.DateTime
		end := ev.End.DateTime
		if end.Before(start) {
			continue
		}
		// Skip events that do not touch the day at all. A zero-length event
		// at the very start of the day still counts.
		if !start.Before(day.End) || (end.Before(day.Start) || (end.Equal(day.Start) && end.After(start))) {
			continue
		}

		startHour := 0
		if !start.Before(day.Start) {
			startHour = start.In(loc).Hour()
		}

		endHour := hoursPerDay - 1
		if end.Before(day.End) {
			localEnd := end.In(loc)
			endHour = localEnd.Hour()
			onBoundary := localEnd.Minute() == 0 && localEnd.Second() == 0 && localEnd.Nanosecond() == 0
			if onBoundary && endHour > startHour {
				endHour--
			}
		}

		for h := startHour; h <= endHour; h++ {
			out[h] = append(out[h], ev)
		}
	}
	return out
}

func batchLabel(b model.Batch) string {
	if b.Kind == model.BatchEvent {
		return fmt.Sprintf("Event: %d - %d", b.StartHour, b.EndHour)
	}
	return fmt.Sprintf("Free: %d - %d", b.StartHour, b.EndHour)
}
