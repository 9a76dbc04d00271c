package timeline

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"actcal/internal/model"
	"actcal/internal/window"
)

var (
	loc = time.UTC
	day = window.Day(time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC), loc)
)

func at(h, m int) model.EventTime {
	return model.EventTime{DateTime: day.Start.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)}
}

func event(id, summary string, sh, sm, eh, em int) model.CalendarEventRef {
	return model.CalendarEventRef{ID: id, Summary: summary, Start: at(sh, sm), End: at(eh, em)}
}

type span struct {
	start, end int
	kind       model.BatchKind
}

func spans(bs []model.Batch) []span {
	out := make([]span, 0, len(bs))
	for _, b := range bs {
		out = append(out, span{b.StartHour, b.EndHour, b.Kind})
	}
	return out
}

func TestHourSlots(t *testing.T) {
	slots := HourSlots()
	require.Len(t, slots, 24)
	assert.Equal(t, model.HourSlot{Hour: 0, Label: "12:00 AM - 12:59 AM", StartLabel: "00:00", EndLabel: "00:59"}, slots[0])
	assert.Equal(t, "9:00 AM - 9:59 AM", slots[9].Label)
	assert.Equal(t, "12:00 PM - 12:59 PM", slots[12].Label)
	assert.Equal(t, "11:00 PM - 11:59 PM", slots[23].Label)
	assert.Equal(t, "23:59", slots[23].EndLabel)
}

func TestMakeBatches(t *testing.T) {
	tests := []struct {
		name   string
		events []model.CalendarEventRef
		want   []span
	}{
		{
			name: "empty day is one free batch",
			want: []span{{0, 23, model.BatchFree}},
		},
		{
			name:   "multi hour event ending on the hour",
			events: []model.CalendarEventRef{event("a", "Standup", 9, 0, 11, 0)},
			want:   []span{{0, 8, model.BatchFree}, {9, 10, model.BatchEvent}, {11, 23, model.BatchFree}},
		},
		{
			name: "adjacent distinct events stay separate",
			events: []model.CalendarEventRef{
				event("a", "One", 9, 0, 10, 0),
				event("b", "Two", 10, 0, 11, 0),
			},
			want: []span{{0, 8, model.BatchFree}, {9, 9, model.BatchEvent}, {10, 10, model.BatchEvent}, {11, 23, model.BatchFree}},
		},
		{
			name:   "event ending mid hour claims that hour",
			events: []model.CalendarEventRef{event("a", "Review", 9, 30, 10, 15)},
			want:   []span{{0, 8, model.BatchFree}, {9, 10, model.BatchEvent}, {11, 23, model.BatchFree}},
		},
		{
			name:   "zero length event claims its hour",
			events: []model.CalendarEventRef{event("a", "Ping", 14, 0, 14, 0)},
			want:   []span{{0, 13, model.BatchFree}, {14, 14, model.BatchEvent}, {15, 23, model.BatchFree}},
		},
		{
			name: "overlap splits the run",
			events: []model.CalendarEventRef{
				event("a", "Long", 9, 0, 12, 0),
				event("b", "Short", 10, 0, 11, 0),
			},
			want: []span{
				{0, 8, model.BatchFree},
				{9, 9, model.BatchEvent},
				{10, 10, model.BatchEvent},
				{11, 11, model.BatchEvent},
				{12, 23, model.BatchFree},
			},
		},
		{
			name: "hours with several events never merge",
			events: []model.CalendarEventRef{
				event("a", "A", 9, 0, 11, 0),
				event("b", "B", 9, 0, 11, 0),
			},
			want: []span{{0, 8, model.BatchFree}, {9, 9, model.BatchEvent}, {10, 10, model.BatchEvent}, {11, 23, model.BatchFree}},
		},
		{
			name:   "event running to midnight closes at 23",
			events: []model.CalendarEventRef{event("a", "Late", 22, 0, 24, 0)},
			want:   []span{{0, 21, model.BatchFree}, {22, 23, model.BatchEvent}},
		},
		{
			name:   "event from the previous day is clamped",
			events: []model.CalendarEventRef{event("a", "Overnight", -3, 0, 2, 0)},
			want:   []span{{0, 1, model.BatchEvent}, {2, 23, model.BatchFree}},
		},
		{
			name:   "event ending at midnight of the previous day is ignored",
			events: []model.CalendarEventRef{event("a", "Yesterday", -2, 0, 0, 0)},
			want:   []span{{0, 23, model.BatchFree}},
		},
		{
			name: "all day events do not occupy slots",
			events: []model.CalendarEventRef{{
				ID: "h", Summary: "Holiday",
				Start: model.EventTime{Date: "2025-05-01"}, End: model.EventTime{Date: "2025-05-02"},
			}},
			want: []span{{0, 23, model.BatchFree}},
		},
		{
			name:   "whole day event",
			events: []model.CalendarEventRef{event("a", "Offsite", 0, 0, 24, 0)},
			want:   []span{{0, 23, model.BatchEvent}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MakeBatches(day, HourSlots(), tt.events, loc)
			assert.Equal(t, tt.want, spans(got))
		})
	}
}

func TestMakeBatchesSameEventWithoutIDs(t *testing.T) {
	a := event("", "Focus", 13, 0, 16, 0)
	got := MakeBatches(day, HourSlots(), []model.CalendarEventRef{a}, loc)
	require.Len(t, got, 3)
	assert.Equal(t, span{13, 15, model.BatchEvent}, spans(got)[1])
	assert.Equal(t, []model.CalendarEventRef{a}, got[1].Events)
	assert.Equal(t, "Event: 13 - 15", got[1].Label)
	assert.Equal(t, "Free: 0 - 12", got[0].Label)
	assert.Empty(t, got[0].Events)
}

func TestMakeBatchesConvertsToDisplayZone(t *testing.T) {
	seoul := time.FixedZone("KST", 9*3600)
	kday := window.Day(time.Date(2025, 5, 1, 3, 0, 0, 0, time.UTC), seoul)
	// 00:00-02:00 UTC is 09:00-11:00 KST.
	ev := model.CalendarEventRef{
		ID:    "x",
		Start: model.EventTime{DateTime: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)},
		End:   model.EventTime{DateTime: time.Date(2025, 5, 1, 2, 0, 0, 0, time.UTC)},
	}
	got := MakeBatches(kday, HourSlots(), []model.CalendarEventRef{ev}, seoul)
	assert.Equal(t, []span{{0, 8, model.BatchFree}, {9, 10, model.BatchEvent}, {11, 23, model.BatchFree}}, spans(got))
}

func TestBuildCollectsAllDayEvents(t *testing.T) {
	holiday := model.CalendarEventRef{Summary: "Holiday", Start: model.EventTime{Date: "2025-05-01"}, End: model.EventTime{Date: "2025-05-02"}}
	tl := Build(day, []model.CalendarEventRef{holiday, event("a", "Lunch", 12, 0, 13, 0)}, loc)

	assert.Equal(t, "2025-05-01", tl.Date)
	assert.Equal(t, "UTC", tl.Timezone)
	assert.Len(t, tl.Slots, 24)
	assert.Equal(t, []model.CalendarEventRef{holiday}, tl.AllDay)
	assert.Len(t, tl.Batches, 3)
}

// TestMakeBatchesProperties checks the run-length invariants on random days.
func TestMakeBatchesProperties(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))

	for round := 0; round < 500; round++ {
		n := rnd.Intn(6)
		events := make([]model.CalendarEventRef, 0, n)
		for i := 0; i < n; i++ {
			sh := rnd.Intn(24)
			sm := []int{0, 0, 15, 30}[rnd.Intn(4)]
			dur := rnd.Intn(5*60) + 1
			start := at(sh, sm)
			id := fmt.Sprintf("e%d", i)
			if rnd.Intn(3) == 0 {
				id = ""
			}
			events = append(events, model.CalendarEventRef{
				ID:      id,
				Summary: fmt.Sprintf("event %d", i),
				Start:   start,
				End:     model.EventTime{DateTime: start.DateTime.Add(time.Duration(dur) * time.Minute)},
			})
		}

		batches := MakeBatches(day, HourSlots(), events, loc)
		members := hourMembership(day, events, loc)

		require.NotEmpty(t, batches)
		assert.Equal(t, 0, batches[0].StartHour)
		assert.Equal(t, 23, batches[len(batches)-1].EndHour)

		for i, b := range batches {
			require.LessOrEqual(t, b.StartHour, b.EndHour)
			if i > 0 {
				prev := batches[i-1]
				require.Equal(t, prev.EndHour+1, b.StartHour, "batches not contiguous")
				assert.False(t, prev.Kind == model.BatchFree && b.Kind == model.BatchFree, "adjacent free batches")
				if prev.Kind == model.BatchEvent && b.Kind == model.BatchEvent &&
					len(prev.Events) == 1 && len(b.Events) == 1 {
					assert.False(t, prev.Events[0].SameEvent(b.Events[0]), "mergeable event batches left split")
				}
			}

			for h := b.StartHour; h <= b.EndHour; h++ {
				if b.Kind == model.BatchFree {
					assert.Empty(t, members[h], "free batch covers busy hour %d", h)
					continue
				}
				assert.NotEmpty(t, members[h], "event batch covers free hour %d", h)
				if b.EndHour > b.StartHour {
					require.Len(t, b.Events, 1)
					require.Len(t, members[h], 1)
					assert.True(t, b.Events[0].SameEvent(members[h][0]))
				}
			}
		}
	}
}
