package model

import "time"

// EventTime is either a precise instant or a whole-day date (YYYY-MM-DD).
type EventTime struct {
	DateTime time.Time `json:"date_time"`
	Date     string    `json:"date,omitempty"`
}

// IsDate reports whether this is a whole-day value.
func (t EventTime) IsDate() bool {
	return t.Date != ""
}

// Equal compares two event times structurally.
func (t EventTime) Equal(o EventTime) bool {
	return t.Date == o.Date && t.DateTime.Equal(o.DateTime)
}

// String renders the value the way calendar APIs do.
func (t EventTime) String() string {
	if t.IsDate() {
		return t.Date
	}
	if t.DateTime.IsZero() {
		return ""
	}
	return t.DateTime.Format(time.RFC3339)
}

// CalendarEventRef is a read-only record of an existing calendar event.
type CalendarEventRef struct {
	ID          string    `json:"id,omitempty"`
	Summary     string    `json:"summary"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	Start       EventTime `json:"start"`
	End         EventTime `json:"end"`
}

// AllDay reports whether the event is expressed as whole-day dates.
func (e CalendarEventRef) AllDay() bool {
	return e.Start.IsDate() || e.End.IsDate()
}

// SameEvent compares by ID when both sides carry one, otherwise by
// summary, start and end.
func (e CalendarEventRef) SameEvent(o CalendarEventRef) bool {
	if e.ID != "" && o.ID != "" {
		return e.ID == o.ID
	}
	return e.Summary == o.Summary && e.Start.Equal(o.Start) && e.End.Equal(o.End)
}

// HourSlot is one of the 24 fixed hours of a calendar day.
type HourSlot struct {
	Hour       int    `json:"hour_24"`
	Label      string `json:"label"`
	StartLabel string `json:"start"`
	EndLabel   string `json:"end"`
}

// BatchKind classifies a batch.
type BatchKind string

const (
	BatchFree  BatchKind = "free"
	BatchEvent BatchKind = "event"
)

// Batch is a maximal run of consecutive hour slots with the same occupancy.
type Batch struct {
	StartHour int                `json:"start_hour"`
	EndHour   int                `json:"end_hour"`
	Kind      BatchKind          `json:"kind"`
	Label     string             `json:"label"`
	Events    []CalendarEventRef `json:"events"`
}

// IsEvent is a convenience for templates.
func (b Batch) IsEvent() bool {
	return b.Kind == BatchEvent
}

// Timeline is the batched view of one day.
type Timeline struct {
	Date     string             `json:"date"`
	Timezone string             `json:"timezone"`
	Slots    []HourSlot         `json:"slots"`
	Batches  []Batch            `json:"batches"`
	AllDay   []CalendarEventRef `json:"all_day"`
}
