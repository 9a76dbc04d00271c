package window

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"actcal/internal/errs"
)

func mustLoc(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.Skipf("timezone %s unavailable: %v", name, err)
	}
	return loc
}

func TestCurrentHour(t *testing.T) {
	ny := mustLoc(t, "America/New_York")
	kolkata := mustLoc(t, "Asia/Kolkata")

	tests := []struct {
		name      string
		now       time.Time
		loc       *time.Location
		wantStart time.Time
		wantEnd   time.Time
	}{
		{
			name:      "mid hour utc",
			now:       time.Date(2025, 5, 1, 16, 25, 13, 999, time.UTC),
			loc:       time.UTC,
			wantStart: time.Date(2025, 5, 1, 15, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2025, 5, 1, 16, 0, 0, 0, time.UTC),
		},
		{
			name:      "exactly on the hour",
			now:       time.Date(2025, 5, 1, 16, 0, 0, 0, time.UTC),
			loc:       time.UTC,
			wantStart: time.Date(2025, 5, 1, 15, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2025, 5, 1, 16, 0, 0, 0, time.UTC),
		},
		{
			name: "half hour offset zone truncates on local clock",
			// 10:50 UTC is 16:20 IST; the local hour starts 16:00 IST = 10:30 UTC.
			now:       time.Date(2025, 5, 1, 10, 50, 0, 0, time.UTC),
			loc:       kolkata,
			wantStart: time.Date(2025, 5, 1, 9, 30, 0, 0, time.UTC),
			wantEnd:   time.Date(2025, 5, 1, 10, 30, 0, 0, time.UTC),
		},
		{
			name: "spring forward",
			// 03:30 EDT on 2025-03-09; the previous hour began at 01:00 EST.
			now:       time.Date(2025, 3, 9, 7, 30, 0, 0, time.UTC),
			loc:       ny,
			wantStart: time.Date(2025, 3, 9, 6, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2025, 3, 9, 7, 0, 0, 0, time.UTC),
		},
		{
			name: "fall back second 1am",
			// 01:30 EST on 2025-11-02 (second occurrence of 01:xx).
			now:       time.Date(2025, 11, 2, 6, 30, 0, 0, time.UTC),
			loc:       ny,
			wantStart: time.Date(2025, 11, 2, 5, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2025, 11, 2, 6, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := CurrentHour(tt.now, tt.loc)
			assert.True(t, tt.wantStart.Equal(w.Start), "start %s", w.Start)
			assert.True(t, tt.wantEnd.Equal(w.End), "end %s", w.End)
			assert.Equal(t, time.Hour, w.End.Sub(w.Start))

			localEnd := w.End.In(tt.loc)
			assert.Zero(t, localEnd.Minute())
			assert.Zero(t, localEnd.Second())
			assert.Zero(t, localEnd.Nanosecond())
			assert.False(t, w.End.After(tt.now))
		})
	}
}

func TestCurrentHourConsecutiveTicksAreContiguous(t *testing.T) {
	ny := mustLoc(t, "America/New_York")

	// Walk every quarter hour across both DST transitions of 2025.
	for _, day := range []time.Time{
		time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 11, 2, 0, 0, 0, 0, time.UTC),
	} {
		var prev time.Time
		for i := 0; i < 4*24; i++ {
			now := day.Add(time.Duration(i) * 15 * time.Minute)
			w := CurrentHour(now, ny)
			if !prev.IsZero() && !w.End.Equal(prev) {
				assert.True(t, w.Start.Equal(prev), "gap or overlap at %s: prev end %s, start %s", now, prev, w.Start)
			}
			prev = w.End
		}
	}
}

func TestSplitRange(t *testing.T) {
	base := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)

	t.Run("whole hours", func(t *testing.T) {
		ws, err := SplitRange(base, base.Add(3*time.Hour))
		require.NoError(t, err)
		require.Len(t, ws, 3)
		for i, w := range ws {
			assert.True(t, base.Add(time.Duration(i)*time.Hour).Equal(w.Start))
			assert.Equal(t, time.Hour, w.Duration())
		}
	})

	t.Run("partial tail", func(t *testing.T) {
		end := base.Add(2*time.Hour + 20*time.Minute)
		ws, err := SplitRange(base, end)
		require.NoError(t, err)
		require.Len(t, ws, 3)
		assert.Equal(t, 20*time.Minute, ws[2].Duration())
		assert.True(t, end.Equal(ws[2].End))
	})

	t.Run("shorter than an hour", func(t *testing.T) {
		ws, err := SplitRange(base, base.Add(time.Minute))
		require.NoError(t, err)
		require.Len(t, ws, 1)
		assert.Equal(t, time.Minute, ws[0].Duration())
	})

	t.Run("covers range contiguously", func(t *testing.T) {
		for _, d := range []time.Duration{time.Second, 59 * time.Minute, time.Hour, 61 * time.Minute, 25*time.Hour + 7*time.Second} {
			start := base.Add(13 * time.Minute)
			end := start.Add(d)
			ws, err := SplitRange(start, end)
			require.NoError(t, err)

			cur := start
			var total time.Duration
			for _, w := range ws {
				assert.True(t, cur.Equal(w.Start))
				assert.True(t, w.Valid())
				assert.LessOrEqual(t, w.Duration(), time.Hour)
				total += w.Duration()
				cur = w.End
			}
			assert.True(t, end.Equal(cur))
			assert.Equal(t, d, total)
		}
	})

	t.Run("invalid", func(t *testing.T) {
		for _, end := range []time.Time{base, base.Add(-time.Minute)} {
			ws, err := SplitRange(base, end)
			assert.Nil(t, ws)
			assert.True(t, errors.Is(err, errs.ErrInvalidRange))
		}
	})
}

func TestDay(t *testing.T) {
	ny := mustLoc(t, "America/New_York")

	w := Day(time.Date(2025, 3, 9, 15, 0, 0, 0, time.UTC), ny)
	assert.Equal(t, 23*time.Hour, w.Duration())
	assert.Equal(t, 0, w.Start.Hour())
	assert.Equal(t, 9, w.Start.Day())

	w = Day(time.Date(2025, 5, 1, 23, 59, 0, 0, time.UTC), time.UTC)
	assert.Equal(t, 24*time.Hour, w.Duration())
}

func TestParseInstant(t *testing.T) {
	loc := time.FixedZone("X", 2*3600)

	got, err := ParseInstant("2025-05-01T10:00:00Z", loc)
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)))

	got, err = ParseInstant("2025-05-01T10:00", loc)
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)))

	_, err = ParseInstant("yesterday", loc)
	assert.Error(t, err)
}
