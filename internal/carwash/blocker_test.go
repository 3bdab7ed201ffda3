package carwash

import (
	"errors"
	"testing"
	"time"
	_ "time/tzdata"

	apperrors "carwash/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Blockers come back from PostgreSQL in the session zone (UTC) while the calendar runs in local time.
func TestWholeDayBlocker_LoadedInAnotherZone(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Budapest")
	require.NoError(t, err)
	a, err := NewAllocator([]Slot{{StartHour: 8, EndHour: 11, Capacity: 2}}, WashCount, loc, nil)
	require.NoError(t, err)

	sunday := time.Date(2026, 10, 18, 12, 0, 0, 0, loc)
	monday := time.Date(2026, 10, 19, 8, 0, 0, 0, loc)
	tuesday := time.Date(2026, 10, 20, 8, 0, 0, 0, loc)
	blockers := []Blocker{{StartDate: time.Date(2026, 10, 20, 0, 0, 0, 0, loc).UTC()}}

	t.Run("range is the local day", func(t *testing.T) {
		start, end := blockers[0].Range(loc)
		assert.True(t, start.Equal(time.Date(2026, 10, 20, 0, 0, 0, 0, loc)))
		assert.True(t, end.Equal(time.Date(2026, 10, 21, 0, 0, 0, 0, loc)))
	})

	t.Run("free slot search", func(t *testing.T) {
		got := a.FindNextAvailableSlots(SlotQuery{Now: sunday, From: sunday, Count: 3}, blockers, nil)
		require.Len(t, got, 3)
		assert.True(t, got[0].StartTime.Equal(monday), "got %s", got[0].StartTime)
		assert.True(t, got[1].StartTime.Equal(time.Date(2026, 10, 21, 8, 0, 0, 0, loc)), "got %s", got[1].StartTime)
	})

	t.Run("booking", func(t *testing.T) {
		v := NewValidator(a, Policy{})
		r := &Reservation{UserID: "u", VehiclePlateNumber: "ABC-123", Services: []ServiceType{Exterior}, StartDate: tuesday}
		_, err := v.Prepare(sunday, r, blockers)
		assert.True(t, errors.Is(err, apperrors.ErrSlotUnavailable), "got %v", err)

		r = &Reservation{UserID: "u", VehiclePlateNumber: "ABC-123", Services: []ServiceType{Exterior}, StartDate: monday}
		_, err = v.Prepare(sunday, r, blockers)
		assert.NoError(t, err)
	})
}

func TestBlocker_ExplicitRangeIgnoresLocation(t *testing.T) {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)
	b := Blocker{StartDate: start, EndDate: &end}

	loc := time.FixedZone("UTC+5", 5*3600)
	s, e := b.Range(loc)
	assert.True(t, s.Equal(start))
	assert.True(t, e.Equal(end))
	assert.True(t, b.Overlaps(start.Add(time.Hour).In(loc), end.Add(time.Hour).In(loc)))
	assert.False(t, b.Overlaps(end.In(loc), end.Add(time.Hour).In(loc)))
}
