package carwash

import (
	"errors"
	"fmt"
	"testing"
	"time"

	apperrors "carwash/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func submit(t *testing.T, v *Validator, now time.Time, r *Reservation, day, user []Reservation) error {
	t.Helper()
	p, err := v.Prepare(now, r, nil)
	if err != nil {
		return err
	}
	return v.Check(now, r, p, day, user)
}

func TestValidator_CapacityScenario(t *testing.T) {
	v := NewValidator(testAllocator(t, WashCount), Policy{})
	now := at(monday, 7, 0)

	var day []Reservation
	for i := 0; i < 3; i++ {
		r := &Reservation{ID: fmt.Sprint(i), UserID: fmt.Sprint("u", i), VehiclePlateNumber: "abc-123",
			Services: []ServiceType{Exterior}, StartDate: at(monday, 9, 0)}
		require.NoError(t, submit(t, v, now, r, day, nil))
		day = append(day, *r)
	}

	r := &Reservation{ID: "4", UserID: "u4", VehiclePlateNumber: "XYZ-999",
		Services: []ServiceType{Exterior}, StartDate: at(monday, 9, 0)}
	err := submit(t, v, now, r, day, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrCapacityExceeded))

	he, _ := apperrors.As(err)
	assert.Equal(t, "09:00-12:00", he.Details["slot"])
	assert.Equal(t, "2026-03-02", he.Details["day"])
	assert.Equal(t, 0, he.Details["remaining"])
}

func TestValidator_Prepare(t *testing.T) {
	v := NewValidator(testAllocator(t, WashCount), Policy{})
	now := at(monday, 7, 0)

	t.Run("derives end date and normalizes", func(t *testing.T) {
		r := &Reservation{UserID: "u", VehiclePlateNumber: " abc-123 ",
			Services: []ServiceType{Carpet, Exterior}, StartDate: at(monday, 9, 0)}
		p, err := v.Prepare(now, r, nil)
		require.NoError(t, err)
		assert.Equal(t, "ABC-123", r.VehiclePlateNumber)
		assert.Equal(t, 45, r.TimeRequirement)
		assert.Equal(t, at(monday, 9, 45), r.EndDate)
		assert.Equal(t, 2, p.Units)
		assert.Equal(t, at(monday, 9, 0), p.SlotStart)
	})

	tests := []struct {
		name  string
		start time.Time
		svc   []ServiceType
		want  *apperrors.HTTPError
		rule  string
	}{
		{"yesterday", at(monday, 9, 0).AddDate(0, 0, -1), []ServiceType{Exterior}, apperrors.ErrPastDateRejected, ""},
		{"crosses midnight", at(monday, 23, 30), []ServiceType{Exterior, Interior, Carpet}, apperrors.ErrCrossDayRangeRejected, ""},
		{"weekend", at(monday.AddDate(0, 0, 5), 9, 0), []ServiceType{Exterior}, apperrors.ErrSlotUnavailable, "non_working_day"},
		{"between slots", at(monday, 12, 30), []ServiceType{Exterior}, apperrors.ErrSlotUnavailable, "outside_slot"},
		{"overruns slot", at(monday, 11, 50), []ServiceType{Exterior}, apperrors.ErrSlotUnavailable, "exceeds_slot_window"},
		{"no services", at(monday, 9, 0), nil, apperrors.ErrInvalidInput, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Reservation{UserID: "u", VehiclePlateNumber: "ABC-123", Services: tt.svc, StartDate: tt.start}
			_, err := v.Prepare(now, r, nil)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			if tt.rule != "" {
				he, _ := apperrors.As(err)
				assert.Equal(t, tt.rule, he.Details["rule"])
			}
		})
	}

	t.Run("blocked slot", func(t *testing.T) {
		r := &Reservation{UserID: "u", VehiclePlateNumber: "ABC-123",
			Services: []ServiceType{Exterior}, StartDate: at(monday, 13, 0)}
		_, err := v.Prepare(now, r, []Blocker{{StartDate: monday, Comment: "maintenance"}})
		assert.True(t, errors.Is(err, apperrors.ErrSlotUnavailable))
	})

	t.Run("past date wins over capacity and calendar", func(t *testing.T) {
		saturday := monday.AddDate(0, 0, -2)
		r := &Reservation{UserID: "u", VehiclePlateNumber: "ABC-123",
			Services: []ServiceType{Exterior}, StartDate: at(saturday, 9, 0)}
		_, err := v.Prepare(now, r, nil)
		assert.True(t, errors.Is(err, apperrors.ErrPastDateRejected))
	})
}

func TestValidator_Policies(t *testing.T) {
	now := at(monday, 7, 0)
	tuesday := monday.AddDate(0, 0, 1)
	existing := booked("old", at(monday, 13, 0), Exterior)
	existing.UserID = "u"

	t.Run("single active", func(t *testing.T) {
		v := NewValidator(testAllocator(t, WashCount), Policy{SingleActiveReservation: true})
		r := &Reservation{ID: "new", UserID: "u", VehiclePlateNumber: "A", Services: []ServiceType{Exterior}, StartDate: at(tuesday, 9, 0)}
		err := submit(t, v, now, r, nil, []Reservation{existing})
		assert.True(t, errors.Is(err, apperrors.ErrDuplicateActive))

		done := existing
		done.State = Done
		assert.NoError(t, submit(t, v, now, r, nil, []Reservation{done}))
	})

	t.Run("daily limit", func(t *testing.T) {
		v := NewValidator(testAllocator(t, WashCount), Policy{DailyLimitPerPerson: 1})
		r := &Reservation{ID: "new", UserID: "u", VehiclePlateNumber: "A", Services: []ServiceType{Exterior}, StartDate: at(monday, 9, 0)}
		err := submit(t, v, now, r, []Reservation{existing}, []Reservation{existing})
		require.True(t, errors.Is(err, apperrors.ErrDuplicateActive))
		he, _ := apperrors.As(err)
		assert.Equal(t, "daily_limit", he.Details["rule"])

		cancelled := existing
		cancelled.State = Cancelled
		assert.NoError(t, submit(t, v, now, r, []Reservation{cancelled}, []Reservation{cancelled}))

		r2 := &Reservation{ID: "new2", UserID: "u", VehiclePlateNumber: "A", Services: []ServiceType{Exterior}, StartDate: at(tuesday, 9, 0)}
		assert.NoError(t, submit(t, v, now, r2, nil, []Reservation{existing}))
	})

	t.Run("monthly limit counts carpet twice", func(t *testing.T) {
		v := NewValidator(testAllocator(t, WashCount), Policy{MonthlyLimitPerPerson: 3})
		carpet := booked("c", at(monday, 9, 0), Carpet)
		carpet.UserID = "u"

		r := &Reservation{ID: "new", UserID: "u", VehiclePlateNumber: "A", Services: []ServiceType{Exterior}, StartDate: at(tuesday, 9, 0)}
		assert.NoError(t, submit(t, v, now, r, nil, []Reservation{carpet}))

		heavy := &Reservation{ID: "new2", UserID: "u", VehiclePlateNumber: "A", Services: []ServiceType{Carpet}, StartDate: at(tuesday, 9, 0)}
		err := submit(t, v, now, heavy, nil, []Reservation{carpet})
		assert.True(t, errors.Is(err, apperrors.ErrMonthlyLimitExceeded))

		nextMonth := &Reservation{ID: "new3", UserID: "u", VehiclePlateNumber: "A", Services: []ServiceType{Carpet}, StartDate: at(monday.AddDate(0, 1, 0), 9, 0)}
		assert.NoError(t, submit(t, v, now, nextMonth, nil, []Reservation{carpet}))
	})
}

func TestValidator_MinutesUnit(t *testing.T) {
	a, err := NewAllocator([]Slot{{StartHour: 9, EndHour: 12, Capacity: 60}}, Minutes, time.UTC, nil)
	require.NoError(t, err)
	v := NewValidator(a, Policy{})
	now := at(monday, 7, 0)

	first := &Reservation{ID: "1", UserID: "a", VehiclePlateNumber: "A", Services: []ServiceType{Exterior, Interior, Carpet}, StartDate: at(monday, 9, 0)}
	require.NoError(t, submit(t, v, now, first, nil, nil))

	second := &Reservation{ID: "2", UserID: "b", VehiclePlateNumber: "B", Services: []ServiceType{Exterior}, StartDate: at(monday, 10, 0)}
	err = submit(t, v, now, second, []Reservation{*first}, nil)
	assert.True(t, errors.Is(err, apperrors.ErrCapacityExceeded))
}
