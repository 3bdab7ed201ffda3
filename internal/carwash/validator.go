package carwash

import (
	"strings"
	"time"

	apperrors "carwash/internal/errors"
	"carwash/internal/utils"
)

// Policy holds the configurable per-employee booking limits. Zero disables a limit.
type Policy struct {
	SingleActiveReservation bool
	DailyLimitPerPerson     int
	MonthlyLimitPerPerson   int
}

// Validator enforces the booking rules. Prepare runs the checks that need no stored state,
// Check runs the ones that must be repeated inside the committing transaction.
type Validator struct {
	Allocator *Allocator
	Policy    Policy
}

func NewValidator(a *Allocator, p Policy) *Validator {
	return &Validator{Allocator: a, Policy: p}
}

// Placement is where a prepared reservation lands.
type Placement struct {
	Slot      Slot
	SlotStart time.Time
	SlotEnd   time.Time
	Units     int
}

// Prepare normalizes r, derives TimeRequirement and EndDate and validates everything that does not
// depend on other reservations.
func (v *Validator) Prepare(now time.Time, r *Reservation, blockers []Blocker) (Placement, error) {
	a := v.Allocator
	services, err := NormalizeServices(r.Services)
	if err != nil {
		return Placement{}, err
	}
	r.Services = services
	r.VehiclePlateNumber = strings.ToUpper(strings.TrimSpace(r.VehiclePlateNumber))
	if r.VehiclePlateNumber == "" {
		return Placement{}, apperrors.ErrInvalidInput.Withf("vehicle plate number is required")
	}
	if r.UserID == "" {
		return Placement{}, apperrors.ErrInvalidInput.Withf("user is required")
	}
	if r.StartDate.IsZero() {
		return Placement{}, apperrors.ErrInvalidInput.Withf("start date is required")
	}

	r.StartDate = r.StartDate.In(a.Location)
	r.TimeRequirement = TimeRequirement(services)
	r.EndDate = r.StartDate.Add(time.Duration(r.TimeRequirement) * time.Minute)

	if r.StartDate.Before(now) || r.EndDate.Before(now) {
		return Placement{}, apperrors.ErrPastDateRejected.WithDetails(
			"start_date", r.StartDate, "now", now)
	}
	if !utils.SameDay(r.StartDate, r.EndDate) {
		return Placement{}, apperrors.ErrCrossDayRangeRejected.WithDetails(
			"start_date", r.StartDate, "end_date", r.EndDate)
	}
	if !a.IsWorkingDay(r.StartDate) {
		return Placement{}, apperrors.ErrSlotUnavailable.Withf("%s is not a working day", r.StartDate.Format(utils.DateLayout)).
			WithDetails("rule", "non_working_day", "day", r.StartDate.Format(utils.DateLayout))
	}
	slot, slotStart, ok := a.SlotFor(r.StartDate)
	if !ok {
		return Placement{}, apperrors.ErrSlotUnavailable.Withf("no slot starts at %s", r.StartDate.Format("15:04")).
			WithDetails("rule", "outside_slot", "start_date", r.StartDate)
	}
	_, slotEnd := slot.Window(slotStart)
	if r.EndDate.After(slotEnd) {
		return Placement{}, apperrors.ErrSlotUnavailable.Withf("services do not fit into slot %s", slot.Label()).
			WithDetails("rule", "exceeds_slot_window", "slot", slot.Label(), "end_date", r.EndDate)
	}
	if Blocked(blockers, slotStart, slotEnd) {
		return Placement{}, apperrors.ErrSlotUnavailable.Withf("slot %s is blocked", slot.Label()).
			WithDetails("rule", "blocked", "slot", slot.Label(), "day", slotStart.Format(utils.DateLayout))
	}
	return Placement{Slot: slot, SlotStart: slotStart, SlotEnd: slotEnd, Units: a.Unit.RequiredUnits(services)}, nil
}

// Check validates r against the reservations currently stored. dayReservations are all reservations
// of the slot's day, userReservations are the employee's reservations from the start of r's month
// (or today, whichever is earlier) onwards.
func (v *Validator) Check(now time.Time, r *Reservation, p Placement, dayReservations, userReservations []Reservation) error {
	day := p.SlotStart.Format(utils.DateLayout)

	if v.Policy.SingleActiveReservation {
		for _, other := range userReservations {
			if other.ID != r.ID && other.Upcoming(now) {
				return apperrors.ErrDuplicateActive.WithDetails(
					"rule", "single_active", "existing_id", other.ID, "existing_start", other.StartDate)
			}
		}
	}

	if limit := v.Policy.DailyLimitPerPerson; limit > 0 {
		n := 0
		for _, other := range userReservations {
			if other.ID != r.ID && other.Active() && utils.SameDay(r.StartDate, other.StartDate) {
				n++
			}
		}
		if n >= limit {
			return apperrors.ErrDuplicateActive.Withf("daily reservation limit of %d reached", limit).
				WithDetails("rule", "daily_limit", "day", day, "limit", limit)
		}
	}

	if limit := v.Policy.MonthlyLimitPerPerson; limit > 0 {
		monthStart, monthEnd := utils.MonthBounds(r.StartDate)
		used := 0
		for _, other := range userReservations {
			if other.ID == r.ID || !other.Active() {
				continue
			}
			s := other.StartDate.In(r.StartDate.Location())
			if !s.Before(monthStart) && s.Before(monthEnd) {
				used += WashUnits(other.Services)
			}
		}
		if used+WashUnits(r.Services) > limit {
			return apperrors.ErrMonthlyLimitExceeded.WithDetails(
				"rule", "monthly_limit", "month", monthStart.Format("2006-01"), "used", used, "limit", limit)
		}
	}

	remaining := ComputeRemainingCapacity(p.SlotStart, p.Slot, dayReservations, v.Allocator.Unit)
	if remaining < p.Units {
		if remaining < 0 {
			remaining = 0
		}
		return apperrors.ErrCapacityExceeded.Withf("slot %s on %s has no room left", p.Slot.Label(), day).
			WithDetails("rule", "capacity", "slot", p.Slot.Label(), "day", day,
				"remaining", remaining, "required", p.Units, "unit", string(v.Allocator.Unit))
	}
	return nil
}
