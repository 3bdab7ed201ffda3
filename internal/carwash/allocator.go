package carwash

import (
	"fmt"
	"time"

	"carwash/internal/utils"
)

const (
	DefaultSlotCount = 3
	// SearchHorizon bounds how far ahead FindNextAvailableSlots looks.
	SearchHorizon = 1 // years
)

// Allocator knows the static slot configuration and the working calendar.
type Allocator struct {
	Slots    []Slot
	Unit     CapacityUnit
	Location *time.Location
	Holidays []time.Time
}

func NewAllocator(slots []Slot, unit CapacityUnit, loc *time.Location, holidays []time.Time) (*Allocator, error) {
	if err := ValidateSlots(slots); err != nil {
		return nil, err
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Allocator{Slots: slots, Unit: unit, Location: loc, Holidays: holidays}, nil
}

// IsWorkingDay is false on weekends and configured holidays.
func (a *Allocator) IsWorkingDay(t time.Time) bool {
	t = t.In(a.Location)
	if utils.IsWeekend(t) {
		return false
	}
	for _, h := range a.Holidays {
		if utils.SameDay(t, h.In(a.Location)) {
			return false
		}
	}
	return true
}

// SlotFor finds the configured slot whose window contains t and returns the window start.
func (a *Allocator) SlotFor(t time.Time) (Slot, time.Time, bool) {
	t = t.In(a.Location)
	for _, s := range a.Slots {
		if s.Contains(t) {
			start, _ := s.Window(t)
			return s, start, true
		}
	}
	return Slot{}, time.Time{}, false
}

// Blocked reports whether any blocker overlaps [start, end). start and end must be in the
// allocator's location so that whole-day blockers fall on the right day.
func Blocked(blockers []Blocker, start, end time.Time) bool {
	for _, b := range blockers {
		if b.Overlaps(start, end) {
			return true
		}
	}
	return false
}

// ComputeRemainingCapacity is slot.Capacity minus the weight of the active reservations starting
// inside the slot window on day. The result only goes negative for an inconsistent reservation set.
func ComputeRemainingCapacity(day time.Time, slot Slot, reservations []Reservation, unit CapacityUnit) int {
	start, end := slot.Window(day)
	used := 0
	for _, r := range reservations {
		if !r.Active() {
			continue
		}
		s := r.StartDate.In(day.Location())
		if s.Before(start) || !s.Before(end) {
			continue
		}
		used += r.Units(unit)
	}
	return slot.Capacity - used
}

// RemainingCapacity is ComputeRemainingCapacity in the allocator's location and unit.
func (a *Allocator) RemainingCapacity(day time.Time, slot Slot, reservations []Reservation) int {
	return ComputeRemainingCapacity(day.In(a.Location), slot, reservations, a.Unit)
}

// FullSlots collects the slot instances that cannot take another reservation weighing required units.
func (a *Allocator) FullSlots(reservations []Reservation, required int) SlotSet {
	if required < 1 {
		required = 1
	}
	used := map[int64]int{}
	capacity := map[int64]int{}
	for _, r := range reservations {
		if !r.Active() {
			continue
		}
		slot, start, ok := a.SlotFor(r.StartDate)
		if !ok {
			continue
		}
		used[start.Unix()] += r.Units(a.Unit)
		capacity[start.Unix()] = slot.Capacity
	}
	full := SlotSet{}
	for key, u := range used {
		if capacity[key]-u < required {
			full[key] = struct{}{}
		}
	}
	return full
}

// SlotQuery parameterizes FindNextAvailableSlots.
type SlotQuery struct {
	Now      time.Time
	From     time.Time
	Count    int
	Required int
}

// FindNextAvailableSlots walks working days forward from q.From for up to a year and returns the
// first q.Count slot instances that start after q.Now, are not blocked and are not in notAvailable.
func (a *Allocator) FindNextAvailableSlots(q SlotQuery, blockers []Blocker, notAvailable SlotSet) []SlotDescriptor {
	count := q.Count
	if count <= 0 {
		count = DefaultSlotCount
	}
	from := q.From.In(a.Location)
	now := q.Now.In(a.Location)
	day := utils.DateOnly(from)
	limit := day.AddDate(SearchHorizon, 0, 0)

	out := make([]SlotDescriptor, 0, count)
	for ; day.Before(limit); day = day.AddDate(0, 0, 1) {
		if !a.IsWorkingDay(day) {
			continue
		}
		for _, s := range a.Slots {
			start, end := s.Window(day)
			if !start.After(now) || start.Before(from) {
				continue
			}
			if s.Capacity < q.Required {
				continue
			}
			if notAvailable.Has(start) || Blocked(blockers, start, end) {
				continue
			}
			out = append(out, SlotDescriptor{
				Label:     fmt.Sprintf("%s %s", start.Format("Mon 2 Jan"), s.Label()),
				StartTime: start,
				EndTime:   end,
			})
			if len(out) == count {
				return out
			}
		}
	}
	return out
}
