package carwash

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// CapacityUnit selects what Slot.Capacity counts.
type CapacityUnit string

const (
	// WashCount: capacity is a number of washes, a reservation weighs WashUnits of its services.
	WashCount CapacityUnit = "wash_count"
	// Minutes: capacity is wash minutes, a reservation weighs its TimeRequirement.
	Minutes CapacityUnit = "minutes"
)

func ParseCapacityUnit(s string) (CapacityUnit, error) {
	switch CapacityUnit(strings.ToLower(strings.TrimSpace(s))) {
	case WashCount, "":
		return WashCount, nil
	case Minutes:
		return Minutes, nil
	}
	return "", fmt.Errorf("unknown capacity unit %q", s)
}

// RequiredUnits converts a service set into capacity units.
func (u CapacityUnit) RequiredUnits(services []ServiceType) int {
	if u == Minutes {
		return TimeRequirement(services)
	}
	return WashUnits(services)
}

// Slot is a recurring daily window [StartHour, EndHour).
type Slot struct {
	StartHour int `json:"start_hour"`
	EndHour   int `json:"end_hour"`
	Capacity  int `json:"capacity"`
}

func (s Slot) Label() string {
	return fmt.Sprintf("%02d:00-%02d:00", s.StartHour, s.EndHour)
}

// Window returns the slot's start and end on the calendar day of day, in day's location.
func (s Slot) Window(day time.Time) (time.Time, time.Time) {
	y, m, d := day.Date()
	start := time.Date(y, m, d, s.StartHour, 0, 0, 0, day.Location())
	end := time.Date(y, m, d, s.EndHour, 0, 0, 0, day.Location())
	return start, end
}

// Contains reports whether t falls inside the slot window of t's own day.
func (s Slot) Contains(t time.Time) bool {
	start, end := s.Window(t)
	return !t.Before(start) && t.Before(end)
}

// ParseSlots reads "8-11:12,11-14:12" style definitions. The result is sorted and overlap free.
func ParseSlots(def string) ([]Slot, error) {
	var slots []Slot
	for _, part := range strings.Split(def, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		hours, capStr, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("slot %q: missing capacity", part)
		}
		startStr, endStr, ok := strings.Cut(hours, "-")
		if !ok {
			return nil, fmt.Errorf("slot %q: expected start-end hours", part)
		}
		start, err := strconv.Atoi(strings.TrimSpace(startStr))
		if err != nil {
			return nil, fmt.Errorf("slot %q: %w", part, err)
		}
		end, err := strconv.Atoi(strings.TrimSpace(endStr))
		if err != nil {
			return nil, fmt.Errorf("slot %q: %w", part, err)
		}
		capacity, err := strconv.Atoi(strings.TrimSpace(capStr))
		if err != nil {
			return nil, fmt.Errorf("slot %q: %w", part, err)
		}
		slots = append(slots, Slot{StartHour: start, EndHour: end, Capacity: capacity})
	}
	if err := ValidateSlots(slots); err != nil {
		return nil, err
	}
	return slots, nil
}

// ValidateSlots sorts slots in place and rejects empty, inverted or overlapping windows.
func ValidateSlots(slots []Slot) error {
	if len(slots) == 0 {
		return fmt.Errorf("no slots configured")
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].StartHour < slots[j].StartHour })
	for i, s := range slots {
		if s.StartHour < 0 || s.EndHour > 24 || s.StartHour >= s.EndHour {
			return fmt.Errorf("slot %s: invalid hours", s.Label())
		}
		if s.Capacity <= 0 {
			return fmt.Errorf("slot %s: capacity must be positive", s.Label())
		}
		if i > 0 && slots[i-1].EndHour > s.StartHour {
			return fmt.Errorf("slot %s overlaps %s", s.Label(), slots[i-1].Label())
		}
	}
	return nil
}

// SlotDescriptor is a concrete, bookable slot instance.
type SlotDescriptor struct {
	Label     string    `json:"label"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Remaining int       `json:"remaining,omitempty"`
}

// SlotSet is a set of slot instances keyed by their start instant.
type SlotSet map[int64]struct{}

func (s SlotSet) Add(start time.Time) { s[start.Unix()] = struct{}{} }

func (s SlotSet) Has(start time.Time) bool {
	_, ok := s[start.Unix()]
	return ok
}
