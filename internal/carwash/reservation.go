package carwash

import "time"

// Reservation is one booking of a vehicle into a slot.
type Reservation struct {
	ID                 string        `json:"id"`
	UserID             string        `json:"user_id"`
	VehiclePlateNumber string        `json:"vehicle_plate_number"`
	Location           string        `json:"location,omitempty"`
	Services           []ServiceType `json:"services"`
	Private            bool          `json:"private"`
	Mpv                bool          `json:"mpv"`
	TimeRequirement    int           `json:"time_requirement"`
	StartDate          time.Time     `json:"start_date"`
	EndDate            time.Time     `json:"end_date"`
	State              State         `json:"state"`
	Comment            string        `json:"comment,omitempty"`
	CarwashComment     string        `json:"carwash_comment,omitempty"`
	CreatedByID        string        `json:"created_by_id"`
	CreatedOn          time.Time     `json:"created_on"`
	OutlookEventID     string        `json:"outlook_event_id,omitempty"`
	PaymentSessionID   string        `json:"payment_session_id,omitempty"`
}

// Active reservations hold slot capacity.
func (r Reservation) Active() bool {
	return r.State != Cancelled
}

// Upcoming reservations are active, unfinished and not yet over.
func (r Reservation) Upcoming(now time.Time) bool {
	return r.Active() && r.State != Done && r.EndDate.After(now)
}

// Units is the capacity weight of the reservation.
func (r Reservation) Units(unit CapacityUnit) int {
	if unit == Minutes {
		return r.TimeRequirement
	}
	return WashUnits(r.Services)
}

// Blocker removes availability for a date range. A nil EndDate blocks the whole day of StartDate.
type Blocker struct {
	ID        string     `json:"id"`
	StartDate time.Time  `json:"start_date"`
	EndDate   *time.Time `json:"end_date,omitempty"`
	Comment   string     `json:"comment,omitempty"`
}

// Range returns the blocked interval [start, end). A whole-day blocker covers the calendar day of
// StartDate in loc, whatever zone StartDate was loaded in.
func (b Blocker) Range(loc *time.Location) (time.Time, time.Time) {
	if b.EndDate != nil {
		return b.StartDate, *b.EndDate
	}
	if loc == nil {
		loc = b.StartDate.Location()
	}
	y, m, d := b.StartDate.In(loc).Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

// Overlaps reports whether [start, end) intersects the blocked interval. Whole days are resolved in
// the location of start.
func (b Blocker) Overlaps(start, end time.Time) bool {
	bs, be := b.Range(start.Location())
	return start.Before(be) && end.After(bs)
}
