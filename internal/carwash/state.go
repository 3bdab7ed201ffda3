package carwash

import (
	"fmt"
	"strings"

	apperrors "carwash/internal/errors"
)

// State of a reservation. The lifecycle states are ordered and only move forward;
// Cancelled is terminal and sits outside the order.
type State int

const (
	SubmittedNotActual State = iota
	ReminderSentWaitingForKey
	DropoffAndLocationConfirmed
	WashInProgress
	NotYetPaid
	Done
	Cancelled
)

var stateNames = map[State]string{
	SubmittedNotActual:          "SubmittedNotActual",
	ReminderSentWaitingForKey:   "ReminderSentWaitingForKey",
	DropoffAndLocationConfirmed: "DropoffAndLocationConfirmed",
	WashInProgress:              "WashInProgress",
	NotYetPaid:                  "NotYetPaid",
	Done:                        "Done",
	Cancelled:                   "Cancelled",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

func ParseState(name string) (State, error) {
	for s, n := range stateNames {
		if strings.EqualFold(n, name) {
			return s, nil
		}
	}
	return 0, apperrors.ErrInvalidInput.Withf("unknown state %q", name)
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(b []byte) error {
	parsed, err := ParseState(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Transition names a lifecycle step.
type Transition string

const (
	SendReminder   Transition = "send_reminder"
	ConfirmDropoff Transition = "confirm_dropoff"
	StartWash      Transition = "start_wash"
	CompleteWash   Transition = "complete_wash"
	MarkPaid       Transition = "mark_paid"
	MarkDone       Transition = "mark_done"
	Cancel         Transition = "cancel"
)

var allowedFrom = map[Transition][]State{
	SendReminder:   {SubmittedNotActual},
	ConfirmDropoff: {ReminderSentWaitingForKey},
	StartWash:      {DropoffAndLocationConfirmed},
	CompleteWash:   {WashInProgress},
	MarkPaid:       {NotYetPaid},
	MarkDone:       {WashInProgress, NotYetPaid},
	Cancel:         {SubmittedNotActual, ReminderSentWaitingForKey},
}

// AllowedFrom lists the source states t may be applied to.
func (t Transition) AllowedFrom() []State {
	return append([]State(nil), allowedFrom[t]...)
}

// Apply computes the state reached by taking t from current. Private decides whether a
// completed wash still has to be paid by the employee.
func (t Transition) Apply(current State, private bool) (State, error) {
	from, ok := allowedFrom[t]
	if !ok {
		return current, apperrors.ErrInvalidInput.Withf("unknown transition %q", string(t))
	}
	permitted := false
	for _, s := range from {
		if s == current {
			permitted = true
			break
		}
	}
	if !permitted {
		expected := make([]string, len(from))
		for i, s := range from {
			expected[i] = s.String()
		}
		return current, apperrors.ErrInvalidStateTransition.
			Withf("cannot %s a reservation in state %s", strings.ReplaceAll(string(t), "_", " "), current).
			WithDetails("transition", string(t), "current", current.String(), "expected", expected)
	}

	switch t {
	case SendReminder:
		return ReminderSentWaitingForKey, nil
	case ConfirmDropoff:
		return DropoffAndLocationConfirmed, nil
	case StartWash:
		return WashInProgress, nil
	case CompleteWash:
		if private {
			return NotYetPaid, nil
		}
		return Done, nil
	case MarkPaid, MarkDone:
		return Done, nil
	default:
		return Cancelled, nil
	}
}

// Cancellable reports whether the employee may still withdraw the reservation.
func (s State) Cancellable() bool {
	return s == SubmittedNotActual || s == ReminderSentWaitingForKey
}
