package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Kind identifies the business rule or failure class behind an error.
type Kind string

const (
	KindCapacityExceeded       Kind = "capacity_exceeded"
	KindMonthlyLimitExceeded   Kind = "monthly_limit_exceeded"
	KindDuplicateActive        Kind = "duplicate_active_reservation"
	KindPastDateRejected       Kind = "past_date_rejected"
	KindCrossDayRangeRejected  Kind = "cross_day_range_rejected"
	KindInvalidStateTransition Kind = "invalid_state_transition"
	KindSlotUnavailable        Kind = "slot_unavailable"
	KindNotFound               Kind = "not_found"
	KindForbidden              Kind = "forbidden"
	KindUnauthorized           Kind = "unauthorized"
	KindConflict               Kind = "conflict"
	KindInvalidInput           Kind = "invalid_input"
	KindInternal               Kind = "internal"
)

var statusByKind = map[Kind]int{
	KindCapacityExceeded:       http.StatusConflict,
	KindMonthlyLimitExceeded:   http.StatusUnprocessableEntity,
	KindDuplicateActive:        http.StatusUnprocessableEntity,
	KindPastDateRejected:       http.StatusBadRequest,
	KindCrossDayRangeRejected:  http.StatusBadRequest,
	KindInvalidStateTransition: http.StatusConflict,
	KindSlotUnavailable:        http.StatusUnprocessableEntity,
	KindNotFound:               http.StatusNotFound,
	KindForbidden:              http.StatusForbidden,
	KindUnauthorized:           http.StatusUnauthorized,
	KindConflict:               http.StatusConflict,
	KindInvalidInput:           http.StatusBadRequest,
	KindInternal:               http.StatusInternalServerError,
}

// HTTPError represents an error with an associated HTTP status code.
type HTTPError struct {
	Code    int
	Kind    Kind
	Message string
	Details map[string]any
}

func (e *HTTPError) Error() string {
	return e.Message
}

// Is matches any *HTTPError of the same kind, so package-level sentinels work with errors.Is.
func (e *HTTPError) Is(target error) bool {
	t, ok := target.(*HTTPError)
	return ok && t.Kind == e.Kind
}

// WithDetails returns a copy of e carrying the given key/value pairs.
func (e *HTTPError) WithDetails(kv ...any) *HTTPError {
	out := &HTTPError{Code: e.Code, Kind: e.Kind, Message: e.Message, Details: map[string]any{}}
	for k, v := range e.Details {
		out.Details[k] = v
	}
	for i := 0; i+1 < len(kv); i += 2 {
		out.Details[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return out
}

// Withf returns a copy of e with a formatted message.
func (e *HTTPError) Withf(format string, args ...any) *HTTPError {
	out := e.WithDetails()
	out.Message = fmt.Sprintf(format, args...)
	return out
}

// NewHTTPError creates a new HTTPError with the given code and message.
func NewHTTPError(code int, message string) *HTTPError {
	return &HTTPError{
		Code:    code,
		Kind:    KindInternal,
		Message: message,
	}
}

// New creates an error of the given kind with the status code registered for it.
func New(kind Kind, message string) *HTTPError {
	code, ok := statusByKind[kind]
	if !ok {
		code = http.StatusInternalServerError
	}
	return &HTTPError{Code: code, Kind: kind, Message: message}
}

var (
	ErrCapacityExceeded       = New(KindCapacityExceeded, "slot capacity exceeded")
	ErrMonthlyLimitExceeded   = New(KindMonthlyLimitExceeded, "monthly reservation limit exceeded")
	ErrDuplicateActive        = New(KindDuplicateActive, "an active reservation already exists")
	ErrPastDateRejected       = New(KindPastDateRejected, "reservation cannot start in the past")
	ErrCrossDayRangeRejected  = New(KindCrossDayRangeRejected, "reservation must start and end on the same day")
	ErrInvalidStateTransition = New(KindInvalidStateTransition, "invalid state transition")
	ErrSlotUnavailable        = New(KindSlotUnavailable, "slot is not available")
	ErrNotFound               = New(KindNotFound, "not found")
	ErrForbidden              = New(KindForbidden, "forbidden")
	ErrUnauthorized           = New(KindUnauthorized, "unauthorized")
	ErrConflict               = New(KindConflict, "concurrent modification, retry")
	ErrInvalidInput           = New(KindInvalidInput, "invalid input")
)

// As returns the *HTTPError in err's chain, if any.
func As(err error) (*HTTPError, bool) {
	var he *HTTPError
	if stderrors.As(err, &he) {
		return he, true
	}
	return nil, false
}

// KindOf reports the kind of err, KindInternal for foreign errors.
func KindOf(err error) Kind {
	if he, ok := As(err); ok {
		return he.Kind
	}
	return KindInternal
}

// StatusOf reports the HTTP status to render err with.
func StatusOf(err error) int {
	if he, ok := As(err); ok {
		return he.Code
	}
	return http.StatusInternalServerError
}
