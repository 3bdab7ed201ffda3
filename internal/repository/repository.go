package repository

import (
	"context"
	"time"

	"carwash/internal/carwash"
)

// ReservationTx is the store as seen from inside a serializable transaction.
type ReservationTx interface {
	ReservationsBetween(ctx context.Context, from, to time.Time) ([]carwash.Reservation, error)
	UserReservationsSince(ctx context.Context, userID string, since time.Time) ([]carwash.Reservation, error)
	InsertReservation(ctx context.Context, r *carwash.Reservation) error
}

// StateUpdate is applied together with a state change. Nil fields are left untouched.
type StateUpdate struct {
	State            carwash.State
	Location         *string
	CarwashComment   *string
	PaymentSessionID *string
}

type ReservationStore interface {
	// InTx runs fn in a serializable transaction, retrying it on serialization failures.
	InTx(ctx context.Context, fn func(tx ReservationTx) error) error
	ReservationsBetween(ctx context.Context, from, to time.Time) ([]carwash.Reservation, error)
	UserReservationsSince(ctx context.Context, userID string, since time.Time) ([]carwash.Reservation, error)
	GetReservation(ctx context.Context, id string) (*carwash.Reservation, error)
	// UpdateState moves the reservation to u.State only if it is still in expected.
	UpdateState(ctx context.Context, id string, expected carwash.State, u StateUpdate) (*carwash.Reservation, error)
}

// ReservationFilter narrows admin listings. Zero values mean "any".
type ReservationFilter struct {
	From   *time.Time
	To     *time.Time
	State  *carwash.State
	UserID string
}

type AdminStore interface {
	ListReservations(ctx context.Context, f ReservationFilter) ([]carwash.Reservation, error)
	ListBlockers(ctx context.Context, from, to time.Time) ([]carwash.Blocker, error)
	CreateBlocker(ctx context.Context, b *carwash.Blocker) error
	DeleteBlocker(ctx context.Context, id string) error
}

type JobStore interface {
	ReminderCandidates(ctx context.Context, from, to time.Time) ([]carwash.Reservation, error)
	PurgeCancelledBefore(ctx context.Context, before time.Time) (int64, error)
}

type PaymentStore interface {
	GetReservationByPaymentSession(ctx context.Context, sessionID string) (*carwash.Reservation, error)
	SetPaymentSession(ctx context.Context, reservationID, sessionID string) error
}

// User is an employee account.
type User struct {
	ID                  string    `json:"id"`
	Email               string    `json:"email"`
	FullName            string    `json:"full_name"`
	Phone               string    `json:"phone,omitempty"`
	Company             string    `json:"company,omitempty"`
	PasswordHash        string    `json:"-"`
	IsCarwashAdmin      bool      `json:"is_carwash_admin"`
	NotificationChannel string    `json:"notification_channel"`
	CreatedAt           time.Time `json:"created_at"`
}

type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByID(ctx context.Context, id string) (*User, error)
	// CreateUser hashes password and stores u, filling in its ID and CreatedAt when empty.
	CreateUser(ctx context.Context, u *User, password string) error
}
