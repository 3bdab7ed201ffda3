package db

import (
	"database/sql"
	"time"

	"github.com/lib/pq"
)

// Reservation is the persisted row shape of a reservation.
type Reservation struct {
	ID                 string         `db:"id"`
	UserID             string         `db:"user_id"`
	VehiclePlateNumber string         `db:"vehicle_plate_number"`
	Location           sql.NullString `db:"location"`
	State              int            `db:"state"`
	Services           pq.Int64Array  `db:"services"`
	Private            bool           `db:"private"`
	Mpv                bool           `db:"mpv"`
	TimeRequirement    int            `db:"time_requirement"`
	StartDate          time.Time      `db:"start_date"`
	EndDate            sql.NullTime   `db:"end_date"`
	Comment            sql.NullString `db:"comment"`
	CarwashComment     sql.NullString `db:"carwash_comment"`
	CreatedByID        string         `db:"created_by_id"`
	CreatedOn          time.Time      `db:"created_on"`
	OutlookEventID     sql.NullString `db:"outlook_event_id"`
	PaymentSessionID   sql.NullString `db:"payment_session_id"`
}

type Blocker struct {
	ID        string         `db:"id"`
	StartDate time.Time      `db:"start_date"`
	EndDate   sql.NullTime   `db:"end_date"`
	Comment   sql.NullString `db:"comment"`
}

type User struct {
	ID                  string         `db:"id"`
	Email               string         `db:"email"`
	FullName            string         `db:"full_name"`
	Phone               sql.NullString `db:"phone"`
	Company             sql.NullString `db:"company"`
	PasswordHash        string         `db:"password_hash"`
	IsCarwashAdmin      bool           `db:"is_carwash_admin"`
	NotificationChannel string         `db:"notification_channel"`
	CreatedAt           time.Time      `db:"created_at"`
}
