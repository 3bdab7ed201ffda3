package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"carwash/internal/carwash"
	"carwash/internal/db"
	apperrors "carwash/internal/errors"

	"github.com/jmoiron/sqlx"
)

type ReservationRepository struct {
	DB    *sqlx.DB
	Retry RetryPolicy
}

func NewReservationRepository(conn *sqlx.DB, retry RetryPolicy) *ReservationRepository {
	return &ReservationRepository{DB: conn, Retry: retry}
}

// Migrate applies the embedded schema.
func Migrate(ctx context.Context, conn *sqlx.DB) error {
	if _, err := conn.ExecContext(ctx, db.Schema); err != nil {
		return fmt.Errorf("error applying schema: %w", err)
	}
	return nil
}

// queryer is satisfied by both *sqlx.DB and *sqlx.Tx.
type queryer interface {
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	NamedExecContext(ctx context.Context, query string, arg any) (sql.Result, error)
}

func reservationsBetween(ctx context.Context, q queryer, from, to time.Time) ([]carwash.Reservation, error) {
	var rows []db.Reservation
	query := `SELECT ` + reservationColumns + ` FROM reservations
		WHERE start_date >= $1 AND start_date < $2 ORDER BY start_date, created_on`
	if err := q.SelectContext(ctx, &rows, query, from, to); err != nil {
		return nil, fmt.Errorf("error querying reservations between %s and %s: %w", from, to, err)
	}
	return fromRows(rows), nil
}

func userReservationsSince(ctx context.Context, q queryer, userID string, since time.Time) ([]carwash.Reservation, error) {
	var rows []db.Reservation
	query := `SELECT ` + reservationColumns + ` FROM reservations
		WHERE user_id = $1 AND start_date >= $2 ORDER BY start_date`
	if err := q.SelectContext(ctx, &rows, query, userID, since); err != nil {
		return nil, fmt.Errorf("error querying reservations of user %s: %w", userID, err)
	}
	return fromRows(rows), nil
}

func insertReservation(ctx context.Context, q queryer, r *carwash.Reservation) error {
	row := toRow(r)
	query := `INSERT INTO reservations (` + reservationColumns + `) VALUES (
		:id, :user_id, :vehicle_plate_number, :location, :state, :services, :private, :mpv,
		:time_requirement, :start_date, :end_date, :comment, :carwash_comment, :created_by_id, :created_on,
		:outlook_event_id, :payment_session_id)`
	if _, err := q.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("error inserting reservation: %w", err)
	}
	return nil
}

type pgTx struct {
	tx *sqlx.Tx
}

func (t *pgTx) ReservationsBetween(ctx context.Context, from, to time.Time) ([]carwash.Reservation, error) {
	return reservationsBetween(ctx, t.tx, from, to)
}

func (t *pgTx) UserReservationsSince(ctx context.Context, userID string, since time.Time) ([]carwash.Reservation, error) {
	return userReservationsSince(ctx, t.tx, userID, since)
}

func (t *pgTx) InsertReservation(ctx context.Context, r *carwash.Reservation) error {
	return insertReservation(ctx, t.tx, r)
}

// InTx runs fn under SERIALIZABLE isolation so that the capacity read and the insert cannot
// interleave with a concurrent submission for the same slot.
func (r *ReservationRepository) InTx(ctx context.Context, fn func(tx ReservationTx) error) error {
	return withRetry(ctx, r.Retry, func() error {
		tx, err := r.DB.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
		if err != nil {
			return fmt.Errorf("error starting transaction: %w", err)
		}
		if err := fn(&pgTx{tx: tx}); err != nil {
			_ = tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("error committing transaction: %w", err)
		}
		return nil
	})
}

func (r *ReservationRepository) ReservationsBetween(ctx context.Context, from, to time.Time) ([]carwash.Reservation, error) {
	return reservationsBetween(ctx, r.DB, from, to)
}

func (r *ReservationRepository) UserReservationsSince(ctx context.Context, userID string, since time.Time) ([]carwash.Reservation, error) {
	return userReservationsSince(ctx, r.DB, userID, since)
}

func (r *ReservationRepository) GetReservation(ctx context.Context, id string) (*carwash.Reservation, error) {
	var row db.Reservation
	err := r.DB.GetContext(ctx, &row, `SELECT `+reservationColumns+` FROM reservations WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrNotFound.Withf("reservation %s not found", id).WithDetails("id", id)
		}
		return nil, fmt.Errorf("error querying reservation %s: %w", id, err)
	}
	res := fromRow(row)
	return &res, nil
}

func (r *ReservationRepository) UpdateState(ctx context.Context, id string, expected carwash.State, u StateUpdate) (*carwash.Reservation, error) {
	query := `
		UPDATE reservations SET
			state = $3,
			location = COALESCE($4, location),
			carwash_comment = COALESCE($5, carwash_comment),
			payment_session_id = COALESCE($6, payment_session_id)
		WHERE id = $1 AND state = $2
		RETURNING ` + reservationColumns

	var row db.Reservation
	err := r.DB.GetContext(ctx, &row, query, id, int(expected), int(u.State),
		optional(u.Location), optional(u.CarwashComment), optional(u.PaymentSessionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Either gone or moved by someone else since it was read.
			if _, getErr := r.GetReservation(ctx, id); getErr != nil {
				return nil, getErr
			}
			return nil, apperrors.ErrConflict.Withf("reservation %s changed state concurrently", id).
				WithDetails("id", id, "expected", expected.String())
		}
		return nil, fmt.Errorf("error updating state of reservation %s: %w", id, err)
	}
	res := fromRow(row)
	return &res, nil
}
