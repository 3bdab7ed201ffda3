package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"carwash/internal/carwash"
	"carwash/internal/db"
	apperrors "carwash/internal/errors"

	"github.com/jmoiron/sqlx"
)

type AdminRepository struct {
	DB *sqlx.DB
}

func NewAdminRepository(conn *sqlx.DB) *AdminRepository {
	return &AdminRepository{DB: conn}
}

func (r *AdminRepository) ListReservations(ctx context.Context, f ReservationFilter) ([]carwash.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE 1=1`
	args := []any{}
	idx := 1

	if f.From != nil {
		query += " AND start_date >= $" + strconv.Itoa(idx)
		args = append(args, *f.From)
		idx++
	}
	if f.To != nil {
		query += " AND start_date < $" + strconv.Itoa(idx)
		args = append(args, *f.To)
		idx++
	}
	if f.State != nil {
		query += " AND state = $" + strconv.Itoa(idx)
		args = append(args, int(*f.State))
		idx++
	}
	if f.UserID != "" {
		query += " AND user_id = $" + strconv.Itoa(idx)
		args = append(args, f.UserID)
		idx++
	}
	query += " ORDER BY start_date"

	var rows []db.Reservation
	if err := r.DB.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("error listing reservations: %w", err)
	}
	return fromRows(rows), nil
}

// ListBlockers returns blockers intersecting [from, to). Whole-day blockers are resolved in the
// location of from. The query only narrows candidates by a day on each side so that the session
// time zone and DST changes never drop a match; the exact overlap is decided by Blocker.Overlaps.
func (r *AdminRepository) ListBlockers(ctx context.Context, from, to time.Time) ([]carwash.Blocker, error) {
	query := `
		SELECT id, start_date, end_date, comment FROM blockers
		WHERE start_date < $2::timestamptz + INTERVAL '1 day'
		  AND COALESCE(end_date, start_date + INTERVAL '2 days') > $1
		ORDER BY start_date`
	var rows []db.Blocker
	if err := r.DB.SelectContext(ctx, &rows, query, from, to); err != nil {
		return nil, fmt.Errorf("error listing blockers: %w", err)
	}
	out := make([]carwash.Blocker, 0, len(rows))
	for _, row := range rows {
		if b := blockerFromRow(row); b.Overlaps(from, to) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *AdminRepository) CreateBlocker(ctx context.Context, b *carwash.Blocker) error {
	row := blockerToRow(b)
	_, err := r.DB.NamedExecContext(ctx,
		`INSERT INTO blockers (id, start_date, end_date, comment) VALUES (:id, :start_date, :end_date, :comment)`, row)
	if err != nil {
		return fmt.Errorf("error inserting blocker: %w", err)
	}
	return nil
}

func (r *AdminRepository) DeleteBlocker(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM blockers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("error deleting blocker %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperrors.ErrNotFound.Withf("blocker %s not found", id)
	}
	return nil
}
