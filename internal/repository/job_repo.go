package repository

import (
	"context"
	"fmt"
	"time"

	"carwash/internal/carwash"
	"carwash/internal/db"

	"github.com/jmoiron/sqlx"
	log "github.com/sirupsen/logrus"
)

type JobRepository struct {
	DB *sqlx.DB
}

func NewJobRepository(conn *sqlx.DB) *JobRepository {
	return &JobRepository{DB: conn}
}

// ReminderCandidates returns submitted reservations starting in [from, to).
func (r *JobRepository) ReminderCandidates(ctx context.Context, from, to time.Time) ([]carwash.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations
		WHERE state = $1 AND start_date >= $2 AND start_date < $3 ORDER BY start_date`
	var rows []db.Reservation
	if err := r.DB.SelectContext(ctx, &rows, query, int(carwash.SubmittedNotActual), from, to); err != nil {
		return nil, fmt.Errorf("error querying reminder candidates: %w", err)
	}
	return fromRows(rows), nil
}

// PurgeCancelledBefore deletes cancelled reservations that started before the cutoff.
func (r *JobRepository) PurgeCancelledBefore(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM reservations WHERE state = $1 AND start_date < $2`,
		int(carwash.Cancelled), before)
	if err != nil {
		return 0, fmt.Errorf("error purging cancelled reservations: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		log.WithError(err).Warn("could not get rows affected")
		return 0, nil
	}
	return n, nil
}
