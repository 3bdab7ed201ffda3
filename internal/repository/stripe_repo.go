package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"carwash/internal/carwash"
	"carwash/internal/db"
	apperrors "carwash/internal/errors"

	"github.com/jmoiron/sqlx"
)

type StripeRepository struct {
	DB *sqlx.DB
}

func NewStripeRepository(conn *sqlx.DB) *StripeRepository {
	return &StripeRepository{DB: conn}
}

func (r *StripeRepository) GetReservationByPaymentSession(ctx context.Context, sessionID string) (*carwash.Reservation, error) {
	var row db.Reservation
	err := r.DB.GetContext(ctx, &row, `SELECT `+reservationColumns+` FROM reservations WHERE payment_session_id = $1`, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrNotFound.Withf("no reservation for payment session %s", sessionID)
		}
		return nil, fmt.Errorf("error querying reservation by payment session: %w", err)
	}
	res := fromRow(row)
	return &res, nil
}

func (r *StripeRepository) SetPaymentSession(ctx context.Context, reservationID, sessionID string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE reservations SET payment_session_id = $2 WHERE id = $1`, reservationID, sessionID)
	if err != nil {
		return fmt.Errorf("error storing payment session for reservation %s: %w", reservationID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperrors.ErrNotFound.Withf("reservation %s not found", reservationID)
	}
	return nil
}
