package repository

import (
	"context"
	"os"
	"testing"
	"time"
	_ "time/tzdata"

	"carwash/internal/carwash"
	"carwash/internal/db"
	apperrors "carwash/internal/errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Integration tests (require a running PostgreSQL)
func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}
	conn, err := db.Open(context.Background(), url)
	if err != nil {
		t.Skipf("failed to connect: %v, skipping integration test", err)
	}
	require.NoError(t, Migrate(context.Background(), conn))
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestReservationRepository_Integration(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()

	users := NewUserRepository(conn)
	u := &User{Email: uuid.NewString() + "@example.com", FullName: "Integration"}
	require.NoError(t, users.CreateUser(ctx, u, "secret"))

	repo := NewReservationRepository(conn, DefaultRetryPolicy)
	start := time.Now().Add(48 * time.Hour).Truncate(time.Hour)
	r := reservation(uuid.NewString(), u.ID, start, carwash.SubmittedNotActual)
	r.VehiclePlateNumber = "ABC123"
	r.CreatedByID = u.ID

	require.NoError(t, repo.InTx(ctx, func(tx ReservationTx) error {
		return tx.InsertReservation(ctx, &r)
	}))

	got, err := repo.GetReservation(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, []carwash.ServiceType{carwash.Exterior}, got.Services)
	assert.True(t, got.StartDate.Equal(start))

	between, err := repo.ReservationsBetween(ctx, start.Add(-time.Minute), start.Add(time.Minute))
	require.NoError(t, err)
	assert.NotEmpty(t, between)

	updated, err := repo.UpdateState(ctx, r.ID, carwash.SubmittedNotActual, StateUpdate{State: carwash.ReminderSentWaitingForKey})
	require.NoError(t, err)
	assert.Equal(t, carwash.ReminderSentWaitingForKey, updated.State)

	_, err = repo.UpdateState(ctx, r.ID, carwash.SubmittedNotActual, StateUpdate{State: carwash.Cancelled})
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	_, err = repo.GetReservation(ctx, uuid.NewString())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestAdminRepository_BlockersIntegration(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	repo := NewAdminRepository(conn)

	start := time.Date(2031, 5, 5, 0, 0, 0, 0, time.UTC)
	b := &carwash.Blocker{ID: uuid.NewString(), StartDate: start, Comment: "maintenance"}
	require.NoError(t, repo.CreateBlocker(ctx, b))

	got, err := repo.ListBlockers(ctx, start.Add(10*time.Hour), start.Add(11*time.Hour))
	require.NoError(t, err)
	var found bool
	for _, g := range got {
		found = found || g.ID == b.ID
	}
	assert.True(t, found)

	require.NoError(t, repo.DeleteBlocker(ctx, b.ID))
	assert.ErrorIs(t, repo.DeleteBlocker(ctx, b.ID), apperrors.ErrNotFound)
}

func TestAdminRepository_WholeDayBlockerAcrossZones(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	repo := NewAdminRepository(conn)

	loc, err := time.LoadLocation("Europe/Budapest")
	require.NoError(t, err)
	// Sunday 2031-03-30 is the spring DST change in Budapest.
	b := &carwash.Blocker{ID: uuid.NewString(), StartDate: time.Date(2031, 3, 31, 0, 0, 0, 0, loc), Comment: "maintenance"}
	require.NoError(t, repo.CreateBlocker(ctx, b))
	t.Cleanup(func() { repo.DeleteBlocker(context.Background(), b.ID) })

	contains := func(from, to time.Time) bool {
		got, err := repo.ListBlockers(ctx, from, to)
		require.NoError(t, err)
		for _, g := range got {
			if g.ID == b.ID {
				return true
			}
		}
		return false
	}

	assert.True(t, contains(time.Date(2031, 3, 31, 8, 0, 0, 0, loc), time.Date(2031, 3, 31, 11, 0, 0, 0, loc)))
	assert.True(t, contains(time.Date(2031, 3, 31, 23, 0, 0, 0, loc), time.Date(2031, 4, 1, 0, 0, 0, 0, loc)))
	assert.False(t, contains(time.Date(2031, 3, 28, 8, 0, 0, 0, loc), time.Date(2031, 3, 28, 11, 0, 0, 0, loc)))
	assert.False(t, contains(time.Date(2031, 4, 1, 0, 0, 0, 0, loc), time.Date(2031, 4, 1, 11, 0, 0, 0, loc)))
}
