package service

import (
	"context"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"carwash/internal/carwash"
	"carwash/internal/entities"
	apperrors "carwash/internal/errors"
	"carwash/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// Monday 2026-03-02, before opening.
var now = time.Date(2026, 3, 2, 7, 0, 0, 0, time.UTC)

func at(dayOffset, hour, minute int) time.Time {
	return time.Date(2026, 3, 2+dayOffset, hour, minute, 0, 0, time.UTC)
}

type checkoutMock struct {
	mock.Mock
}

func (m *checkoutMock) CreateCheckoutSession(_ context.Context, r carwash.Reservation, email string) (string, string, error) {
	args := m.Called(r.ID, email)
	return args.String(0), args.String(1), args.Error(2)
}

func newTestService(t *testing.T, policy carwash.Policy) (*ReservationService, *repository.MemoryStore) {
	t.Helper()
	store := repository.NewMemoryStore()
	a, err := carwash.NewAllocator([]carwash.Slot{
		{StartHour: 8, EndHour: 11, Capacity: 2},
		{StartHour: 11, EndHour: 14, Capacity: 1},
	}, carwash.WashCount, time.UTC, nil)
	require.NoError(t, err)
	svc := NewReservationService(store, store, store, store, carwash.NewValidator(a, policy), nil)
	svc.Now = func() time.Time { return now }
	return svc, store
}

func request(start time.Time, services ...carwash.ServiceType) entities.ReservationRequest {
	if len(services) == 0 {
		services = []carwash.ServiceType{carwash.Exterior}
	}
	return entities.ReservationRequest{VehiclePlateNumber: "abc-123", Services: services, StartDate: start}
}

func user(id string) Actor { return Actor{UserID: id} }

var admin = Actor{UserID: "admin", Admin: true}

func TestSubmit(t *testing.T) {
	svc, store := newTestService(t, carwash.Policy{DailyLimitPerPerson: 1})
	ctx := context.Background()

	r, err := svc.Submit(ctx, user("u1"), request(at(0, 9, 0), carwash.Interior, carwash.Exterior, carwash.Exterior))
	require.NoError(t, err)
	assert.NotEmpty(t, r.ID)
	assert.Equal(t, "ABC-123", r.VehiclePlateNumber)
	assert.Equal(t, []carwash.ServiceType{carwash.Exterior, carwash.Interior}, r.Services)
	assert.Equal(t, 30, r.TimeRequirement)
	assert.Equal(t, at(0, 9, 30), r.EndDate)
	assert.Equal(t, carwash.SubmittedNotActual, r.State)
	assert.Equal(t, "u1", r.CreatedByID)

	stored, err := store.GetReservation(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.ID, stored.ID)
}

func TestSubmit_Rejections(t *testing.T) {
	svc, _ := newTestService(t, carwash.Policy{DailyLimitPerPerson: 1})
	ctx := context.Background()
	_, err := svc.Submit(ctx, user("u1"), request(at(0, 9, 0)))
	require.NoError(t, err)

	tests := []struct {
		name  string
		actor Actor
		req   entities.ReservationRequest
		want  *apperrors.HTTPError
	}{
		{"anonymous", Actor{}, request(at(0, 9, 0)), apperrors.ErrUnauthorized},
		{"someone else", user("u2"), func() entities.ReservationRequest {
			r := request(at(1, 9, 0))
			r.UserID = "u3"
			return r
		}(), apperrors.ErrForbidden},
		{"past", user("u2"), request(at(-1, 9, 0)), apperrors.ErrPastDateRejected},
		{"weekend", user("u2"), request(at(5, 9, 0)), apperrors.ErrSlotUnavailable},
		{"daily limit", user("u1"), request(at(0, 12, 0)), apperrors.ErrDuplicateActive},
		{"no services", user("u2"), entities.ReservationRequest{VehiclePlateNumber: "X", StartDate: at(1, 9, 0)}, apperrors.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Submit(ctx, tt.actor, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestSubmit_AdminBooksForSomeoneElse(t *testing.T) {
	svc, _ := newTestService(t, carwash.Policy{})
	req := request(at(0, 9, 0))
	req.UserID = "u7"

	r, err := svc.Submit(context.Background(), admin, req)
	require.NoError(t, err)
	assert.Equal(t, "u7", r.UserID)
	assert.Equal(t, "admin", r.CreatedByID)
}

func TestSubmit_CapacityExceeded(t *testing.T) {
	svc, _ := newTestService(t, carwash.Policy{})
	ctx := context.Background()

	_, err := svc.Submit(ctx, user("u1"), request(at(0, 11, 0)))
	require.NoError(t, err)

	_, err = svc.Submit(ctx, user("u2"), request(at(0, 12, 0)))
	require.ErrorIs(t, err, apperrors.ErrCapacityExceeded)
	he, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, "11:00-14:00", he.Details["slot"])
	assert.Equal(t, "2026-03-02", he.Details["day"])
	assert.Equal(t, 0, he.Details["remaining"])
}

func TestSubmit_CancelledReservationsFreeCapacity(t *testing.T) {
	svc, _ := newTestService(t, carwash.Policy{})
	ctx := context.Background()

	r, err := svc.Submit(ctx, user("u1"), request(at(0, 11, 0)))
	require.NoError(t, err)
	_, err = svc.Cancel(ctx, r.ID, user("u1"))
	require.NoError(t, err)

	_, err = svc.Submit(ctx, user("u2"), request(at(0, 11, 30)))
	assert.NoError(t, err)
}

func TestSubmit_ConcurrentLastUnit(t *testing.T) {
	svc, store := newTestService(t, carwash.Policy{})
	ctx := context.Background()

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Submit(ctx, user(string(rune('a'+i))), request(at(0, 11, 0)))
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		kind := apperrors.KindOf(err)
		assert.Contains(t, []apperrors.Kind{apperrors.KindCapacityExceeded, apperrors.KindConflict}, kind)
	}
	assert.Equal(t, 1, succeeded)

	day, err := store.ReservationsBetween(ctx, at(0, 0, 0), at(1, 0, 0))
	require.NoError(t, err)
	slot := svc.Validator.Allocator.Slots[1]
	assert.Equal(t, 0, carwash.ComputeRemainingCapacity(at(0, 11, 0), slot, day, carwash.WashCount))
}

func TestCancel(t *testing.T) {
	svc, _ := newTestService(t, carwash.Policy{})
	ctx := context.Background()
	r, err := svc.Submit(ctx, user("u1"), request(at(0, 9, 0)))
	require.NoError(t, err)

	_, err = svc.Cancel(ctx, r.ID, user("u2"))
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = svc.Cancel(ctx, "missing", user("u1"))
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	cancelled, err := svc.Cancel(ctx, r.ID, user("u1"))
	require.NoError(t, err)
	assert.Equal(t, carwash.Cancelled, cancelled.State)

	_, err = svc.Cancel(ctx, r.ID, user("u1"))
	assert.ErrorIs(t, err, apperrors.ErrInvalidStateTransition)
}

func TestCancel_AfterDropoffIsRejected(t *testing.T) {
	svc, _ := newTestService(t, carwash.Policy{})
	ctx := context.Background()
	r, err := svc.Submit(ctx, user("u1"), request(at(0, 9, 0)))
	require.NoError(t, err)

	_, err = svc.ConfirmDropoff(ctx, r.ID, user("u1"), "B2")
	assert.ErrorIs(t, err, apperrors.ErrInvalidStateTransition)

	_, err = svc.SendReminder(ctx, r.ID)
	require.NoError(t, err)
	_, err = svc.ConfirmDropoff(ctx, r.ID, user("u1"), "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	dropped, err := svc.ConfirmDropoff(ctx, r.ID, user("u1"), "B2")
	require.NoError(t, err)
	assert.Equal(t, "B2", dropped.Location)

	_, err = svc.Cancel(ctx, r.ID, user("u1"))
	require.ErrorIs(t, err, apperrors.ErrInvalidStateTransition)
	he, _ := apperrors.As(err)
	assert.Equal(t, carwash.DropoffAndLocationConfirmed.String(), he.Details["current"])
}

func TestLifecycle_CompanyCar(t *testing.T) {
	svc, _ := newTestService(t, carwash.Policy{})
	ctx := context.Background()
	r, err := svc.Submit(ctx, user("u1"), request(at(0, 9, 0)))
	require.NoError(t, err)

	_, err = svc.SendReminder(ctx, r.ID)
	require.NoError(t, err)
	_, err = svc.ConfirmDropoff(ctx, r.ID, user("u1"), "P1")
	require.NoError(t, err)

	_, err = svc.StartWash(ctx, r.ID, user("u1"))
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = svc.StartWash(ctx, r.ID, admin)
	require.NoError(t, err)
	done, err := svc.CompleteWash(ctx, r.ID, admin)
	require.NoError(t, err)
	assert.Equal(t, carwash.Done, done.State)
}

func TestLifecycle_PrivateCarIsPaidOnline(t *testing.T) {
	svc, store := newTestService(t, carwash.Policy{})
	ctx := context.Background()
	require.NoError(t, store.CreateUser(ctx, &repository.User{ID: "u1", Email: "u1@example.com"}, "password1"))
	checkout := &checkoutMock{}
	svc.Checkout = checkout

	req := request(at(0, 9, 0))
	req.Private = true
	r, err := svc.Submit(ctx, user("u1"), req)
	require.NoError(t, err)
	checkout.On("CreateCheckoutSession", r.ID, "u1@example.com").Return("https://pay.example/cs_1", "cs_1", nil)

	for _, step := range []func() (*carwash.Reservation, error){
		func() (*carwash.Reservation, error) { return svc.SendReminder(ctx, r.ID) },
		func() (*carwash.Reservation, error) { return svc.ConfirmDropoff(ctx, r.ID, user("u1"), "P1") },
		func() (*carwash.Reservation, error) { return svc.StartWash(ctx, r.ID, admin) },
	} {
		_, err := step()
		require.NoError(t, err)
	}

	completed, err := svc.CompleteWash(ctx, r.ID, admin)
	require.NoError(t, err)
	assert.Equal(t, carwash.NotYetPaid, completed.State)
	assert.Equal(t, "cs_1", completed.PaymentSessionID)

	paid, err := svc.MarkPaidBySession(ctx, "cs_1")
	require.NoError(t, err)
	assert.Equal(t, carwash.Done, paid.State)

	again, err := svc.MarkPaidBySession(ctx, "cs_1")
	require.NoError(t, err)
	assert.Equal(t, carwash.Done, again.State)
	checkout.AssertExpectations(t)
}

// racingStore loses every state update, as if another request moved the reservation first.
type racingStore struct {
	*repository.MemoryStore
}

func (s racingStore) UpdateState(context.Context, string, carwash.State, repository.StateUpdate) (*carwash.Reservation, error) {
	return nil, apperrors.ErrConflict
}

func TestCompleteWash_LostTransitionOpensNoCheckout(t *testing.T) {
	svc, store := newTestService(t, carwash.Policy{})
	ctx := context.Background()
	checkout := &checkoutMock{}
	svc.Checkout = checkout

	req := request(at(0, 9, 0))
	req.Private = true
	r, err := svc.Submit(ctx, user("u1"), req)
	require.NoError(t, err)
	_, err = svc.SendReminder(ctx, r.ID)
	require.NoError(t, err)
	_, err = svc.ConfirmDropoff(ctx, r.ID, user("u1"), "P1")
	require.NoError(t, err)
	_, err = svc.StartWash(ctx, r.ID, admin)
	require.NoError(t, err)

	svc.Store = racingStore{store}
	_, err = svc.CompleteWash(ctx, r.ID, admin)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	checkout.AssertNotCalled(t, "CreateCheckoutSession", mock.Anything, mock.Anything)

	stored, err := store.GetReservation(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, carwash.WashInProgress, stored.State)
	assert.Empty(t, stored.PaymentSessionID)
}

func TestStaffTransition_RejectsNonStaffTransitions(t *testing.T) {
	svc, _ := newTestService(t, carwash.Policy{})
	_, err := svc.StaffTransition(context.Background(), "x", admin, carwash.Cancel, "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestGetNextFreeSlots(t *testing.T) {
	svc, store := newTestService(t, carwash.Policy{})
	ctx := context.Background()
	for _, u := range []string{"u1", "u2"} {
		_, err := svc.Submit(ctx, user(u), request(at(0, 9, 0)))
		require.NoError(t, err)
	}

	got, err := svc.GetNextFreeSlots(ctx, time.Time{}, 0, nil)
	require.NoError(t, err)
	require.Len(t, got.Slots, carwash.DefaultSlotCount)
	assert.Equal(t, at(0, 11, 0), got.Slots[0].StartTime)
	assert.Equal(t, 1, got.Slots[0].Remaining)
	assert.Equal(t, at(1, 8, 0), got.Slots[1].StartTime)
	assert.Equal(t, 2, got.Slots[1].Remaining)
	assert.Equal(t, at(1, 11, 0), got.Slots[2].StartTime)

	carpet, err := svc.GetNextFreeSlots(ctx, time.Time{}, 2, []carwash.ServiceType{carwash.Carpet})
	require.NoError(t, err)
	assert.Equal(t, 2, carpet.Required)
	require.Len(t, carpet.Slots, 2)
	assert.Equal(t, at(1, 8, 0), carpet.Slots[0].StartTime)
	assert.Equal(t, at(2, 8, 0), carpet.Slots[1].StartTime)

	require.NoError(t, store.CreateBlocker(ctx, &carwash.Blocker{ID: "b", StartDate: at(1, 0, 0)}))
	blocked, err := svc.GetNextFreeSlots(ctx, time.Time{}, 2, nil)
	require.NoError(t, err)
	require.Len(t, blocked.Slots, 2)
	assert.Equal(t, at(0, 11, 0), blocked.Slots[0].StartTime)
	assert.Equal(t, at(2, 8, 0), blocked.Slots[1].StartTime)

	_, err = svc.GetNextFreeSlots(ctx, time.Time{}, 1, []carwash.ServiceType{99})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestSubmit_BlockedSlot(t *testing.T) {
	svc, store := newTestService(t, carwash.Policy{})
	end := at(0, 11, 0)
	require.NoError(t, store.CreateBlocker(context.Background(), &carwash.Blocker{ID: "b", StartDate: at(0, 8, 0), EndDate: &end}))

	_, err := svc.Submit(context.Background(), user("u1"), request(at(0, 9, 0)))
	assert.ErrorIs(t, err, apperrors.ErrSlotUnavailable)

	_, err = svc.Submit(context.Background(), user("u1"), request(at(0, 11, 0)))
	assert.NoError(t, err)
}

func TestListMyReservations(t *testing.T) {
	svc, _ := newTestService(t, carwash.Policy{})
	ctx := context.Background()
	_, err := svc.Submit(ctx, user("u1"), request(at(0, 9, 0)))
	require.NoError(t, err)
	_, err = svc.Submit(ctx, user("u2"), request(at(0, 9, 0)))
	require.NoError(t, err)

	mine, err := svc.ListMyReservations(ctx, user("u1"))
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "u1", mine[0].UserID)

	_, err = svc.GetReservation(ctx, mine[0].ID, user("u2"))
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	_, err = svc.GetReservation(ctx, mine[0].ID, admin)
	assert.NoError(t, err)
}

func TestGetNextFreeSlots_WholeDayBlockerStoredInUTC(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Budapest")
	require.NoError(t, err)
	store := repository.NewMemoryStore()
	a, err := carwash.NewAllocator([]carwash.Slot{{StartHour: 8, EndHour: 11, Capacity: 2}}, carwash.WashCount, loc, nil)
	require.NoError(t, err)
	svc := NewReservationService(store, store, store, store, carwash.NewValidator(a, carwash.Policy{}), nil)
	svc.Now = func() time.Time { return time.Date(2026, 10, 18, 12, 0, 0, 0, loc) }
	ctx := context.Background()

	tuesday := time.Date(2026, 10, 20, 0, 0, 0, 0, loc)
	require.NoError(t, store.CreateBlocker(ctx, &carwash.Blocker{ID: "b1", StartDate: tuesday.UTC()}))

	free, err := svc.GetNextFreeSlots(ctx, time.Time{}, 2, nil)
	require.NoError(t, err)
	require.Len(t, free.Slots, 2)
	assert.Equal(t, 19, free.Slots[0].StartTime.Day())
	assert.Equal(t, 21, free.Slots[1].StartTime.Day())

	_, err = svc.Submit(ctx, user("u1"), request(tuesday.Add(8*time.Hour)))
	assert.ErrorIs(t, err, apperrors.ErrSlotUnavailable)
}
