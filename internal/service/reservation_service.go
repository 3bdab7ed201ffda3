package service

import (
	"context"
	"fmt"
	"time"

	"carwash/internal/carwash"
	"carwash/internal/entities"
	apperrors "carwash/internal/errors"
	"carwash/internal/repository"
	"carwash/internal/utils"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Actor is the authenticated user an operation is performed for.
type Actor struct {
	UserID string
	Admin  bool
}

// PaymentProvider opens a checkout for a private wash that is waiting to be paid.
type PaymentProvider interface {
	CreateCheckoutSession(ctx context.Context, r carwash.Reservation, customerEmail string) (url, sessionID string, err error)
}

type ReservationService struct {
	Store     repository.ReservationStore
	Admin     repository.AdminStore
	Payments  repository.PaymentStore
	Users     repository.UserStore
	Validator *carwash.Validator
	Checkout  PaymentProvider
	Now       func() time.Time
}

func NewReservationService(store repository.ReservationStore, admin repository.AdminStore, payments repository.PaymentStore,
	users repository.UserStore, validator *carwash.Validator, checkout PaymentProvider) *ReservationService {
	return &ReservationService{
		Store:     store,
		Admin:     admin,
		Payments:  payments,
		Users:     users,
		Validator: validator,
		Checkout:  checkout,
		Now:       time.Now,
	}
}

func (s *ReservationService) allocator() *carwash.Allocator {
	return s.Validator.Allocator
}

func (s *ReservationService) now() time.Time {
	return s.Now().In(s.allocator().Location)
}

func (s *ReservationService) GetServices() []carwash.Service {
	return carwash.Catalog(false)
}

func (s *ReservationService) GetSlots() entities.SlotsResponse {
	a := s.allocator()
	out := entities.SlotsResponse{Unit: a.Unit, Slots: make([]entities.SlotInfo, len(a.Slots))}
	for i, slot := range a.Slots {
		out.Slots[i] = entities.SlotInfo{
			Label:     slot.Label(),
			StartHour: slot.StartHour,
			EndHour:   slot.EndHour,
			Capacity:  slot.Capacity,
		}
	}
	return out
}

// GetNextFreeSlots lists the next count slot instances from from onwards that can still take a
// reservation with the given services. Without services a single unit is assumed.
func (s *ReservationService) GetNextFreeSlots(ctx context.Context, from time.Time, count int, services []carwash.ServiceType) (*entities.FreeSlotsResponse, error) {
	a := s.allocator()
	now := s.now()
	if from.IsZero() || from.Before(now) {
		from = now
	}
	required := 1
	if len(services) > 0 {
		normalized, err := carwash.NormalizeServices(services)
		if err != nil {
			return nil, err
		}
		required = a.Unit.RequiredUnits(normalized)
	}

	start := utils.DateOnly(from.In(a.Location))
	end := start.AddDate(carwash.SearchHorizon, 0, 0)
	reservations, err := s.Store.ReservationsBetween(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("could not load reservations: %w", err)
	}
	blockers, err := s.Admin.ListBlockers(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("could not load blockers: %w", err)
	}

	full := a.FullSlots(reservations, required)
	slots := a.FindNextAvailableSlots(carwash.SlotQuery{Now: now, From: from, Count: count, Required: required}, blockers, full)
	for i := range slots {
		if slot, _, ok := a.SlotFor(slots[i].StartTime); ok {
			slots[i].Remaining = a.RemainingCapacity(slots[i].StartTime, slot, reservations)
		}
	}
	return &entities.FreeSlotsResponse{Unit: a.Unit, Required: required, Slots: slots}, nil
}

// Submit validates and stores a new reservation. The capacity and limit checks are repeated inside a
// serializable transaction so concurrent submissions cannot overbook a slot.
func (s *ReservationService) Submit(ctx context.Context, actor Actor, req entities.ReservationRequest) (*carwash.Reservation, error) {
	if actor.UserID == "" {
		return nil, apperrors.ErrUnauthorized
	}
	userID := req.UserID
	if userID == "" {
		userID = actor.UserID
	}
	if userID != actor.UserID && !actor.Admin {
		return nil, apperrors.ErrForbidden.Withf("only carwash admins can book for someone else")
	}

	now := s.now()
	r := &carwash.Reservation{
		ID:                 uuid.NewString(),
		UserID:             userID,
		VehiclePlateNumber: req.VehiclePlateNumber,
		Services:           req.Services,
		Private:            req.Private,
		Mpv:                req.Mpv,
		StartDate:          req.StartDate,
		State:              carwash.SubmittedNotActual,
		Comment:            req.Comment,
		CreatedByID:        actor.UserID,
		CreatedOn:          now,
	}

	var blockers []carwash.Blocker
	if !req.StartDate.IsZero() {
		day := utils.DateOnly(req.StartDate.In(s.allocator().Location))
		var err error
		blockers, err = s.Admin.ListBlockers(ctx, day, day.AddDate(0, 0, 1))
		if err != nil {
			return nil, fmt.Errorf("could not load blockers: %w", err)
		}
	}

	placement, err := s.Validator.Prepare(now, r, blockers)
	if err != nil {
		return nil, err
	}

	err = s.Store.InTx(ctx, func(tx repository.ReservationTx) error {
		day := utils.DateOnly(placement.SlotStart)
		dayReservations, err := tx.ReservationsBetween(ctx, day, day.AddDate(0, 0, 1))
		if err != nil {
			return err
		}
		since, _ := utils.MonthBounds(r.StartDate)
		if today := utils.DateOnly(now); today.Before(since) {
			since = today
		}
		userReservations, err := tx.UserReservationsSince(ctx, r.UserID, since)
		if err != nil {
			return err
		}
		if err := s.Validator.Check(now, r, placement, dayReservations, userReservations); err != nil {
			return err
		}
		return tx.InsertReservation(ctx, r)
	})
	if err != nil {
		log.WithFields(log.Fields{
			"user_id":    r.UserID,
			"start_date": r.StartDate,
			"kind":       apperrors.KindOf(err),
		}).WithError(err).Info("reservation rejected")
		return nil, err
	}

	log.WithFields(log.Fields{
		"reservation_id": r.ID,
		"user_id":        r.UserID,
		"slot":           placement.Slot.Label(),
		"units":          placement.Units,
	}).Info("reservation submitted")
	return r, nil
}

func (s *ReservationService) owned(ctx context.Context, id string, actor Actor) (*carwash.Reservation, error) {
	r, err := s.Store.GetReservation(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.UserID != actor.UserID && !actor.Admin {
		return nil, apperrors.ErrForbidden.Withf("reservation %s belongs to another user", id)
	}
	return r, nil
}

func (s *ReservationService) GetReservation(ctx context.Context, id string, actor Actor) (*carwash.Reservation, error) {
	return s.owned(ctx, id, actor)
}

func (s *ReservationService) ListMyReservations(ctx context.Context, actor Actor) ([]carwash.Reservation, error) {
	return s.Admin.ListReservations(ctx, repository.ReservationFilter{UserID: actor.UserID})
}

// Cancel withdraws a reservation that has not been dropped off yet.
func (s *ReservationService) Cancel(ctx context.Context, id string, actor Actor) (*carwash.Reservation, error) {
	r, err := s.owned(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, r, carwash.Cancel, repository.StateUpdate{})
}

// ConfirmDropoff records where the keys and the car were left.
func (s *ReservationService) ConfirmDropoff(ctx context.Context, id string, actor Actor, location string) (*carwash.Reservation, error) {
	if location == "" {
		return nil, apperrors.ErrInvalidInput.Withf("location is required")
	}
	r, err := s.owned(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, r, carwash.ConfirmDropoff, repository.StateUpdate{Location: &location})
}

// SendReminder marks a submitted reservation as reminded. It is driven by the reminder job.
func (s *ReservationService) SendReminder(ctx context.Context, id string) (*carwash.Reservation, error) {
	r, err := s.Store.GetReservation(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, r, carwash.SendReminder, repository.StateUpdate{})
}

// StaffTransition applies one of the carwash staff transitions.
func (s *ReservationService) StaffTransition(ctx context.Context, id string, actor Actor, t carwash.Transition, comment string) (*carwash.Reservation, error) {
	if !actor.Admin {
		return nil, apperrors.ErrForbidden.Withf("only carwash admins can %s", t)
	}
	switch t {
	case carwash.StartWash, carwash.CompleteWash, carwash.MarkPaid, carwash.MarkDone:
	default:
		return nil, apperrors.ErrInvalidInput.Withf("%s is not a staff transition", t)
	}
	r, err := s.Store.GetReservation(ctx, id)
	if err != nil {
		return nil, err
	}
	u := repository.StateUpdate{}
	if comment != "" {
		u.CarwashComment = &comment
	}
	updated, err := s.apply(ctx, r, t, u)
	if err != nil {
		return nil, err
	}
	if updated.State == carwash.NotYetPaid {
		if sessionID := s.openCheckout(ctx, *updated); sessionID != "" {
			if err := s.Payments.SetPaymentSession(ctx, updated.ID, sessionID); err != nil {
				log.WithError(err).WithField("reservation_id", updated.ID).Warn("could not store checkout session")
			} else {
				updated.PaymentSessionID = sessionID
			}
		}
	}
	return updated, nil
}

func (s *ReservationService) StartWash(ctx context.Context, id string, actor Actor) (*carwash.Reservation, error) {
	return s.StaffTransition(ctx, id, actor, carwash.StartWash, "")
}

func (s *ReservationService) CompleteWash(ctx context.Context, id string, actor Actor) (*carwash.Reservation, error) {
	return s.StaffTransition(ctx, id, actor, carwash.CompleteWash, "")
}

func (s *ReservationService) MarkPaid(ctx context.Context, id string, actor Actor) (*carwash.Reservation, error) {
	return s.StaffTransition(ctx, id, actor, carwash.MarkPaid, "")
}

func (s *ReservationService) MarkDone(ctx context.Context, id string, actor Actor) (*carwash.Reservation, error) {
	return s.StaffTransition(ctx, id, actor, carwash.MarkDone, "")
}

// MarkPaidBySession settles the reservation a completed checkout belongs to. Repeated deliveries of
// the same payment are accepted.
func (s *ReservationService) MarkPaidBySession(ctx context.Context, sessionID string) (*carwash.Reservation, error) {
	r, err := s.Payments.GetReservationByPaymentSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if r.State == carwash.Done {
		return r, nil
	}
	return s.apply(ctx, r, carwash.MarkPaid, repository.StateUpdate{})
}

// PaymentURL opens a new checkout for a reservation still waiting to be paid.
func (s *ReservationService) PaymentURL(ctx context.Context, id string, actor Actor) (string, error) {
	r, err := s.owned(ctx, id, actor)
	if err != nil {
		return "", err
	}
	if r.State != carwash.NotYetPaid {
		return "", apperrors.ErrInvalidStateTransition.Withf("reservation %s is not waiting for payment", id).
			WithDetails("current", r.State.String())
	}
	if s.Checkout == nil {
		return "", apperrors.ErrInvalidInput.Withf("online payment is not configured")
	}
	url, sessionID, err := s.Checkout.CreateCheckoutSession(ctx, *r, s.userEmail(ctx, r.UserID))
	if err != nil {
		return "", fmt.Errorf("could not create checkout session: %w", err)
	}
	if err := s.Payments.SetPaymentSession(ctx, r.ID, sessionID); err != nil {
		return "", err
	}
	return url, nil
}

// openCheckout returns the id of a fresh checkout session, or "" when none could be opened. Staff
// can still settle the reservation with MarkPaid. It runs only after the reservation reached
// NotYetPaid so that a lost transition never leaves a session behind.
func (s *ReservationService) openCheckout(ctx context.Context, r carwash.Reservation) string {
	if s.Checkout == nil {
		return ""
	}
	_, sessionID, err := s.Checkout.CreateCheckoutSession(ctx, r, s.userEmail(ctx, r.UserID))
	if err != nil {
		log.WithError(err).WithField("reservation_id", r.ID).Warn("could not create checkout session")
		return ""
	}
	return sessionID
}

func (s *ReservationService) userEmail(ctx context.Context, userID string) string {
	if s.Users == nil {
		return ""
	}
	u, err := s.Users.GetUserByID(ctx, userID)
	if err != nil {
		return ""
	}
	return u.Email
}

func (s *ReservationService) apply(ctx context.Context, r *carwash.Reservation, t carwash.Transition, u repository.StateUpdate) (*carwash.Reservation, error) {
	next, err := t.Apply(r.State, r.Private)
	if err != nil {
		return nil, err
	}
	u.State = next
	updated, err := s.Store.UpdateState(ctx, r.ID, r.State, u)
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{
		"reservation_id": r.ID,
		"transition":     string(t),
		"from":           r.State.String(),
		"to":             next.String(),
	}).Info("reservation state changed")
	return updated, nil
}
