package service

import (
	"context"
	"time"

	"carwash/internal/carwash"
	"carwash/internal/entities"
	apperrors "carwash/internal/errors"
	"carwash/internal/repository"
	"carwash/internal/utils"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type AdminService struct {
	adminRepo repository.AdminStore
	location  *time.Location
}

func NewAdminService(adminRepo repository.AdminStore, loc *time.Location) *AdminService {
	return &AdminService{adminRepo: adminRepo, location: loc}
}

// ListReservations lists reservations of a day (YYYY-MM-DD, empty for all) optionally filtered by state name.
func (s *AdminService) ListReservations(ctx context.Context, date, state string) ([]carwash.Reservation, error) {
	f := repository.ReservationFilter{}
	if date != "" {
		day, err := time.ParseInLocation(utils.DateLayout, date, s.location)
		if err != nil {
			return nil, apperrors.ErrInvalidInput.Withf("invalid date %q", date)
		}
		next := day.AddDate(0, 0, 1)
		f.From, f.To = &day, &next
	}
	if state != "" {
		st, err := carwash.ParseState(state)
		if err != nil {
			return nil, err
		}
		f.State = &st
	}
	return s.adminRepo.ListReservations(ctx, f)
}

// ListBlockers returns blockers intersecting [from, to). Zero bounds default to the coming year.
func (s *AdminService) ListBlockers(ctx context.Context, from, to time.Time) ([]carwash.Blocker, error) {
	if from.IsZero() {
		from = utils.DateOnly(time.Now().In(s.location))
	}
	if to.IsZero() {
		to = from.AddDate(1, 0, 0)
	}
	return s.adminRepo.ListBlockers(ctx, from, to)
}

func (s *AdminService) CreateBlocker(ctx context.Context, req entities.BlockerRequest) (*carwash.Blocker, error) {
	if req.StartDate.IsZero() {
		return nil, apperrors.ErrInvalidInput.Withf("start date is required")
	}
	if req.EndDate != nil && !req.EndDate.After(req.StartDate) {
		return nil, apperrors.ErrInvalidInput.Withf("end date must be after start date")
	}
	b := &carwash.Blocker{
		ID:        uuid.NewString(),
		StartDate: req.StartDate.In(s.location),
		Comment:   req.Comment,
	}
	if req.EndDate != nil {
		end := req.EndDate.In(s.location)
		b.EndDate = &end
	}
	if err := s.adminRepo.CreateBlocker(ctx, b); err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"blocker_id": b.ID, "start_date": b.StartDate}).Info("blocker created")
	return b, nil
}

func (s *AdminService) DeleteBlocker(ctx context.Context, id string) error {
	return s.adminRepo.DeleteBlocker(ctx, id)
}
