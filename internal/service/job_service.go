package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "carwash/internal/errors"
	"carwash/internal/repository"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

type JobService struct {
	Repo         repository.JobStore
	Users        repository.UserStore
	Reservations *ReservationService
	Notifier     Notifier
	ReminderLead time.Duration
	PurgeAfter   time.Duration
	Now          func() time.Time
}

func NewJobService(repo repository.JobStore, users repository.UserStore, reservations *ReservationService,
	notifier Notifier, reminderLead, purgeAfter time.Duration) *JobService {
	return &JobService{
		Repo:         repo,
		Users:        users,
		Reservations: reservations,
		Notifier:     notifier,
		ReminderLead: reminderLead,
		PurgeAfter:   purgeAfter,
		Now:          time.Now,
	}
}

// SendReminders moves submitted reservations that start within the reminder lead to
// ReminderSentWaitingForKey and notifies their owners. A failed notification never undoes the
// transition. It returns the number of reservations reminded.
func (s *JobService) SendReminders(ctx context.Context) (int, error) {
	now := s.Now()
	candidates, err := s.Repo.ReminderCandidates(ctx, now, now.Add(s.ReminderLead))
	if err != nil {
		return 0, fmt.Errorf("cron job: failed to get reminder candidates: %w", err)
	}

	sent := 0
	for _, c := range candidates {
		r, err := s.Reservations.SendReminder(ctx, c.ID)
		if err != nil {
			if errors.Is(err, apperrors.ErrConflict) || errors.Is(err, apperrors.ErrInvalidStateTransition) {
				log.WithField("reservation_id", c.ID).Debug("reservation changed before its reminder, skipping")
				continue
			}
			log.WithError(err).WithField("reservation_id", c.ID).Error("cron job: failed to mark reminder")
			continue
		}
		sent++

		if s.Notifier == nil {
			continue
		}
		user, err := s.Users.GetUserByID(ctx, r.UserID)
		if err != nil {
			log.WithError(err).WithField("reservation_id", r.ID).Warn("cron job: reminder owner not found")
			continue
		}
		if err := s.Notifier.SendReminder(user, *r); err != nil {
			log.WithError(err).WithFields(log.Fields{
				"reservation_id": r.ID,
				"channel":        user.NotificationChannel,
			}).Warn("cron job: reminder notification failed")
		}
	}
	if sent > 0 {
		log.WithField("count", sent).Info("cron job: reminders sent")
	}
	return sent, nil
}

// PurgeCancelled deletes cancelled reservations older than PurgeAfter.
func (s *JobService) PurgeCancelled(ctx context.Context) (int64, error) {
	n, err := s.Repo.PurgeCancelledBefore(ctx, s.Now().Add(-s.PurgeAfter))
	if err != nil {
		return 0, fmt.Errorf("cron job: failed to purge cancelled reservations: %w", err)
	}
	if n > 0 {
		log.WithField("count", n).Info("cron job: purged cancelled reservations")
	}
	return n, nil
}

// Schedule registers both jobs on c.
func (s *JobService) Schedule(ctx context.Context, c *cron.Cron, reminderSpec, purgeSpec string) error {
	if _, err := c.AddFunc(reminderSpec, func() {
		if _, err := s.SendReminders(ctx); err != nil {
			log.WithError(err).Error("reminder job failed")
		}
	}); err != nil {
		return fmt.Errorf("invalid reminder schedule %q: %w", reminderSpec, err)
	}
	if _, err := c.AddFunc(purgeSpec, func() {
		if _, err := s.PurgeCancelled(ctx); err != nil {
			log.WithError(err).Error("purge job failed")
		}
	}); err != nil {
		return fmt.Errorf("invalid purge schedule %q: %w", purgeSpec, err)
	}
	return nil
}
