package service

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"carwash/internal/carwash"
	"carwash/internal/entities"
	"carwash/internal/repository"
)

// Notification channels a user can choose.
const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
	ChannelNone  = "none"
)

//go:embed templates/reminder_email.html
var templateFS embed.FS

var reminderTemplate = template.Must(template.ParseFS(templateFS, "templates/reminder_email.html"))

// Notifier tells a user that their wash is about to start.
type Notifier interface {
	SendReminder(user *repository.User, r carwash.Reservation) error
}

type SenderService struct {
	Email    EmailSender
	SMS      SMSSender
	Location *time.Location
}

func NewSenderService(email EmailSender, sms SMSSender, loc *time.Location) *SenderService {
	return &SenderService{Email: email, SMS: sms, Location: loc}
}

func (s *SenderService) SendReminder(user *repository.User, r carwash.Reservation) error {
	switch user.NotificationChannel {
	case ChannelNone:
		return nil
	case ChannelSMS:
		if s.SMS == nil || user.Phone == "" {
			return fmt.Errorf("cannot send sms reminder to user %s", user.ID)
		}
		return s.SMS.SendSMS(user.Phone, s.reminderSMS(r))
	default:
		if s.Email == nil {
			return fmt.Errorf("cannot send email reminder to user %s", user.ID)
		}
		data := s.reminderData(user, r)
		var html bytes.Buffer
		if err := reminderTemplate.Execute(&html, data); err != nil {
			return fmt.Errorf("error rendering reminder email: %w", err)
		}
		subject := fmt.Sprintf("Car wash reminder: %s at %s", data.VehiclePlate, r.StartDate.In(s.Location).Format("15:04"))
		plain := fmt.Sprintf(
			"Hi %s,\n\nyour reservation for %s starts at %s (%s).\nServices: %s\n\n"+
				"Please drop off the key and confirm where you parked the car.",
			data.UserName, data.VehiclePlate, data.StartTimeFormatted, data.WashWindow, data.Services)
		return s.Email.SendEmail(user.Email, user.FullName, subject, plain, html.String())
	}
}

func (s *SenderService) reminderData(user *repository.User, r carwash.Reservation) entities.ReminderEmailData {
	start := r.StartDate.In(s.Location)
	names := make([]string, len(r.Services))
	for i, svc := range r.Services {
		names[i] = svc.String()
	}
	return entities.ReminderEmailData{
		UserName:           user.FullName,
		VehiclePlate:       r.VehiclePlateNumber,
		Services:           strings.Join(names, ", "),
		StartTimeFormatted: start.Format("02 Jan 2006 15:04 MST"),
		WashWindow:         fmt.Sprintf("%s-%s", start.Format("15:04"), r.EndDate.In(s.Location).Format("15:04")),
		CurrentYear:        start.Year(),
	}
}

func (s *SenderService) reminderSMS(r carwash.Reservation) string {
	return fmt.Sprintf("CarWash: your wash for %s starts at %s. Please drop off the key and confirm the location.",
		r.VehiclePlateNumber, r.StartDate.In(s.Location).Format("02/01 15:04"))
}
