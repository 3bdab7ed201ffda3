package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	apperrors "carwash/internal/errors"
	"carwash/internal/service"

	log "github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

type StripeWebhookHandler struct {
	StripeSecret       string
	reservationService *service.ReservationService
}

func NewStripeWebhookHandler(stripeSecret string, reservationService *service.ReservationService) *StripeWebhookHandler {
	return &StripeWebhookHandler{StripeSecret: stripeSecret, reservationService: reservationService}
}

func (h *StripeWebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	const maxBodyBytes = int64(65536)
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		log.WithError(err).Warn("error reading webhook body")
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	event, err := webhook.ConstructEvent(payload, r.Header.Get("Stripe-Signature"), h.StripeSecret)
	if err != nil {
		log.WithError(err).Warn("webhook signature verification failed")
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	switch event.Type {
	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil || sess.ID == "" {
			log.WithError(err).Warn("could not parse checkout.session")
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		res, err := h.reservationService.MarkPaidBySession(r.Context(), sess.ID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				// Not one of ours, acknowledge so Stripe stops retrying.
				log.WithField("session_id", sess.ID).Warn("checkout session without reservation")
				break
			}
			log.WithError(err).WithField("session_id", sess.ID).Error("could not mark reservation paid")
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		log.WithFields(log.Fields{"reservation_id": res.ID, "session_id": sess.ID}).Info("reservation paid")
	default:
		log.WithField("type", event.Type).Debug("unhandled stripe event")
	}

	w.WriteHeader(http.StatusOK)
}
