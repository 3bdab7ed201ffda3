package api

import (
	"net/http"

	"carwash/internal/auth"

	"github.com/gorilla/mux"
)

type Handlers struct {
	Reservations *UserReservationHandler
	Admin        *AdminHandler
	Auth         *AuthHandler
	Stripe       *StripeWebhookHandler
}

// NewRouter wires every endpoint. Everything under /api is rate limited and, except for login,
// the catalog and the payment webhook, requires a token. /admin requires a carwash admin.
func NewRouter(h Handlers, mw *auth.Middleware, limiter *auth.RateLimiter) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", Health).Methods(http.MethodGet)

	public := r.PathPrefix("/api").Subrouter()
	if limiter != nil {
		public.Use(limiter.Limit)
	}
	public.HandleFunc("/auth/login", h.Auth.Login).Methods(http.MethodPost)
	public.HandleFunc("/services", h.Reservations.GetServices).Methods(http.MethodGet)
	public.HandleFunc("/slots", h.Reservations.GetSlots).Methods(http.MethodGet)
	if h.Stripe != nil {
		public.HandleFunc("/payments/webhook", h.Stripe.HandleWebhook).Methods(http.MethodPost)
	}

	user := public.PathPrefix("").Subrouter()
	user.Use(mw.Authenticate)
	user.HandleFunc("/slots/free", h.Reservations.FreeSlots).Methods(http.MethodGet)
	user.HandleFunc("/reservations", h.Reservations.CreateReservation).Methods(http.MethodPost)
	user.HandleFunc("/reservations", h.Reservations.ListReservations).Methods(http.MethodGet)
	user.HandleFunc("/reservations/{id}", h.Reservations.GetReservation).Methods(http.MethodGet)
	user.HandleFunc("/reservations/{id}", h.Reservations.CancelReservation).Methods(http.MethodDelete)
	user.HandleFunc("/reservations/{id}/dropoff", h.Reservations.ConfirmDropoff).Methods(http.MethodPost)
	user.HandleFunc("/reservations/{id}/pay", h.Reservations.PayReservation).Methods(http.MethodPost)

	admin := r.PathPrefix("/admin").Subrouter()
	admin.Use(mw.Authenticate, mw.RequireAdmin)
	admin.HandleFunc("/reservations", h.Admin.ListReservations).Methods(http.MethodGet)
	admin.HandleFunc("/reservations/{id}/{transition}", h.Admin.Transition).Methods(http.MethodPost)
	admin.HandleFunc("/blockers", h.Admin.ListBlockers).Methods(http.MethodGet)
	admin.HandleFunc("/blockers", h.Admin.CreateBlocker).Methods(http.MethodPost)
	admin.HandleFunc("/blockers/{id}", h.Admin.DeleteBlocker).Methods(http.MethodDelete)
	admin.HandleFunc("/users", h.Auth.CreateUser).Methods(http.MethodPost)
	return r
}
