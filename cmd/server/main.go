package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"carwash/internal/api"
	"carwash/internal/auth"
	"carwash/internal/carwash"
	"carwash/internal/config"
	"carwash/internal/db"
	"carwash/internal/repository"
	"carwash/internal/service"

	"github.com/gorilla/handlers"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

type stores struct {
	reservations repository.ReservationStore
	admin        repository.AdminStore
	payments     repository.PaymentStore
	users        repository.UserStore
	jobs         repository.JobStore
	close        func()
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	if cfg.Storage == config.StorageMemory {
		log.Warn("using in-memory storage, data is lost on restart")
		m := repository.NewMemoryStore()
		return &stores{reservations: m, admin: m, payments: m, users: m, jobs: m, close: func() {}}, nil
	}

	conn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := repository.Migrate(ctx, conn); err != nil {
		conn.Close()
		return nil, err
	}
	retry := repository.RetryPolicy{MaxRetries: cfg.TxMaxRetries, BaseDelay: cfg.TxBaseDelay}
	stripeRepo := repository.NewStripeRepository(conn)
	return &stores{
		reservations: repository.NewReservationRepository(conn, retry),
		admin:        repository.NewAdminRepository(conn),
		payments:     stripeRepo,
		users:        repository.NewUserRepository(conn),
		jobs:         repository.NewJobRepository(conn),
		close:        func() { conn.Close() },
	}, nil
}

// notifier only wires the senders that are configured so that a nil sender never ends up as a
// non-nil interface.
func notifier(cfg *config.Config) service.Notifier {
	var email service.EmailSender
	if s := service.NewSendGridSender(cfg.SendGridAPIKey, cfg.SendGridFromEmail, cfg.SendGridFromName); s != nil {
		email = s
	}
	var sms service.SMSSender
	if s := service.NewTwilioSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber); s != nil {
		sms = s
	}
	if email == nil && sms == nil {
		return nil
	}
	return service.NewSenderService(email, sms, cfg.Location)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	cfg.SetupLogging()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}
	defer st.close()

	allocator, err := carwash.NewAllocator(cfg.Slots, cfg.CapacityUnit, cfg.Location, cfg.Holidays)
	if err != nil {
		log.Fatalf("Invalid slot configuration: %v", err)
	}
	validator := carwash.NewValidator(allocator, cfg.Policy)

	var checkout service.PaymentProvider
	if s := service.NewStripeService(cfg.StripeSecretKey, cfg.StripeCurrency, cfg.PaymentSuccessURL, cfg.PaymentCancelURL); s != nil {
		checkout = s
	}

	tokens := auth.NewTokenService(cfg.JWTSecret, cfg.JWTExpiry)
	reservationService := service.NewReservationService(st.reservations, st.admin, st.payments, st.users, validator, checkout)
	adminService := service.NewAdminService(st.admin, cfg.Location)
	authService := service.NewAuthService(st.users, tokens)
	jobService := service.NewJobService(st.jobs, st.users, reservationService, notifier(cfg), cfg.ReminderLead, cfg.PurgeAfter)

	if err := authService.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		log.Fatalf("Failed to create bootstrap admin: %v", err)
	}

	c := cron.New(cron.WithLocation(cfg.Location))
	if err := jobService.Schedule(ctx, c, cfg.ReminderCron, cfg.PurgeCron); err != nil {
		log.Fatalf("Failed to schedule jobs: %v", err)
	}
	c.Start()
	defer c.Stop()

	h := api.Handlers{
		Reservations: api.NewUserReservationHandler(reservationService),
		Admin:        api.NewAdminHandler(adminService, reservationService),
		Auth:         api.NewAuthHandler(authService),
	}
	if cfg.StripeWebhookSecret != "" {
		h.Stripe = api.NewStripeWebhookHandler(cfg.StripeWebhookSecret, reservationService)
	}
	limiter := auth.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	r := api.NewRouter(h, auth.NewMiddleware(tokens), limiter)

	corsHandler := handlers.CORS(
		handlers.AllowedOrigins(cfg.CORSOrigins),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)
	logWriter := log.StandardLogger().Writer()
	defer logWriter.Close()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handlers.CombinedLoggingHandler(logWriter, corsHandler(r)),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("server shutdown")
		}
	}()

	log.WithFields(log.Fields{"port": cfg.Port, "storage": cfg.Storage}).Info("Server running")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Server failed: %v", err)
	}
}
