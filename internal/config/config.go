package config

import (
	"fmt"
	"strings"
	"time"

	"carwash/internal/carwash"
	"carwash/internal/utils"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type Config struct {
	Port        string
	DatabaseURL string
	Storage     string

	Location     *time.Location
	Slots        []carwash.Slot
	CapacityUnit carwash.CapacityUnit
	Holidays     []time.Time
	Policy       carwash.Policy

	TxMaxRetries int
	TxBaseDelay  time.Duration

	ReminderLead time.Duration
	ReminderCron string
	PurgeCron    string
	PurgeAfter   time.Duration

	JWTSecret string
	JWTExpiry time.Duration

	// AdminEmail and AdminPassword seed the first carwash admin when no such user exists.
	AdminEmail    string
	AdminPassword string

	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string

	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string

	StripeSecretKey     string
	StripeWebhookSecret string
	StripeCurrency      string
	PaymentSuccessURL   string
	PaymentCancelURL    string

	CORSOrigins    []string
	RateLimitRPS   float64
	RateLimitBurst int

	LogLevel  string
	LogFormat string
}

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("STORAGE", StoragePostgres)
	v.SetDefault("TIMEZONE", "Europe/Budapest")
	v.SetDefault("SLOTS", "8-11:12,11-14:12,14-17:11")
	v.SetDefault("CAPACITY_UNIT", string(carwash.WashCount))
	v.SetDefault("HOLIDAYS", "")
	v.SetDefault("SINGLE_ACTIVE_RESERVATION", false)
	v.SetDefault("DAILY_LIMIT_PER_PERSON", 1)
	v.SetDefault("MONTHLY_LIMIT_PER_PERSON", 0)
	v.SetDefault("TX_MAX_RETRIES", 5)
	v.SetDefault("TX_BASE_DELAY", "20ms")
	v.SetDefault("REMINDER_LEAD", "30m")
	v.SetDefault("REMINDER_CRON", "@every 1m")
	v.SetDefault("PURGE_CRON", "0 3 * * *")
	v.SetDefault("PURGE_AFTER", "720h")
	v.SetDefault("JWT_EXPIRY", "24h")
	v.SetDefault("SENDGRID_FROM_NAME", "CarWash")
	v.SetDefault("STRIPE_CURRENCY", "huf")
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("RATE_LIMIT_RPS", 5.0)
	v.SetDefault("RATE_LIMIT_BURST", 20)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug("no .env file loaded")
	}
	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)
	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	loc := utils.LoadLocation(v.GetString("TIMEZONE"))
	slots, err := carwash.ParseSlots(v.GetString("SLOTS"))
	if err != nil {
		return nil, fmt.Errorf("invalid SLOTS: %w", err)
	}
	unit, err := carwash.ParseCapacityUnit(v.GetString("CAPACITY_UNIT"))
	if err != nil {
		return nil, fmt.Errorf("invalid CAPACITY_UNIT: %w", err)
	}
	holidays, err := utils.ParseDates(v.GetString("HOLIDAYS"), loc)
	if err != nil {
		return nil, fmt.Errorf("invalid HOLIDAYS: %w", err)
	}

	cfg := &Config{
		Port:         v.GetString("PORT"),
		DatabaseURL:  v.GetString("DATABASE_URL"),
		Storage:      strings.ToLower(v.GetString("STORAGE")),
		Location:     loc,
		Slots:        slots,
		CapacityUnit: unit,
		Holidays:     holidays,
		Policy: carwash.Policy{
			SingleActiveReservation: v.GetBool("SINGLE_ACTIVE_RESERVATION"),
			DailyLimitPerPerson:     v.GetInt("DAILY_LIMIT_PER_PERSON"),
			MonthlyLimitPerPerson:   v.GetInt("MONTHLY_LIMIT_PER_PERSON"),
		},
		TxMaxRetries:        v.GetInt("TX_MAX_RETRIES"),
		TxBaseDelay:         v.GetDuration("TX_BASE_DELAY"),
		ReminderLead:        v.GetDuration("REMINDER_LEAD"),
		ReminderCron:        v.GetString("REMINDER_CRON"),
		PurgeCron:           v.GetString("PURGE_CRON"),
		PurgeAfter:          v.GetDuration("PURGE_AFTER"),
		JWTSecret:           v.GetString("JWT_SECRET"),
		JWTExpiry:           v.GetDuration("JWT_EXPIRY"),
		AdminEmail:          v.GetString("ADMIN_EMAIL"),
		AdminPassword:       v.GetString("ADMIN_PASSWORD"),
		SendGridAPIKey:      v.GetString("SENDGRID_API_KEY"),
		SendGridFromEmail:   v.GetString("SENDGRID_FROM_EMAIL"),
		SendGridFromName:    v.GetString("SENDGRID_FROM_NAME"),
		TwilioAccountSID:    v.GetString("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:     v.GetString("TWILIO_AUTH_TOKEN"),
		TwilioFromNumber:    v.GetString("TWILIO_FROM_NUMBER"),
		StripeSecretKey:     v.GetString("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: v.GetString("STRIPE_WEBHOOK_SECRET"),
		StripeCurrency:      v.GetString("STRIPE_CURRENCY"),
		PaymentSuccessURL:   v.GetString("PAYMENT_SUCCESS_URL"),
		PaymentCancelURL:    v.GetString("PAYMENT_CANCEL_URL"),
		CORSOrigins:         splitList(v.GetString("CORS_ORIGINS")),
		RateLimitRPS:        v.GetFloat64("RATE_LIMIT_RPS"),
		RateLimitBurst:      v.GetInt("RATE_LIMIT_BURST"),
		LogLevel:            v.GetString("LOG_LEVEL"),
		LogFormat:           v.GetString("LOG_FORMAT"),
	}
	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	switch c.Storage {
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL not set")
		}
	case StorageMemory:
	default:
		return fmt.Errorf("unknown STORAGE %q", c.Storage)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET not set")
	}
	if c.Policy.DailyLimitPerPerson < 0 || c.Policy.MonthlyLimitPerPerson < 0 {
		return fmt.Errorf("reservation limits must not be negative")
	}
	if c.TxMaxRetries < 0 {
		return fmt.Errorf("TX_MAX_RETRIES must not be negative")
	}
	if c.ReminderLead <= 0 {
		return fmt.Errorf("REMINDER_LEAD must be positive")
	}
	return nil
}

// SetupLogging applies LOG_LEVEL and LOG_FORMAT to the standard logrus logger.
func (c *Config) SetupLogging() {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		log.WithField("level", c.LogLevel).Warn("unknown log level, using info")
		level = log.InfoLevel
	}
	log.SetLevel(level)
	if strings.EqualFold(c.LogFormat, "json") {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
