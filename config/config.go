// Package config loads service settings from the environment (and .env).
package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"tournament-registration/lifecycle"
	"tournament-registration/utils"

	"github.com/joho/godotenv"
)

// MaxPaymentWindow is the longest checkout session Stripe accepts. A longer
// window would let the session expire before the payment deadline.
const MaxPaymentWindow = 24 * time.Hour

type Config struct {
	DatabaseURL    string
	Port           string
	AllowedOrigins string

	GatewayToken string

	StripeSecretKey     string
	StripeWebhookSecret string
	CronSecret          string

	SiteURL       string
	Currency      string
	PaymentWindow time.Duration
	SweepInterval time.Duration

	R2 utils.R2Config
}

// Load reads .env if present, then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	cfg := &Config{
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		Port:                getenv("PORT", "5200"),
		AllowedOrigins:      allowedOrigins(os.Getenv("ALLOWED_ORIGINS")),
		GatewayToken:        os.Getenv("GATEWAY_SERVICE_TOKEN"),
		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		CronSecret:          os.Getenv("CRON_SECRET"),
		SiteURL:             strings.TrimRight(getenv("SITE_URL", "http://localhost:3000"), "/"),
		Currency:            strings.ToUpper(getenv("PAYMENT_CURRENCY", "EUR")),
		R2: utils.R2Config{
			AccountID:       os.Getenv("CLOUDFLARE_ACCOUNT_ID"),
			AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
			AccessKeySecret: os.Getenv("R2_ACCESS_KEY_SECRET"),
			Bucket:          os.Getenv("R2_BUCKET_NAME"),
		},
	}

	var err error
	if cfg.PaymentWindow, err = duration("PAYMENT_WINDOW", lifecycle.DefaultPaymentWindow); err != nil {
		return nil, err
	}
	if cfg.SweepInterval, err = duration("SWEEP_INTERVAL", time.Minute); err != nil {
		return nil, err
	}
	if cfg.PaymentWindow <= 0 || cfg.PaymentWindow > MaxPaymentWindow {
		return nil, fmt.Errorf("PAYMENT_WINDOW must be in (0, %s], got %s", MaxPaymentWindow, cfg.PaymentWindow)
	}
	if _, err := utils.ParseCurrency(cfg.Currency); err != nil {
		return nil, fmt.Errorf("PAYMENT_CURRENCY: %w", err)
	}
	return cfg, nil
}

// RequireDatabase fails when DATABASE_URL is unset.
func (c *Config) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable not set")
	}
	return nil
}

// RequireGateway fails when the token the gateway authenticates with is unset.
func (c *Config) RequireGateway() error {
	if c.GatewayToken == "" {
		return fmt.Errorf("GATEWAY_SERVICE_TOKEN is not set, service cannot authenticate Gateway")
	}
	return nil
}

// RequireStripe fails when the provider credentials needed to serve are unset.
func (c *Config) RequireStripe() error {
	if c.StripeSecretKey == "" {
		return fmt.Errorf("STRIPE_SECRET_KEY environment variable not set")
	}
	if c.StripeWebhookSecret == "" {
		return fmt.Errorf("STRIPE_WEBHOOK_SECRET environment variable not set")
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func duration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

// allowedOrigins normalizes a comma-separated origin list for the CORS middleware.
func allowedOrigins(raw string) string {
	if raw == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		return "http://localhost:3000"
	}
	origins := strings.Split(raw, ",")
	for i, origin := range origins {
		origins[i] = strings.TrimSpace(origin)
	}
	return strings.Join(origins, ",")
}
