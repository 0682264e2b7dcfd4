package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"DATABASE_URL", "PORT", "ALLOWED_ORIGINS", "PAYMENT_CURRENCY", "PAYMENT_WINDOW", "SWEEP_INTERVAL", "SITE_URL", "R2_BUCKET_NAME"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "5200", cfg.Port)
	assert.Equal(t, "EUR", cfg.Currency)
	assert.Equal(t, 24*time.Hour, cfg.PaymentWindow)
	assert.Equal(t, time.Minute, cfg.SweepInterval)
	assert.Equal(t, "http://localhost:3000", cfg.SiteURL)
	assert.False(t, cfg.R2.Enabled())
	assert.Error(t, cfg.RequireDatabase())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/registrations")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("PAYMENT_CURRENCY", "chf")
	t.Setenv("PAYMENT_WINDOW", "12h")
	t.Setenv("SWEEP_INTERVAL", "0")
	t.Setenv("SITE_URL", "https://tournois.example/")

	cfg, err := Load()
	require.NoError(t, err)
	assert.NoError(t, cfg.RequireDatabase())
	assert.Equal(t, "https://a.example,https://b.example", cfg.AllowedOrigins)
	assert.Equal(t, "CHF", cfg.Currency)
	assert.Equal(t, 12*time.Hour, cfg.PaymentWindow)
	assert.Zero(t, cfg.SweepInterval)
	assert.Equal(t, "https://tournois.example", cfg.SiteURL)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("PAYMENT_CURRENCY", "NOPE")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("PAYMENT_CURRENCY", "EUR")
	t.Setenv("PAYMENT_WINDOW", "tomorrow")
	_, err = Load()
	assert.Error(t, err)

	// Longer than a Stripe checkout session can live.
	t.Setenv("PAYMENT_WINDOW", "36h")
	_, err = Load()
	assert.Error(t, err)

	t.Setenv("PAYMENT_WINDOW", "24h")
	_, err = Load()
	assert.NoError(t, err)
}

func TestRequireGateway(t *testing.T) {
	t.Setenv("GATEWAY_SERVICE_TOKEN", "")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Error(t, cfg.RequireGateway())

	t.Setenv("GATEWAY_SERVICE_TOKEN", "gw-token")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "gw-token", cfg.GatewayToken)
	assert.NoError(t, cfg.RequireGateway())
}

func TestRequireStripe(t *testing.T) {
	cfg := &Config{StripeSecretKey: "sk_test"}
	assert.Error(t, cfg.RequireStripe())
	cfg.StripeWebhookSecret = "whsec"
	assert.NoError(t, cfg.RequireStripe())
}
