package config

import (
	"testing"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	cfg := &Config{}
	err := env.ParseWithOptions(cfg, env.Options{Environment: map[string]string{
		"DATABASE_URL":          "file::memory:",
		"DATABASE_DRIVER":       "sqlite",
		"STRIPE_SECRET_KEY":     "sk_test_123",
		"STRIPE_WEBHOOK_SECRET": "whsec_123",
	}})
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTP.Port)
	assert.Equal(t, 5*time.Minute, cfg.Stripe.WebhookTolerance)
	assert.Equal(t, 2, cfg.Stripe.MaxRetries)
	assert.Equal(t, 720*time.Hour, cfg.Ledger.Retention)
	assert.NoError(t, cfg.Validate())
}

func TestValidateMissing(t *testing.T) {
	cfg := &Config{}
	require.NoError(t, env.ParseWithOptions(cfg, env.Options{Environment: map[string]string{}}))

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
	assert.Contains(t, err.Error(), "STRIPE_SECRET_KEY")
	assert.Contains(t, err.Error(), "STRIPE_WEBHOOK_SECRET")
}
