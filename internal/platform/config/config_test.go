package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rai/storefront-payments/internal/platform/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, "enforce", cfg.Payments.WebhookSignatureMode)
	assert.Equal(t, "INR", cfg.Payments.DefaultCurrency)
	assert.Equal(t, 2*time.Minute, cfg.Payments.StepLease)
	assert.Empty(t, cfg.Payments.WebhookSecret)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
payments:
  gateway: fake
  key_secret: from-file
  step_lease: 45s
invoice:
  issuer_address:
    - 4 Residency Road
    - Bengaluru
`), 0o600))
	t.Setenv("STOREFRONT_PAYMENTS_KEY_SECRET", "from-env")
	t.Setenv("STOREFRONT_LOG_LEVEL", "debug")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "fake", cfg.Payments.Gateway)
	assert.Equal(t, "from-env", cfg.Payments.KeySecret)
	assert.Equal(t, 45*time.Second, cfg.Payments.StepLease)
	assert.Equal(t, []string{"4 Residency Road", "Bengaluru"}, cfg.Invoice.IssuerAddress)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() *config.Config {
		cfg, err := config.Load("")
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"port", func(c *config.Config) { c.Server.Port = 0 }},
		{"log level", func(c *config.Config) { c.Log.Level = "loud" }},
		{"store driver", func(c *config.Config) { c.Store.Driver = "postgres" }},
		{"spanner ids", func(c *config.Config) { c.Store.Driver = "spanner" }},
		{"catalog source without store", func(c *config.Config) { c.Catalog.Source = "sqlite" }},
		{"signature mode", func(c *config.Config) { c.Payments.WebhookSignatureMode = "off" }},
		{"storage driver", func(c *config.Config) { c.Storage.Driver = "s3" }},
		{"step lease within side effect timeout", func(c *config.Config) {
			c.Payments.StepLease = 30 * time.Second
			c.Payments.SideEffectTimeout = 30 * time.Second
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestParseLevel(t *testing.T) {
	l, err := config.ParseLevel("warn")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, l)
}
