package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "thb", cfg.Currency)
	assert.Equal(t, 10*time.Second, cfg.PaymentTimeout)
	assert.Equal(t, 1, cfg.PaymentRetries)
	assert.Equal(t, 4, cfg.NotifyWorkers)
	assert.Equal(t, "bookings", cfg.RabbitExchange)
	assert.Contains(t, cfg.DSN(), "dbname=chefbook")
}

func TestLoadRequiresJWTSecret(t *testing.T) {
	os.Unsetenv("JWT_SECRET")

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func TestLoadReadsDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("JWT_SECRET=from-file\nPAYMENT_TIMEOUT=3s\nNOTIFY_WORKERS=0\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("JWT_SECRET")
		os.Unsetenv("PAYMENT_TIMEOUT")
		os.Unsetenv("NOTIFY_WORKERS")
	})

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.JWTSecret)
	assert.Equal(t, 3*time.Second, cfg.PaymentTimeout)
	assert.Equal(t, 1, cfg.NotifyWorkers)
}
