package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 60*time.Minute, cfg.ConfirmationWindow)
	assert.Equal(t, time.Duration(0), cfg.CheckinGrace)
	assert.Equal(t, 60*time.Second, cfg.SweepInterval)
	assert.Equal(t, 30, cfg.DefaultDurationMinutes)
	assert.Nil(t, cfg.CORSAllowedOrigins)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APPOINTMENT_CONFIRMATION_MINUTES", "90")
	t.Setenv("APPOINTMENT_CHECKIN_GRACE_MINUTES", "5")
	t.Setenv("AUTO_CANCELLATION_POLL_SECONDS", "15")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:5173, https://app.example.com")
	t.Setenv("REDIS_TLS", "true")

	cfg := Load()

	assert.Equal(t, 90*time.Minute, cfg.ConfirmationWindow)
	assert.Equal(t, 5*time.Minute, cfg.CheckinGrace)
	assert.Equal(t, 15*time.Second, cfg.SweepInterval)
	assert.Equal(t, []string{"http://localhost:5173", "https://app.example.com"}, cfg.CORSAllowedOrigins)
	assert.True(t, cfg.RedisTLS)
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("APPOINTMENT_CONFIRMATION_MINUTES", "soon")

	cfg := Load()
	assert.Equal(t, 60*time.Minute, cfg.ConfirmationWindow)
}
