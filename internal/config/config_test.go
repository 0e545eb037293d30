package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	for k, v := range map[string]string{
		"APP_ENV":           "test",
		"APP_PORT":          "8080",
		"DB_USER":           "booking",
		"DB_HOST":           "127.0.0.1",
		"DB_PORT":           "3306",
		"DB_NAME":           "connectsphere",
		"JWT_SECRET":        "secret",
		"STRIPE_SECRET_KEY": "sk_test_123",
	} {
		t.Setenv(k, v)
	}
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "8080", cfg.Port)
	require.Equal(t, "inr", cfg.Currency)
	require.Equal(t, 30*24*time.Hour, cfg.AccessWindow)
	require.Equal(t, 72*time.Hour, cfg.RequestExpiry)
	require.False(t, cfg.IsProd())
}

func TestLoad_ReportsAllMissing(t *testing.T) {
	setRequired(t)
	t.Setenv("DB_HOST", "")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	require.Contains(t, err.Error(), "DB_HOST")
	require.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoad_InvalidDuration(t *testing.T) {
	setRequired(t)
	t.Setenv("ACCESS_WINDOW", "thirty days")

	_, err := Load()
	require.ErrorContains(t, err, "ACCESS_WINDOW")
}

func TestLoad_ExpiryCanBeDisabled(t *testing.T) {
	setRequired(t)
	t.Setenv("REQUEST_EXPIRY", "0")

	cfg, err := Load()
	require.NoError(t, err)
	require.Zero(t, cfg.RequestExpiry)
}

func TestLoadRateLimitConfig_Clamps(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	rl := LoadRateLimitConfig()
	require.Equal(t, 1, rl.Capacity)
	require.Equal(t, 10*time.Second, rl.TTL)
}

func TestLoadRedisConfig_HostPortWins(t *testing.T) {
	t.Setenv("REDIS_ADDR", "cache:6380")
	t.Setenv("REDIS_HOST", "redis")
	t.Setenv("REDIS_PORT", "6379")
	t.Setenv("REDIS_TLS", "1")

	rc := LoadRedisConfig()
	require.Equal(t, "redis:6379", rc.Addr)
	require.True(t, rc.TLS)
}

func TestLoad_RejectsNonPositivePaymentTimeout(t *testing.T) {
	setRequired(t)
	t.Setenv("PAYMENT_TIMEOUT", "0s")

	_, err := Load()
	require.ErrorContains(t, err, "PAYMENT_TIMEOUT must be positive")
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("X_BOOL", "Off")
	t.Setenv("X_BOOL_T", "1")
	t.Setenv("X_BOOL_BAD", "maybe")
	t.Setenv("X_INT", "  ")
	t.Setenv("X_DUR", "90s")

	require.False(t, envBool("X_BOOL", true))
	require.True(t, envBool("X_BOOL_T", false))
	require.True(t, envBool("X_BOOL_BAD", true))
	require.Equal(t, 7, envInt("X_INT", 7))
	require.Equal(t, 90*time.Second, envDur("X_DUR", time.Second))
	require.Equal(t, "fallback", envStr("X_UNSET_FOR_TEST", "fallback"))
}
