package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"SERVER_PORT", "PORT", "STORE_DRIVER", "JWT_SECRET", "JWT_EXPIRES", "APP_ENV", "POSTGRES_DSN", "SUPABASE_DB_URL"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, StoreFile, cfg.StoreDriver)
	assert.Equal(t, "change-me", cfg.JWTSecret)
	assert.Equal(t, 7*24*time.Hour, cfg.JWTExpiry)
	assert.Equal(t, 24*time.Hour, cfg.VerificationTTL)
	assert.Empty(t, cfg.PostgresDSN)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "")
	t.Setenv("PORT", "10000")
	t.Setenv("APP_ENV", "production")
	t.Setenv("STORE_DRIVER", StorePostgres)
	t.Setenv("POSTGRES_DSN", "")
	t.Setenv("SUPABASE_DB_URL", "postgres://supabase")
	t.Setenv("RESET_DB", "true")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("SELF_PING_INTERVAL", "1m")

	cfg := Load()
	assert.Equal(t, "10000", cfg.ServerPort)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, StorePostgres, cfg.StoreDriver)
	assert.Equal(t, "postgres://supabase", cfg.PostgresDSN)
	assert.True(t, cfg.ResetDB)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.Equal(t, time.Minute, cfg.SelfPingInterval)
}

func TestGetEnvDuration(t *testing.T) {
	tests := []struct {
		value string
		want  time.Duration
	}{
		{value: "", want: time.Hour},
		{value: "90m", want: 90 * time.Minute},
		{value: "7d", want: 7 * 24 * time.Hour},
		{value: "1d", want: 24 * time.Hour},
		{value: "d", want: time.Hour},
		{value: "soon", want: time.Hour},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("TEST_DURATION", tt.value)
			assert.Equal(t, tt.want, getEnvDuration("TEST_DURATION", time.Hour))
		})
	}
}

func TestGetEnvInvalidNumbersFallBack(t *testing.T) {
	t.Setenv("TEST_INT", "three")
	t.Setenv("TEST_BOOL", "maybe")
	assert.Equal(t, 5, getEnvInt("TEST_INT", 5))
	assert.True(t, getEnvBool("TEST_BOOL", true))
}
