package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CARHUB_ENV", "")
	t.Setenv("SESSION_SECRET", "")
	t.Setenv("SESSION_STORE", "")
	t.Setenv("SESSION_MAX_AGE", "")
	t.Setenv("PORT", "")
	t.Setenv("CARHUB_ADDR", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, Dev, cfg.Env)
	assert.Equal(t, ":3000", cfg.Addr)
	assert.Equal(t, StorePostgres, cfg.Session.Store)
	assert.Equal(t, 7*24*time.Hour, cfg.Session.MaxAge)
	assert.Equal(t, DevSessionSecret, cfg.Session.Secret)
	assert.True(t, cfg.UsingDevSecret())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("CARHUB_ADDR", "")
	t.Setenv("SESSION_SECRET", "hunter2hunter2")
	t.Setenv("SESSION_STORE", "redis")
	t.Setenv("SESSION_MAX_AGE", "1h")
	t.Setenv("REDIS_DB", "3")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8081", cfg.Addr)
	assert.Equal(t, StoreRedis, cfg.Session.Store)
	assert.Equal(t, time.Hour, cfg.Session.MaxAge)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.False(t, cfg.UsingDevSecret())
}

func TestLiveRequiresSecret(t *testing.T) {
	t.Setenv("CARHUB_ENV", "live")

	t.Run("missing", func(t *testing.T) {
		t.Setenv("SESSION_SECRET", "")
		_, err := Load()
		assert.Error(t, err)
	})
	t.Run("dev fallback", func(t *testing.T) {
		t.Setenv("SESSION_SECRET", DevSessionSecret)
		_, err := Load()
		assert.Error(t, err)
	})
	t.Run("real secret", func(t *testing.T) {
		t.Setenv("SESSION_SECRET", "a real secret")
		_, err := Load()
		assert.NoError(t, err)
	})
}

func TestUnknownStore(t *testing.T) {
	t.Setenv("SESSION_STORE", "sqlite")
	_, err := Load()
	assert.Error(t, err)
}

func TestMalformedValues(t *testing.T) {
	t.Setenv("SESSION_MAX_AGE", "7d")
	t.Setenv("REDIS_DB", "three")
	t.Setenv("SESSION_COOKIE_SECURE", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SESSION_MAX_AGE")
	assert.Contains(t, err.Error(), `"7d"`)
	assert.Contains(t, err.Error(), "REDIS_DB")
	assert.NotContains(t, err.Error(), "SESSION_COOKIE_SECURE", "unset values use their defaults")
}

func TestSweepInterval(t *testing.T) {
	t.Setenv("SESSION_SWEEP_INTERVAL", "")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, time.Minute, cfg.Session.SweepInterval)

	t.Setenv("SESSION_SWEEP_INTERVAL", "0s")
	_, err = Load()
	assert.Error(t, err)
}
