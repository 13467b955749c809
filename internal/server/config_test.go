package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/gocollab/internal/storage"
)

// TestNewConfigDefaults verifies the documented defaults.
func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, ":8000", cfg.Port)
	assert.Equal(t, []string{"http://localhost:5173", "http://localhost:8000"}, cfg.AllowedOrigins)
	assert.Equal(t, int64(64*1024), cfg.MaxMessageSize)
	assert.Equal(t, 20, cfg.RateLimit.Burst)
	assert.Equal(t, time.Second, cfg.RateLimit.RefillInterval)
	assert.Equal(t, storage.DriverFile, cfg.Storage.Driver)
	assert.Equal(t, 1024, cfg.PersistQueueSize)
}

// TestNewConfigFromEnv verifies environment variables override defaults.
func TestNewConfigFromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("ALLOWED_ORIGINS", "https://a.test,https://b.test")
	t.Setenv("MAX_MESSAGE_SIZE", "1024")
	t.Setenv("RATE_LIMIT_BURST", "5")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "3")
	t.Setenv("STORAGE_DRIVER", "badger")
	t.Setenv("DATA_DIR", "/tmp/gocollab")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("WELCOME_TEXT", "hello")

	cfg, err := NewConfigFromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Port)
	assert.Equal(t, []string{"https://a.test", "https://b.test"}, cfg.AllowedOrigins)
	assert.Equal(t, int64(1024), cfg.MaxMessageSize)
	assert.Equal(t, 5, cfg.RateLimit.Burst)
	assert.Equal(t, 3*time.Second, cfg.RateLimit.RefillInterval)
	assert.Equal(t, storage.DriverBadger, cfg.Storage.Driver)
	assert.Equal(t, "/tmp/gocollab", cfg.Storage.DataDir)
	assert.Equal(t, 2, cfg.Storage.RedisDB)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "hello", cfg.WelcomeText)
}

// TestNewConfigFromEnvInvalid verifies unparsable values are reported.
func TestNewConfigFromEnvInvalid(t *testing.T) {
	t.Setenv("RATE_LIMIT_BURST", "lots")

	_, err := NewConfigFromEnv()
	assert.Error(t, err)
}

// TestConfigSanitize verifies invalid values fall back to defaults and
// the origin slice is copied.
func TestConfigSanitize(t *testing.T) {
	origins := []string{"https://a.test"}
	cfg := Config{
		Port:           "7000",
		AllowedOrigins: origins,
		MaxMessageSize: -1,
		RateLimit:      RateLimitConfig{Burst: 0, RefillInterval: -time.Second},
	}.Sanitize()

	assert.Equal(t, ":7000", cfg.Port)
	assert.Equal(t, int64(defaultMaxMessageSize), cfg.MaxMessageSize)
	assert.Equal(t, defaultRateLimitBurst, cfg.RateLimit.Burst)
	assert.Equal(t, time.Second, cfg.RateLimit.RefillInterval)
	assert.Equal(t, defaultPersistQueueSize, cfg.PersistQueueSize)
	assert.Equal(t, storage.DriverFile, cfg.Storage.Driver)
	assert.Equal(t, "info", cfg.LogLevel)

	origins[0] = "changed"
	assert.Equal(t, "https://a.test", cfg.AllowedOrigins[0])
}
