// Package server provides configuration helpers that define runtime defaults,
// validation, and rate-limiting parameters for the gocollab service.
package server

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/Tyrowin/gocollab/internal/storage"
)

// RateLimitConfig defines the parameters for per-connection message rate limiting.
type RateLimitConfig struct {
	Burst          int
	RefillInterval time.Duration
}

// Config holds the server configuration settings including security controls.
type Config struct {
	Port             string
	AllowedOrigins   []string
	MaxMessageSize   int64
	RateLimit        RateLimitConfig
	Storage          storage.Options
	PersistQueueSize int
	LogLevel         string
	WelcomeText      string
}

// envSpec mirrors Config as flat environment variables.
type envSpec struct {
	Port             string   `envconfig:"SERVER_PORT" default:":8000"`
	AllowedOrigins   []string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:5173,http://localhost:8000"`
	MaxMessageSize   int64    `envconfig:"MAX_MESSAGE_SIZE" default:"65536"`
	RateLimitBurst   int      `envconfig:"RATE_LIMIT_BURST" default:"20"`
	RateLimitRefill  int      `envconfig:"RATE_LIMIT_REFILL_INTERVAL" default:"1"`
	StorageDriver    string   `envconfig:"STORAGE_DRIVER" default:"file"`
	DataDir          string   `envconfig:"DATA_DIR" default:"./data"`
	RedisAddr        string   `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword    string   `envconfig:"REDIS_PASSWORD"`
	RedisDB          int      `envconfig:"REDIS_DB" default:"0"`
	PersistQueueSize int      `envconfig:"PERSIST_QUEUE_SIZE" default:"1024"`
	LogLevel         string   `envconfig:"LOG_LEVEL" default:"info"`
	WelcomeText      string   `envconfig:"WELCOME_TEXT"`
}

const (
	defaultPort             = ":8000"
	defaultMaxMessageSize   = 64 * 1024
	defaultRateLimitBurst   = 20
	defaultPersistQueueSize = 1024
)

func defaultConfig() Config {
	return Config{
		Port: defaultPort,
		AllowedOrigins: []string{
			"http://localhost:5173",
			"http://localhost:8000",
		},
		MaxMessageSize: defaultMaxMessageSize,
		RateLimit: RateLimitConfig{
			Burst:          defaultRateLimitBurst,
			RefillInterval: time.Second,
		},
		Storage: storage.Options{
			Driver:    storage.DriverFile,
			DataDir:   "./data",
			RedisAddr: "localhost:6379",
		},
		PersistQueueSize: defaultPersistQueueSize,
		LogLevel:         "info",
	}
}

// NewConfig creates a Config instance populated with default values for all settings.
func NewConfig() *Config {
	cfg := defaultConfig()
	return &cfg
}

// NewConfigFromEnv loads an optional .env file, then builds a Config from
// environment variables. Unset variables keep their defaults; values that
// fail to parse are reported as an error.
func NewConfigFromEnv() (*Config, error) {
	_ = godotenv.Load()

	var spec envSpec
	if err := envconfig.Process("", &spec); err != nil {
		return nil, fmt.Errorf("load config from environment: %w", err)
	}

	cfg := Config{
		Port:           spec.Port,
		AllowedOrigins: spec.AllowedOrigins,
		MaxMessageSize: spec.MaxMessageSize,
		RateLimit: RateLimitConfig{
			Burst:          spec.RateLimitBurst,
			RefillInterval: time.Duration(spec.RateLimitRefill) * time.Second,
		},
		Storage: storage.Options{
			Driver:        spec.StorageDriver,
			DataDir:       spec.DataDir,
			RedisAddr:     spec.RedisAddr,
			RedisPassword: spec.RedisPassword,
			RedisDB:       spec.RedisDB,
		},
		PersistQueueSize: spec.PersistQueueSize,
		LogLevel:         spec.LogLevel,
		WelcomeText:      spec.WelcomeText,
	}
	sanitized := cfg.Sanitize()
	return &sanitized, nil
}

// Sanitize returns a copy of c with invalid or missing values replaced by
// defaults.
func (c Config) Sanitize() Config {
	defaults := defaultConfig()

	if c.Port == "" {
		c.Port = defaults.Port
	}
	if !strings.Contains(c.Port, ":") {
		c.Port = ":" + c.Port
	}

	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = defaults.MaxMessageSize
	}

	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = defaults.RateLimit.Burst
	}

	if c.RateLimit.RefillInterval <= 0 {
		c.RateLimit.RefillInterval = defaults.RateLimit.RefillInterval
	}

	if c.PersistQueueSize <= 0 {
		c.PersistQueueSize = defaults.PersistQueueSize
	}

	if c.Storage.Driver == "" {
		c.Storage.Driver = defaults.Storage.Driver
	}
	if c.Storage.DataDir == "" {
		c.Storage.DataDir = defaults.Storage.DataDir
	}

	if c.LogLevel == "" {
		c.LogLevel = defaults.LogLevel
	}

	c.AllowedOrigins = append([]string(nil), c.AllowedOrigins...)
	return c
}
