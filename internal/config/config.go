package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// Server
	Port        int    `envconfig:"PORT" default:"3000"`
	Environment string `envconfig:"ENV" default:"development"`

	// Widget state store: memory, redis or postgres
	KVDriver    string `envconfig:"KV_DRIVER" default:"memory"`
	DatabaseURL string `envconfig:"DATABASE_URL"`
	RedisURL    string `envconfig:"REDIS_URL"`

	// Upstream chat/OTP/TTS/STT provider
	BackendURL     string        `envconfig:"BACKEND_URL" required:"true"`
	BackendTimeout time.Duration `envconfig:"BACKEND_TIMEOUT" default:"30s"`
	BackendRetries int           `envconfig:"BACKEND_RETRIES" default:"2"`

	// Gate policy
	MessageThreshold int           `envconfig:"MESSAGE_THRESHOLD" default:"2"`
	OtpResendWindow  time.Duration `envconfig:"OTP_RESEND_WINDOW" default:"60s"`
	// Treat a 403 without any marker as auth-required. A stricter upstream
	// contract can turn this off.
	Generic403AsAuth bool `envconfig:"GENERIC_403_AS_AUTH" default:"true"`

	// Voice
	RecordingLimit time.Duration `envconfig:"RECORDING_LIMIT" default:"30s"`
	AudioEnabled   bool          `envconfig:"AUDIO_ENABLED" default:"true"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	switch cfg.KVDriver {
	case "memory":
	case "redis":
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("load config: REDIS_URL required for redis driver")
		}
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("load config: DATABASE_URL required for postgres driver")
		}
	default:
		return nil, fmt.Errorf("load config: unknown KV_DRIVER %q", cfg.KVDriver)
	}

	return &cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
