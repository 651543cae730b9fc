package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

const (
	StoreBackendFile  = "file"
	StoreBackendRedis = "redis"
)

type Config struct {
	AppEnv    string `env:"APP_ENV" default:"development"`
	Port      string `env:"PORT" default:"8000"`
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	StoreBackend     string `env:"STORE_BACKEND" default:"file"`
	SessionsFile     string `env:"SESSIONS_FILE" default:"./whatsapp-sessions.json"`
	RedisURL         string `env:"REDIS_URL"`
	RedisSessionsKey string `env:"REDIS_SESSIONS_KEY" default:"wagate:sessions"`

	DeviceStoreDir     string `env:"DEVICE_STORE_DIR" default:"./.wwebjs_auth"`
	DefaultCountryCode string `env:"DEFAULT_COUNTRY_CODE" default:"55"`

	MediaFetchTimeout time.Duration `env:"MEDIA_FETCH_TIMEOUT" default:"60s"`
	MediaMaxBytes     int64         `env:"MEDIA_MAX_BYTES" default:"67108864"` // 64 MiB

	MaxObservers       int     `env:"MAX_OBSERVERS" default:"100"`
	RateLimitPerSecond float64 `env:"RATE_LIMIT_PER_SECOND" default:"20"`
	RateLimitBurst     int     `env:"RATE_LIMIT_BURST" default:"40"`

	ReconnectMaxElapsed time.Duration `env:"RECONNECT_MAX_ELAPSED" default:"5m"`
	RestartDelay        time.Duration `env:"RESTART_DELAY" default:"30s"`
	EventWorkers        int           `env:"EVENT_WORKERS" default:"64"`

	GroupWelcomeTemplate  string `env:"GROUP_WELCOME_TEMPLATE" default:"Olá @{participant}, bem vindo ao grupo!"`
	GroupFarewellTemplate string `env:"GROUP_FAREWELL_TEMPLATE" default:"Até mais @{participant}, sentiremos saudade!"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	switch cfg.StoreBackend {
	case StoreBackendFile:
		if cfg.SessionsFile == "" {
			return errors.New("SESSIONS_FILE is required when STORE_BACKEND is file")
		}
	case StoreBackendRedis:
		if cfg.RedisURL == "" {
			return errors.New("REDIS_URL is required when STORE_BACKEND is redis")
		}
		if cfg.RedisSessionsKey == "" {
			return errors.New("REDIS_SESSIONS_KEY is required when STORE_BACKEND is redis")
		}
	default:
		return fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", StoreBackendFile, StoreBackendRedis, cfg.StoreBackend)
	}

	if cfg.DeviceStoreDir == "" {
		return errors.New("DEVICE_STORE_DIR is required")
	}

	if cfg.DefaultCountryCode == "" || strings.Trim(cfg.DefaultCountryCode, "0123456789") != "" {
		return fmt.Errorf("DEFAULT_COUNTRY_CODE must contain digits only, got %q", cfg.DefaultCountryCode)
	}

	if cfg.MediaMaxBytes <= 0 {
		return errors.New("MEDIA_MAX_BYTES must be positive")
	}
	if cfg.MaxObservers <= 0 {
		return errors.New("MAX_OBSERVERS must be positive")
	}
	if cfg.EventWorkers <= 0 {
		return errors.New("EVENT_WORKERS must be positive")
	}
	if cfg.RateLimitPerSecond <= 0 || cfg.RateLimitBurst <= 0 {
		return errors.New("RATE_LIMIT_PER_SECOND and RATE_LIMIT_BURST must be positive")
	}

	for name, tmpl := range map[string]string{
		"GROUP_WELCOME_TEMPLATE":  cfg.GroupWelcomeTemplate,
		"GROUP_FAREWELL_TEMPLATE": cfg.GroupFarewellTemplate,
	} {
		if !strings.Contains(tmpl, "{participant}") {
			return fmt.Errorf("%s must contain the {participant} placeholder", name)
		}
	}

	return nil
}
