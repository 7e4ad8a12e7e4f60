package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	HTTPAddr    string     `env:"HTTP_ADDR" envDefault:":8080"`
	DBDriver    string     `env:"DB_DRIVER" envDefault:"sqlite"`
	DBPath      string     `env:"DB_PATH" envDefault:"data/plasticboy.db"`
	DatabaseURL string     `env:"DATABASE_URL"`
	RedisURL    string     `env:"REDIS_URL"`
	LogLevel    slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	SPADir      string     `env:"SPA_DIR" envDefault:"../web/dist"`
	BaseURL     string     `env:"BASE_URL" envDefault:"http://localhost:8080"`

	AdminPassword string `env:"ADMIN_PASSWORD"`

	TelegramBotToken    string        `env:"TELEGRAM_BOT_TOKEN"`
	TelegramAuthMaxAge  time.Duration `env:"TELEGRAM_AUTH_MAX_AGE" envDefault:"24h"`
	BotWorkers          int           `env:"BOT_WORKERS" envDefault:"4"`
	LeaderboardCacheTTL time.Duration `env:"LEADERBOARD_CACHE_TTL" envDefault:"30s"`

	MaxSelfieBytes    int `env:"MAX_SELFIE_BYTES" envDefault:"5242880"`
	MaxSignatureBytes int `env:"MAX_SIGNATURE_BYTES" envDefault:"1048576"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every missing or inconsistent setting at once.
func (c Config) Validate() error {
	var errs []error
	switch c.DBDriver {
	case DriverSQLite:
		if c.DBPath == "" {
			errs = append(errs, errors.New("DB_PATH is required for the sqlite driver"))
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER %q is not one of sqlite, postgres", c.DBDriver))
	}
	if c.AdminPassword == "" {
		errs = append(errs, errors.New("ADMIN_PASSWORD is required"))
	}
	if len(c.AdminPassword) > 72 {
		errs = append(errs, errors.New("ADMIN_PASSWORD must be at most 72 bytes"))
	}
	if c.BaseURL == "" {
		errs = append(errs, errors.New("BASE_URL is required"))
	}
	if c.TelegramAuthMaxAge <= 0 {
		errs = append(errs, errors.New("TELEGRAM_AUTH_MAX_AGE must be positive"))
	}
	if c.BotWorkers < 1 {
		errs = append(errs, errors.New("BOT_WORKERS must be at least 1"))
	}
	if c.MaxSelfieBytes < 1 || c.MaxSignatureBytes < 1 {
		errs = append(errs, errors.New("MAX_SELFIE_BYTES and MAX_SIGNATURE_BYTES must be positive"))
	}
	return errors.Join(errs...)
}

// TelegramEnabled reports whether a bot token is configured. Without one the
// bot does not start and Telegram claims are rejected.
func (c Config) TelegramEnabled() bool {
	return c.TelegramBotToken != ""
}
