// Package config loads service configuration from the environment, reading a
// .env file first when one is present.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/vncsmyrnk/poll/internal/adapters/repository/postgres"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Port            int           `env:"PORT" envDefault:"8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	AllowedOrigins  []string      `env:"ALLOWED_ORIGINS" envSeparator:","`

	DBDriver   string `env:"DB_DRIVER" envDefault:"postgres"`
	SQLitePath string `env:"SQLITE_PATH" envDefault:"poll.db"`
	Postgres   PostgresConfig

	JWTSecret            string        `env:"JWT_SECRET,unset"`
	TokenTTL             time.Duration `env:"TOKEN_TTL" envDefault:"24h"`
	AdminRegistrationKey string        `env:"ADMIN_REGISTRATION_KEY,unset"`
	GoogleClientID       string        `env:"GOOGLE_CLIENT_ID"`
}

type PostgresConfig struct {
	Host     string `env:"POSTGRES_HOST" envDefault:"localhost"`
	Port     string `env:"POSTGRES_PORT" envDefault:"5432"`
	User     string `env:"POSTGRES_USER"`
	Password string `env:"POSTGRES_PASSWORD,unset"`
	DBName   string `env:"POSTGRES_DB"`
}

func (c PostgresConfig) ConnString() string {
	return postgres.ConnString(c.Host, c.Port, c.User, c.Password, c.DBName)
}

// Load reads envFiles (default ".env") into the process environment without
// overriding variables that are already set, then parses Config.
func Load(envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load env file: %w", err)
		}
		slog.Debug("no .env file found")
	}
	return Parse()
}

// Parse reads Config from the current environment only.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.DBDriver {
	case DriverPostgres:
		if c.Postgres.User == "" || c.Postgres.DBName == "" {
			return fmt.Errorf("POSTGRES_USER and POSTGRES_DB are required for the postgres driver")
		}
	case DriverSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	for _, origin := range c.AllowedOrigins {
		// cookies are accepted cross-origin, so every origin must be named
		if strings.Contains(origin, "*") {
			return fmt.Errorf("ALLOWED_ORIGINS must list explicit origins, got %q", origin)
		}
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Port)
	}
	return nil
}

// SlogLevel maps LogLevel onto slog, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}
