package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	AppEnv         string `env:"APP_ENV" default:"development"`
	Port           string `env:"PORT" default:"5000"`
	DatabaseURL    string `env:"DATABASE_URL"`
	RedisURL       string `env:"REDIS_URL"`
	LogLevel       string `env:"LOG_LEVEL" default:"info"`
	LogFormat      string `env:"LOG_FORMAT" default:"text"`
	AllowedOrigins string `env:"ALLOWED_ORIGINS" default:"*"`

	MaxWebSocketConnections int `env:"MAX_WEBSOCKET_CONNECTIONS" default:"10000"`
	MaxConnectionsPerIP     int `env:"MAX_CONNECTIONS_PER_IP" default:"50"`

	UserCreateRate  float64 `env:"USER_CREATE_RATE" default:"5"`
	UserCreateBurst int     `env:"USER_CREATE_BURST" default:"10"`

	DBMaxConns       int32         `env:"DB_MAX_CONNS" default:"20"`
	DBConnectTimeout time.Duration `env:"DB_CONNECT_TIMEOUT" default:"2s"`
	DBIdleTimeout    time.Duration `env:"DB_IDLE_TIMEOUT" default:"30s"`

	SeedDefaultUser bool          `env:"SEED_DEFAULT_USER" default:"false"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" default:"10s"`
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

// IsDevelopment reports whether the app runs outside production.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv != "production"
}

// Origins splits ALLOWED_ORIGINS into trimmed, non-empty entries.
func (c *Config) Origins() []string {
	var origins []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

func validate(cfg *Config) error {
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}

	if cfg.MaxWebSocketConnections < 1 {
		return fmt.Errorf("MAX_WEBSOCKET_CONNECTIONS must be positive, got %d", cfg.MaxWebSocketConnections)
	}
	if cfg.MaxConnectionsPerIP < 1 {
		return fmt.Errorf("MAX_CONNECTIONS_PER_IP must be positive, got %d", cfg.MaxConnectionsPerIP)
	}
	if cfg.UserCreateRate <= 0 || cfg.UserCreateBurst < 1 {
		return errors.New("USER_CREATE_RATE and USER_CREATE_BURST must be positive")
	}
	if cfg.DBMaxConns < 1 {
		return fmt.Errorf("DB_MAX_CONNS must be positive, got %d", cfg.DBMaxConns)
	}

	if cfg.RedisURL != "" {
		u, err := url.Parse(cfg.RedisURL)
		if err != nil || (u.Scheme != "redis" && u.Scheme != "rediss") {
			return errors.New("REDIS_URL must be a redis:// or rediss:// URL")
		}
	}

	mode, err := SSLMode(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("DATABASE_URL is invalid: %w", err)
	}
	if cfg.AppEnv == "production" && (mode == "disable" || mode == "allow") {
		return fmt.Errorf("DATABASE_URL uses sslmode=%s which is not allowed in production", mode)
	}

	return nil
}

// SSLMode reports the sslmode pgx will apply to databaseURL. Both URL and keyword/value
// forms are understood, and PGSSLMODE applies when the string sets none.
func SSLMode(databaseURL string) (string, error) {
	cfg, err := pgconn.ParseConfig(databaseURL)
	if err != nil {
		return "", err
	}
	return TLSMode(cfg), nil
}

// TLSMode names the sslmode a parsed config was built from. pgconn does not keep the
// keyword, so it is recovered from the TLS settings of the primary and fallback configs.
func TLSMode(cfg *pgconn.Config) string {
	var plaintextFallback, tlsFallback bool
	for _, fb := range cfg.Fallbacks {
		if fb.TLSConfig == nil {
			plaintextFallback = true
		} else {
			tlsFallback = true
		}
	}

	switch {
	case cfg.TLSConfig == nil && tlsFallback:
		return "allow"
	case cfg.TLSConfig == nil:
		return "disable"
	case plaintextFallback:
		return "prefer"
	case !cfg.TLSConfig.InsecureSkipVerify:
		return "verify-full"
	case cfg.TLSConfig.VerifyPeerCertificate != nil:
		return "verify-ca"
	default:
		return "require"
	}
}
