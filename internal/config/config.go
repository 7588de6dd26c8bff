package config

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Scheduler SchedulerConfig
	Waitlist  WaitlistConfig
	Telemetry TelemetryConfig
}

type ServerConfig struct {
	Port string `env:"PORT" envDefault:"8080"`
	Host string `env:"HOST" envDefault:"localhost"`
	Env  string `env:"ENV" envDefault:"development"`

	AllowedOrigins  []string      `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
	RateLimit       int           `env:"RATE_LIMIT_REQUESTS" envDefault:"60"`
	RateLimitWindow time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
}

type DatabaseConfig struct {
	URL      string `env:"DATABASE_URL"` // Full database URL
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     int    `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD"`
	DBName   string `env:"DB_NAME" envDefault:"event_waitlist"`
	SSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`

	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"5m"`
}

type SchedulerConfig struct {
	DBPath       string        `env:"SCHEDULER_DB_PATH" envDefault:"data/scheduler.db"`
	PollInterval time.Duration `env:"SCHEDULER_POLL_INTERVAL" envDefault:"1s"`
	LeaseTTL     time.Duration `env:"SCHEDULER_LEASE_TTL" envDefault:"30s"`
	BatchSize    int           `env:"SCHEDULER_BATCH_SIZE" envDefault:"16"`
	MaxAttempts  int           `env:"SCHEDULER_MAX_ATTEMPTS" envDefault:"8"`
}

type WaitlistConfig struct {
	// OfferWindow is how long an offered user has to purchase
	OfferWindow time.Duration `env:"OFFER_WINDOW" envDefault:"30m"`
}

type TelemetryConfig struct {
	Enabled     bool   `env:"OTEL_ENABLED" envDefault:"true"`
	Endpoint    string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"event-waitlist"`
}

func Load() (*Config, error) {
	// Load .env files if they exist (try .env.local first, then .env)
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load(".env")

	config := &Config{}
	if err := env.Parse(config); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if config.Database.URL != "" {
		config.Database = parseDatabaseURL(config.Database)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks the values Load cannot enforce through defaults
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port == "" {
		errs = append(errs, errors.New("PORT is required"))
	} else if port, err := strconv.Atoi(c.Server.Port); err != nil || port <= 0 || port > 65535 {
		errs = append(errs, fmt.Errorf("PORT must be a valid port number, got %q", c.Server.Port))
	}
	if c.Database.URL == "" && c.Database.Host == "" {
		errs = append(errs, errors.New("DATABASE_URL or DB_HOST is required"))
	}
	if c.Server.RateLimit < 0 {
		errs = append(errs, errors.New("RATE_LIMIT_REQUESTS cannot be negative"))
	}
	if c.Server.RateLimit > 0 && c.Server.RateLimitWindow <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_WINDOW must be positive when rate limiting is enabled"))
	}
	if c.Waitlist.OfferWindow <= 0 {
		errs = append(errs, errors.New("OFFER_WINDOW must be positive"))
	}
	if strings.TrimSpace(c.Scheduler.DBPath) == "" {
		errs = append(errs, errors.New("SCHEDULER_DB_PATH is required"))
	}
	if c.Scheduler.PollInterval <= 0 {
		errs = append(errs, errors.New("SCHEDULER_POLL_INTERVAL must be positive"))
	}
	if c.Scheduler.LeaseTTL <= 0 {
		errs = append(errs, errors.New("SCHEDULER_LEASE_TTL must be positive"))
	}
	if c.Scheduler.BatchSize <= 0 {
		errs = append(errs, errors.New("SCHEDULER_BATCH_SIZE must be positive"))
	}
	if c.Scheduler.MaxAttempts <= 0 {
		errs = append(errs, errors.New("SCHEDULER_MAX_ATTEMPTS must be positive"))
	}

	return errors.Join(errs...)
}

// IsProduction reports whether ENV is production
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Server.Env, "production")
}

// Addr returns the HTTP listen address
func (c ServerConfig) Addr() string {
	return c.Host + ":" + c.Port
}

func parseDatabaseURL(config DatabaseConfig) DatabaseConfig {
	// Parse the URL
	u, err := url.Parse(config.URL)
	if err != nil {
		// If parsing fails, return the URL as-is
		return config
	}

	// Extract components
	config.Host = u.Hostname()
	if u.Port() != "" {
		config.Port, _ = strconv.Atoi(u.Port())
	} else {
		config.Port = 5432 // Default PostgreSQL port
	}

	if u.User != nil {
		config.User = u.User.Username()
		config.Password, _ = u.User.Password()
	}

	// Remove leading slash from path to get database name
	config.DBName = strings.TrimPrefix(u.Path, "/")

	// Parse query parameters for SSL mode
	config.SSLMode = u.Query().Get("sslmode")
	if config.SSLMode == "" {
		config.SSLMode = "disable"
	}

	return config
}
