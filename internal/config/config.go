// Package config holds the storefront's environment configuration.
package config

import (
	"errors"
	"fmt"
	"time"

	pkgconfig "github.com/utafrali/storefront/pkg/config"
	"github.com/utafrali/storefront/pkg/database"
	"github.com/utafrali/storefront/pkg/tracing"
)

const (
	devPasswordSecret = "secret"
	devJWTSecret      = "change-this-to-a-secure-secret"
	minSecretLength   = 32
)

// Config is read from the environment by Load.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	Version     string `env:"STOREFRONT_VERSION" envDefault:"0.1.0"`

	HTTPPort            int           `env:"STOREFRONT_HTTP_PORT" envDefault:"8080"`
	HTTPReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	HTTPWriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
	HTTPShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"20s"`

	PostgresHost    string        `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort    int           `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser    string        `env:"POSTGRES_USER" envDefault:"storefront"`
	PostgresPass    string        `env:"POSTGRES_PASSWORD" envDefault:"storefront"`
	PostgresDB      string        `env:"STOREFRONT_DB_NAME" envDefault:"storefront"`
	PostgresSSL     string        `env:"POSTGRES_SSL_MODE" envDefault:"disable"`
	DBMaxConns      int32         `env:"DB_MAX_CONNS" envDefault:"20"`
	DBMinConns      int32         `env:"DB_MIN_CONNS" envDefault:"2"`
	DBMaxConnLife   time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"1h"`
	DBMaxConnIdle   time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"30m"`
	SlowQueryMillis int           `env:"SLOW_QUERY_THRESHOLD_MS" envDefault:"200"`
	RunMigrations   bool          `env:"RUN_MIGRATIONS" envDefault:"true"`

	RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	KafkaBrokers       []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	KafkaConsumerGroup string   `env:"KAFKA_CONSUMER_GROUP" envDefault:"storefront-receipts"`

	PasswordSecret string        `env:"PASSWORD_SECRET" envDefault:"secret"`
	PasswordScheme string        `env:"PASSWORD_SCHEME" envDefault:"hmac"`
	JWTSecret      string        `env:"JWT_SECRET" envDefault:"change-this-to-a-secure-secret"`
	SessionTTL     time.Duration `env:"JWT_SESSION_EXPIRY" envDefault:"168h"`

	CatalogPerPage  int           `env:"CATALOG_PER_PAGE" envDefault:"3"`
	CatalogCacheTTL time.Duration `env:"CATALOG_CACHE_TTL" envDefault:"30s"`

	MediaDir             string        `env:"MEDIA_DIR" envDefault:"./media"`
	ReceiptWorkerEnabled bool          `env:"RECEIPT_WORKER_ENABLED" envDefault:"true"`
	LogoFetchTimeout     time.Duration `env:"LOGO_FETCH_TIMEOUT" envDefault:"5s"`
	LogoAllowPrivate     bool          `env:"LOGO_ALLOW_PRIVATE_NETWORKS" envDefault:"false"`
	ContactEmail         string        `env:"STORE_CONTACT_EMAIL" envDefault:"shop@example.com"`

	AuthRateLimitRPS   float64 `env:"AUTH_RATE_LIMIT_RPS" envDefault:"2"`
	AuthRateLimitBurst int     `env:"AUTH_RATE_LIMIT_BURST" envDefault:"10"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
	PprofAllowedCIDRs  []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"127.0.0.1/32" envSeparator:","`

	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`
}

// Load reads and validates the configuration from the process environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load storefront config: %w", err)
	}
	return cfg, nil
}

// Validate implements pkg/config.Validator.
func (c *Config) Validate() error {
	var errs []error
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP port: %d", c.HTTPPort))
	}
	if c.CatalogPerPage < 1 {
		errs = append(errs, fmt.Errorf("CATALOG_PER_PAGE must be positive, got %d", c.CatalogPerPage))
	}
	switch c.PasswordScheme {
	case "hmac", "bcrypt":
	default:
		errs = append(errs, fmt.Errorf("PASSWORD_SCHEME must be hmac or bcrypt, got %q", c.PasswordScheme))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("JWT_SESSION_EXPIRY must be positive"))
	}

	if !c.IsDevelopment() {
		errs = append(errs, strongSecret("JWT_SECRET", c.JWTSecret, devJWTSecret))
		errs = append(errs, strongSecret("PASSWORD_SECRET", c.PasswordSecret, devPasswordSecret))
	}
	return errors.Join(errs...)
}

func strongSecret(name, value, devDefault string) error {
	if value == devDefault {
		return fmt.Errorf("%s must be set explicitly outside development", name)
	}
	if len(value) < minSecretLength {
		return fmt.Errorf("%s must be at least %d characters long, got %d", name, minSecretLength, len(value))
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// Postgres returns the pool configuration.
func (c *Config) Postgres() database.PostgresConfig {
	return database.PostgresConfig{
		Host:            c.PostgresHost,
		Port:            c.PostgresPort,
		User:            c.PostgresUser,
		Password:        c.PostgresPass,
		DBName:          c.PostgresDB,
		SSLMode:         c.PostgresSSL,
		MaxConns:        c.DBMaxConns,
		MinConns:        c.DBMinConns,
		MaxConnLifetime: c.DBMaxConnLife,
		MaxConnIdleTime: c.DBMaxConnIdle,
	}
}

func (c *Config) Redis() database.RedisConfig {
	return database.RedisConfig{
		Host:     c.RedisHost,
		Port:     c.RedisPort,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	}
}

func (c *Config) Tracing(service string) tracing.Config {
	return tracing.Config{
		ServiceName:    service,
		ServiceVersion: c.Version,
		Environment:    c.Environment,
		OTLPEndpoint:   c.OTELEndpoint,
		SampleRate:     c.OTELSampleRate,
		Enabled:        c.OTELEnabled,
	}
}

func (c *Config) SlowQueryThreshold() time.Duration {
	return time.Duration(c.SlowQueryMillis) * time.Millisecond
}
