package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all service configuration
type Config struct {
	Service     ServiceConfig
	Database    DatabaseConfig
	Store       StoreConfig
	Composition CompositionConfig
	Cache       CacheConfig
	Redis       RedisConfig
	RateLimit   RateLimitConfig
	Queue       QueueConfig
	Telemetry   TelemetryConfig
}

// ServiceConfig holds service-specific settings
type ServiceConfig struct {
	Name            string        `env:"SERVICE_NAME"`
	Port            int           `env:"PORT" env-default:"3000"`
	Environment     string        `env:"ENVIRONMENT" env-default:"development"`
	LogLevel        string        `env:"LOG_LEVEL" env-default:"info"`
	LogFormat       string        `env:"LOG_FORMAT" env-default:"text"` // text (tint) or json
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" env-default:"30s"`
}

// DatabaseConfig holds Postgres connection settings
type DatabaseConfig struct {
	URL         string        `env:"DATABASE_URL"` // overrides the individual fields when set
	Host        string        `env:"POSTGRES_HOST" env-default:"localhost"`
	Port        int           `env:"POSTGRES_PORT" env-default:"5432"`
	Database    string        `env:"POSTGRES_DB" env-default:"recipes"`
	User        string        `env:"POSTGRES_USER" env-default:"recipes"`
	Password    string        `env:"POSTGRES_PASSWORD" env-default:"recipes"`
	MaxConns    int           `env:"POSTGRES_MAX_CONNS" env-default:"5"`
	MinConns    int           `env:"POSTGRES_MIN_CONNS" env-default:"1"`
	MaxIdleTime time.Duration `env:"POSTGRES_MAX_IDLE_TIME" env-default:"30m"`
	MaxLifetime time.Duration `env:"POSTGRES_MAX_LIFETIME" env-default:"1h"`
}

// StoreConfig selects the persistence backend
type StoreConfig struct {
	Driver string `env:"STORE_DRIVER" env-default:"postgres"` // postgres or memory
}

// CompositionConfig controls how recipe aggregates are written
type CompositionConfig struct {
	// Transactional wraps every create/replace/delete in one database transaction.
	// When false each statement commits on its own and partial failures stay visible.
	Transactional   bool          `env:"COMPOSITION_TRANSACTIONAL" env-default:"true"`
	IngredientRules []string      `env:"INGREDIENT_RULES" env-separator:";"`
	CacheTTL        time.Duration `env:"INGREDIENT_CACHE_TTL" env-default:"5m"`
}

// CacheConfig holds cache settings
type CacheConfig struct {
	Enabled    bool   `env:"CACHE_ENABLED" env-default:"true"`
	Type       string `env:"CACHE_TYPE" env-default:"memory"`       // memory or redis
	MaxEntries int    `env:"CACHE_MAX_ENTRIES" env-default:"10000"` // memory cache only
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string `env:"REDIS_HOST" env-default:"localhost"`
	Port     int    `env:"REDIS_PORT" env-default:"6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" env-default:"0"`
}

// RateLimitConfig holds request rate limits (requests per minute)
type RateLimitConfig struct {
	Enabled   bool  `env:"RATE_LIMIT_ENABLED" env-default:"false"`
	Global    int64 `env:"RATE_LIMIT_GLOBAL" env-default:"600"`
	PerClient int64 `env:"RATE_LIMIT_PER_CLIENT" env-default:"120"`
}

// QueueConfig holds message queue settings
type QueueConfig struct {
	Type string `env:"QUEUE_TYPE" env-default:"memory"`
}

// TelemetryConfig holds observability settings
type TelemetryConfig struct {
	EnablePprof   bool `env:"ENABLE_PPROF" env-default:"false"`
	PprofPort     int  `env:"PPROF_PORT" env-default:"6060"`
	EnableMetrics bool `env:"ENABLE_METRICS" env-default:"true"`
	MetricsPort   int  `env:"METRICS_PORT" env-default:"9090"`
}

// Load loads configuration from environment variables
func Load(serviceName string) (*Config, error) {
	cfg := &Config{}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}

	if cfg.Service.Name == "" {
		cfg.Service.Name = serviceName
	}

	return cfg, cfg.Validate()
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.Service.Port < 1 || c.Service.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Service.Port)
	}

	switch c.Store.Driver {
	case "postgres":
		if c.Database.URL == "" && c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.MaxConns < 1 {
			return fmt.Errorf("max_conns must be >= 1")
		}
		if c.Database.MaxConns < c.Database.MinConns {
			return fmt.Errorf("max_conns must be >= min_conns")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown store driver: %s", c.Store.Driver)
	}

	if c.Cache.Enabled && c.Cache.Type != "memory" && c.Cache.Type != "redis" {
		return fmt.Errorf("unknown cache type: %s", c.Cache.Type)
	}

	if c.RateLimit.Enabled && (c.RateLimit.Global < 1 || c.RateLimit.PerClient < 1) {
		return fmt.Errorf("rate limits must be positive")
	}

	return nil
}

// NeedsRedis reports whether any enabled component talks to Redis
func (c *Config) NeedsRedis() bool {
	return (c.Cache.Enabled && c.Cache.Type == "redis") || c.RateLimit.Enabled
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	if c.Database.URL != "" {
		return c.Database.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
	)
}

// RedisAddr returns host:port for the Redis client
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}
