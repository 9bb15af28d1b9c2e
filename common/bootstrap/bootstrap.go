package bootstrap

import (
	"context"
	"fmt"

	"github.com/lyzr/recipes/common/cache"
	"github.com/lyzr/recipes/common/config"
	"github.com/lyzr/recipes/common/db"
	"github.com/lyzr/recipes/common/logger"
	"github.com/lyzr/recipes/common/metrics"
	"github.com/lyzr/recipes/common/queue"
	rediscommon "github.com/lyzr/recipes/common/redis"
	"github.com/lyzr/recipes/common/telemetry"
)

// Setup initializes all service components
// This is the main entry point for all services
func Setup(ctx context.Context, serviceName string, opts ...Option) (*Components, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	components := &Components{}

	// 1. Configuration
	var err error
	if options.customConfig != nil {
		components.Config = options.customConfig
	} else {
		components.Config, err = config.Load(serviceName)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}
	cfg := components.Config

	// 2. Logger
	if options.customLogger != nil {
		components.Logger = options.customLogger
	} else {
		components.Logger = logger.New(cfg.Service.LogLevel, cfg.Service.LogFormat)
	}
	log := components.Logger

	log.Info("initializing service",
		"service", serviceName,
		"environment", cfg.Service.Environment,
		"store", cfg.Store.Driver,
	)

	// 3. Database, only for the postgres store
	if !options.skipDB && cfg.Store.Driver == "postgres" {
		log.Info("connecting to database")
		components.DB, err = db.New(ctx, cfg, log)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		components.addCleanup(func(context.Context) error {
			components.DB.Close()
			return nil
		})

		if options.dbInitHook != nil {
			log.Info("running database init hook")
			if err := options.dbInitHook(ctx, components.DB); err != nil {
				_ = components.Shutdown(ctx)
				return nil, fmt.Errorf("database init hook failed: %w", err)
			}
		}
	}

	// 4. Redis, shared by the redis cache and the rate limiter
	if cfg.NeedsRedis() {
		components.Redis, err = rediscommon.New(ctx, rediscommon.Options{
			Addr:     cfg.RedisAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, log)
		if err != nil {
			_ = components.Shutdown(ctx)
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}

		components.addCleanup(func(context.Context) error {
			log.Info("closing redis")
			return components.Redis.Close()
		})
	}

	// 5. Queue
	if !options.skipQueue {
		log.Info("initializing queue", "type", cfg.Queue.Type)

		switch cfg.Queue.Type {
		case "memory":
			components.Queue = queue.NewMemoryQueue(log)
		default:
			_ = components.Shutdown(ctx)
			return nil, fmt.Errorf("unknown queue type: %s", cfg.Queue.Type)
		}

		components.addCleanup(func(context.Context) error {
			log.Info("closing queue")
			return components.Queue.Close()
		})
	}

	// 6. Cache
	if !options.skipCache && cfg.Cache.Enabled {
		log.Info("initializing cache", "type", cfg.Cache.Type)

		switch cfg.Cache.Type {
		case "redis":
			components.Cache = cache.NewRedisCache(components.Redis, serviceName+":")
		default:
			components.Cache = cache.NewMemoryCache(log, cache.WithMaxEntries(cfg.Cache.MaxEntries))
		}

		components.addCleanup(func(context.Context) error {
			return components.Cache.Close()
		})
	}

	// 7. Metrics and telemetry endpoints
	if !options.skipTelemetry {
		components.Metrics = metrics.New(metricsNamespace(serviceName))

		pprofPort, metricsPort := 0, 0
		if cfg.Telemetry.EnablePprof {
			pprofPort = cfg.Telemetry.PprofPort
		}
		if cfg.Telemetry.EnableMetrics {
			metricsPort = cfg.Telemetry.MetricsPort
		}

		components.Telemetry = telemetry.New(pprofPort, metricsPort, components.Metrics, log)
		if err := components.Telemetry.Start(ctx); err != nil {
			log.Warn("failed to start telemetry", "error", err)
		}

		components.addCleanup(func(ctx context.Context) error {
			return components.Telemetry.Stop(ctx)
		})
	}

	log.Info("service initialization complete",
		"service", serviceName,
		"db", components.DB != nil,
		"redis", components.Redis != nil,
		"queue", components.Queue != nil,
		"cache", components.Cache != nil,
		"telemetry", components.Telemetry != nil,
	)

	return components, nil
}

// MustSetup is like Setup but panics on error
func MustSetup(ctx context.Context, serviceName string, opts ...Option) *Components {
	components, err := Setup(ctx, serviceName, opts...)
	if err != nil {
		panic(fmt.Sprintf("failed to setup service %s: %v", serviceName, err))
	}
	return components
}

// metricsNamespace turns a service name into a valid Prometheus namespace
func metricsNamespace(serviceName string) string {
	out := make([]byte, 0, len(serviceName))
	for i := 0; i < len(serviceName); i++ {
		ch := serviceName[i]
		switch {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch == '_':
			out = append(out, ch)
		case ch >= '0' && ch <= '9' && len(out) > 0:
			out = append(out, ch)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}
