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

// Components holds all initialized service dependencies. Optional parts are nil
// when disabled by config or options.
type Components struct {
	Config    *config.Config
	Logger    *logger.Logger
	DB        *db.DB
	Redis     *rediscommon.Client
	Queue     queue.Queue
	Cache     cache.Cache
	Metrics   *metrics.Metrics
	Telemetry *telemetry.Telemetry

	cleanupFuncs []func(context.Context) error
}

// Shutdown performs graceful shutdown of all components
// Should be called with defer after Setup()
func (c *Components) Shutdown(ctx context.Context) error {
	c.Logger.Info("shutting down components")

	var errs []error

	// LIFO
	for i := len(c.cleanupFuncs) - 1; i >= 0; i-- {
		if err := c.cleanupFuncs[i](ctx); err != nil {
			errs = append(errs, err)
			c.Logger.Error("cleanup error", "error", err)
		}
	}
	c.cleanupFuncs = nil

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}

	c.Logger.Info("shutdown complete")
	return nil
}

// Health checks health of all components
func (c *Components) Health(ctx context.Context) error {
	if c.DB != nil {
		if err := c.DB.Health(ctx); err != nil {
			return fmt.Errorf("database unhealthy: %w", err)
		}
	}

	if c.Redis != nil {
		if err := c.Redis.Ping(ctx); err != nil {
			return fmt.Errorf("redis unhealthy: %w", err)
		}
	}

	// memory queue and memory cache are always healthy

	return nil
}

func (c *Components) addCleanup(fn func(context.Context) error) {
	c.cleanupFuncs = append(c.cleanupFuncs, fn)
}
