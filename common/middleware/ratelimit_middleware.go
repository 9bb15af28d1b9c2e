package middleware

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/lyzr/recipes/common/ratelimit"
)

// Limiter is the subset of ratelimit.RateLimiter the middleware needs
type Limiter interface {
	CheckGlobalLimit(ctx context.Context, limit int64) (*ratelimit.RateLimitResult, error)
	CheckClientLimit(ctx context.Context, client string, limit int64) (*ratelimit.RateLimitResult, error)
}

// GlobalRateLimitMiddleware checks the service-wide rate limit.
// Limiter errors fail open.
func GlobalRateLimitMiddleware(limiter Limiter, limit int64) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			result, err := limiter.CheckGlobalLimit(c.Request().Context(), limit)
			if err != nil {
				return next(c)
			}

			if !result.Allowed {
				return tooManyRequests(c, "global_rate_limit_exceeded",
					"Service is experiencing high load. Please try again later.", result)
			}

			return next(c)
		}
	}
}

// ClientRateLimitMiddleware checks the per-client limit keyed by the caller's real IP.
// Limiter errors fail open.
func ClientRateLimitMiddleware(limiter Limiter, limit int64) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			client := c.RealIP()
			if client == "" {
				return next(c)
			}

			result, err := limiter.CheckClientLimit(c.Request().Context(), client, limit)
			if err != nil {
				return next(c)
			}

			if !result.Allowed {
				return tooManyRequests(c, "client_rate_limit_exceeded",
					"You have exceeded your request quota. Please wait before trying again.", result)
			}

			return next(c)
		}
	}
}

func tooManyRequests(c echo.Context, code, message string, result *ratelimit.RateLimitResult) error {
	c.Response().Header().Set("Retry-After", strconv.FormatInt(result.RetryAfterSeconds, 10))
	return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
		"error":   code,
		"message": message,
		"details": map[string]interface{}{
			"limit":               result.Limit,
			"window_seconds":      ratelimit.Window,
			"current_count":       result.CurrentCount,
			"retry_after_seconds": result.RetryAfterSeconds,
		},
	})
}
