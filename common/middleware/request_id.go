package middleware

import (
	"github.com/labstack/echo/v4"
	"github.com/lyzr/recipes/common/logger"
)

// RequestContext copies the X-Request-ID header into the request context so
// logs written below the handler layer carry it. Run after echo's RequestID.
func RequestContext() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Response().Header().Get(echo.HeaderXRequestID)
			if id == "" {
				id = c.Request().Header.Get(echo.HeaderXRequestID)
			}
			if id != "" {
				req := c.Request()
				c.SetRequest(req.WithContext(logger.ContextWithRequestID(req.Context(), id)))
			}
			return next(c)
		}
	}
}
