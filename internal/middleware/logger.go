package middleware

import (
	"log/slog"

	"github.com/labstack/echo/v4"

	"storefront-payments/internal/logger"
)

// ContextLogger stores a logger carrying the request id in the request
// context. It must run after echo's RequestID middleware.
func ContextLogger(base *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			requestID := c.Response().Header().Get(echo.HeaderXRequestID)
			log := base.With("request_id", requestID)

			req := c.Request()
			c.SetRequest(req.WithContext(logger.WithContext(req.Context(), log)))
			return next(c)
		}
	}
}
