package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"storefront-payments/internal/apperr"
	"storefront-payments/internal/dto"
	"storefront-payments/internal/logger"
)

// ErrorHandler renders every returned error as {"error": msg} with the
// status of its apperr kind. Echo's own errors keep their code.
func ErrorHandler(log *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := apperr.HTTPStatus(err)
		msg := apperr.PublicMessage(err)

		var he *echo.HTTPError
		if errors.As(err, &he) {
			status = he.Code
			msg = fmt.Sprint(he.Message)
			if m, ok := he.Message.(string); ok {
				msg = m
			}
		}

		l := logger.FromContext(c.Request().Context(), log)
		if status >= http.StatusInternalServerError {
			l.ErrorContext(c.Request().Context(), "request failed", "status", status, "err", err)
		} else {
			l.InfoContext(c.Request().Context(), "request rejected", "status", status, "err", err)
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, dto.ErrorResponse{Error: msg})
		}
		if err != nil {
			l.ErrorContext(c.Request().Context(), "write error response", "err", err)
		}
	}
}
