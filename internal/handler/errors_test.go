package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"storefront-payments/internal/apperr"
)

func TestErrorHandler(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{"validation", apperr.ValidationErr("Amount is required"), http.StatusBadRequest, `{"error":"Amount is required"}`},
		{"not found", apperr.NotFoundErr("Order not found"), http.StatusNotFound, `{"error":"Order not found"}`},
		{"processor", apperr.ProcessorErr("Your card was declined.", errors.New("card_declined")), http.StatusPaymentRequired, `{"error":"Your card was declined."}`},
		{"transient", apperr.TransientErr(errors.New("dial tcp: timeout")), http.StatusInternalServerError, `{"error":"payment processor unavailable"}`},
		{"internal hides detail", errors.New("sql: connection refused"), http.StatusInternalServerError, `{"error":"internal server error"}`},
		{"echo error", echo.NewHTTPError(http.StatusMethodNotAllowed, "Method Not Allowed"), http.StatusMethodNotAllowed, `{"error":"Method Not Allowed"}`},
	}

	h := ErrorHandler(slog.New(slog.NewTextHandler(io.Discard, nil)))
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec)

			h(tc.err, c)

			assert.Equal(t, tc.status, rec.Code)
			assert.JSONEq(t, tc.body, rec.Body.String())
		})
	}
}
