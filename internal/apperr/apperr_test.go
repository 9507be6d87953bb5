package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"validation", ValidationErr("Amount is required"), http.StatusBadRequest},
		{"integrity", IntegrityErr(errors.New("bad sig")), http.StatusBadRequest},
		{"not found", NotFoundErr("Order not found"), http.StatusNotFound},
		{"processor", ProcessorErr("card declined", nil), http.StatusPaymentRequired},
		{"conflict", ConflictErr("order already paid"), http.StatusConflict},
		{"transient", TransientErr(errors.New("timeout")), http.StatusInternalServerError},
		{"plain", errors.New("boom"), http.StatusInternalServerError},
		{"wrapped", fmt.Errorf("create intent: %w", ValidationErr("x")), http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, HTTPStatus(tc.err))
		})
	}
}

func TestPublicMessage(t *testing.T) {
	assert.Equal(t, "Order not found", PublicMessage(fmt.Errorf("x: %w", NotFoundErr("Order not found"))))
	assert.Equal(t, "internal server error", PublicMessage(errors.New("db down")))
	assert.Equal(t, "internal server error", PublicMessage(Wrap(errors.New("db down"))))
}

func TestIs(t *testing.T) {
	err := fmt.Errorf("charge: %w", TransientErr(errors.New("reset")))
	assert.True(t, Is(err, Transient))
	assert.False(t, Is(err, Processor))
	assert.Contains(t, ReconciliationWarning("order %s missing", "ORD-1").Error(), "ORD-1")
}
