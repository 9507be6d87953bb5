package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	Validation     Kind = "validation"
	NotFound       Kind = "not_found"
	Processor      Kind = "processor"
	Transient      Kind = "transient"
	Integrity      Kind = "integrity"
	Conflict       Kind = "conflict"
	Reconciliation Kind = "reconciliation"
	Internal       Kind = "internal"
)

type AppError struct {
	Kind      Kind
	PublicMsg string // safe to return to the caller
	Err       error
}

func (e *AppError) Error() string {
	switch {
	case e.Err != nil && e.PublicMsg != "":
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.PublicMsg, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.PublicMsg != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.PublicMsg)
	}
	return string(e.Kind)
}

func (e *AppError) Unwrap() error { return e.Err }

func ValidationErr(publicMsg string) *AppError {
	return &AppError{Kind: Validation, PublicMsg: publicMsg}
}

func NotFoundErr(publicMsg string) *AppError {
	return &AppError{Kind: NotFound, PublicMsg: publicMsg}
}

func ConflictErr(publicMsg string) *AppError {
	return &AppError{Kind: Conflict, PublicMsg: publicMsg}
}

// ProcessorErr carries a processor rejection (decline, invalid instrument).
// The message is surfaced to the caller verbatim.
func ProcessorErr(publicMsg string, err error) *AppError {
	return &AppError{Kind: Processor, PublicMsg: publicMsg, Err: err}
}

func TransientErr(err error) *AppError {
	return &AppError{Kind: Transient, PublicMsg: "payment processor unavailable", Err: err}
}

func IntegrityErr(err error) *AppError {
	return &AppError{Kind: Integrity, PublicMsg: "invalid webhook signature", Err: err}
}

func ReconciliationWarning(format string, args ...any) *AppError {
	return &AppError{Kind: Reconciliation, Err: fmt.Errorf(format, args...)}
}

// Wrap marks an unexpected error as internal (500) without a public message.
func Wrap(err error) *AppError {
	if err == nil {
		return nil
	}
	if ae, ok := As(err); ok {
		return ae
	}
	return &AppError{Kind: Internal, Err: err}
}

func As(err error) (*AppError, bool) {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

func Is(err error, kind Kind) bool {
	ae, ok := As(err)
	return ok && ae.Kind == kind
}

func HTTPStatus(err error) int {
	if ae, ok := As(err); ok {
		switch ae.Kind {
		case Validation, Integrity:
			return http.StatusBadRequest
		case NotFound:
			return http.StatusNotFound
		case Processor:
			return http.StatusPaymentRequired
		case Conflict:
			return http.StatusConflict
		default:
			return http.StatusInternalServerError
		}
	}
	return http.StatusInternalServerError
}

func PublicMessage(err error) string {
	if ae, ok := As(err); ok && ae.PublicMsg != "" {
		return ae.PublicMsg
	}
	return "internal server error"
}
