package handler

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"storefront-payments/internal/apperr"
	"storefront-payments/internal/client"
	"storefront-payments/internal/dto"
	"storefront-payments/internal/service"
)

// IdempotencyHeader lets callers pin the processor idempotency key so their
// own retries never create a second intent.
const IdempotencyHeader = "Idempotency-Key"

type PaymentHandler struct {
	intentService  service.IntentService
	confirmService service.ConfirmService
	webhookService service.WebhookService
}

func NewPaymentHandler(intentService service.IntentService, confirmService service.ConfirmService, webhookService service.WebhookService) *PaymentHandler {
	return &PaymentHandler{
		intentService:  intentService,
		confirmService: confirmService,
		webhookService: webhookService,
	}
}

func (h *PaymentHandler) CreateIntent(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.CreateIntentRequest
	if err := c.Bind(&req); err != nil {
		return apperr.ValidationErr("invalid request body")
	}

	result, err := h.intentService.CreateIntent(ctx, &req, c.Request().Header.Get(IdempotencyHeader))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}

func (h *PaymentHandler) ConfirmCharge(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.ConfirmChargeRequest
	if err := c.Bind(&req); err != nil {
		return apperr.ValidationErr("invalid request body")
	}

	result, err := h.confirmService.ConfirmCharge(ctx, &req, c.Request().Header.Get(IdempotencyHeader))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}

// Webhook must see the raw body: the signature covers the exact bytes.
func (h *PaymentHandler) Webhook(c echo.Context) error {
	ctx := c.Request().Context()

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.String(http.StatusBadRequest, "Webhook Error: unreadable body")
	}

	err = h.webhookService.Receive(ctx, body, c.Request().Header.Get(client.SignatureHeader))
	if ae, ok := apperr.As(err); ok && ae.Kind == apperr.Integrity {
		msg := ae.PublicMsg
		if ae.Err != nil {
			msg = ae.Err.Error()
		}
		return c.String(http.StatusBadRequest, "Webhook Error: "+msg)
	}
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, dto.WebhookResponse{Received: true})
}
