package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"storefront-payments/internal/apperr"
	"storefront-payments/internal/dto"
	"storefront-payments/internal/service"
)

type SubscriptionHandler struct {
	subscriptionService service.SubscriptionService
}

func NewSubscriptionHandler(subscriptionService service.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{subscriptionService: subscriptionService}
}

func (h *SubscriptionHandler) Create(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.CreateSubscriptionRequest
	if err := c.Bind(&req); err != nil {
		return apperr.ValidationErr("invalid request body")
	}

	result, err := h.subscriptionService.Create(ctx, &req, c.Request().Header.Get(IdempotencyHeader))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}

func (h *SubscriptionHandler) Cancel(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.CancelSubscriptionRequest
	if err := c.Bind(&req); err != nil {
		return apperr.ValidationErr("invalid request body")
	}

	result, err := h.subscriptionService.Cancel(ctx, &req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}
