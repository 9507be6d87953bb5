package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"storefront-payments/internal/apperr"
	"storefront-payments/internal/dto"
	"storefront-payments/internal/service"
)

type CustomerHandler struct {
	customerService service.CustomerService
}

func NewCustomerHandler(customerService service.CustomerService) *CustomerHandler {
	return &CustomerHandler{customerService: customerService}
}

func (h *CustomerHandler) Upsert(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.UpsertCustomerRequest
	if err := c.Bind(&req); err != nil {
		return apperr.ValidationErr("invalid request body")
	}

	result, err := h.customerService.Upsert(ctx, &req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}
