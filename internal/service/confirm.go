package service

import (
	"context"
	"fmt"
	"log/slog"

	"storefront-payments/internal/apperr"
	"storefront-payments/internal/client"
	"storefront-payments/internal/dto"
	"storefront-payments/internal/logger"
	"storefront-payments/internal/model"
	"storefront-payments/internal/money"
	"storefront-payments/internal/repository"
)

type ConfirmService interface {
	ConfirmCharge(ctx context.Context, req *dto.ConfirmChargeRequest, idempotencyKey string) (*dto.ConfirmChargeResponse, error)
}

type confirmServiceImpl struct {
	log           *slog.Logger
	paymentClient client.PaymentClient
	retry         RetryPolicy
	transitioner  *OrderTransitioner
	orderRepo     repository.OrderRepository
	reconciler    Reconciler
}

func NewConfirmService(
	log *slog.Logger,
	paymentClient client.PaymentClient,
	retry RetryPolicy,
	transitioner *OrderTransitioner,
	orderRepo repository.OrderRepository,
	reconciler Reconciler,
) ConfirmService {
	return &confirmServiceImpl{
		log:           log,
		paymentClient: paymentClient,
		retry:         retry,
		transitioner:  transitioner,
		orderRepo:     orderRepo,
		reconciler:    reconciler,
	}
}

func (s *confirmServiceImpl) ConfirmCharge(ctx context.Context, req *dto.ConfirmChargeRequest, idempotencyKey string) (*dto.ConfirmChargeResponse, error) {
	if req.PaymentMethodID == "" {
		return nil, apperr.ValidationErr("Payment method is required")
	}
	if !req.Amount.Valid {
		return nil, apperr.ValidationErr("Amount is required")
	}
	if req.OrderID == "" {
		return nil, apperr.ValidationErr("Order ID is required")
	}

	order, err := s.orderRepo.FindByID(ctx, nil, req.OrderID)
	if repository.IsNotFound(err) {
		return nil, apperr.NotFoundErr("Order not found")
	}
	if err != nil {
		return nil, fmt.Errorf("find order: %w", err)
	}

	amountMinor, err := money.ToMinor(req.Amount.Decimal, order.Currency)
	if err != nil {
		return nil, apperr.ValidationErr("Amount must be greater than zero")
	}

	switch {
	case order.PaymentStatus == model.PaymentPaid:
		return &dto.ConfirmChargeResponse{PaymentIntentID: order.IntentID, Status: client.IntentSucceeded}, nil
	case order.OrderStatus == model.OrderCancelled:
		return nil, apperr.ConflictErr("Order is cancelled")
	case amountMinor != order.AmountMinor:
		return nil, apperr.ValidationErr("Amount does not match order")
	}

	if idempotencyKey == "" {
		idempotencyKey = fmt.Sprintf("confirm:%s:%s", order.ID, req.PaymentMethodID)
	}
	params := client.CreateIntentParams{
		AmountMinor:     order.AmountMinor,
		Currency:        order.Currency,
		PaymentMethodID: req.PaymentMethodID,
		ReceiptEmail:    order.CustomerID,
		Metadata:        map[string]string{model.MetadataOrderID: order.ID},
		IdempotencyKey:  idempotencyKey,
	}
	intent, err := withRetry(ctx, logger.FromContext(ctx, s.log), s.retry, "confirm charge", func(ctx context.Context) (*client.Intent, error) {
		return s.paymentClient.CreateIntent(ctx, params)
	})
	if err != nil {
		return nil, err
	}

	if intent.Status == client.IntentSucceeded {
		_, err := s.reconciler.RecordSucceeded(ctx, order.ID, PaymentFact{
			IntentID:        intent.ID,
			PaymentMethodID: req.PaymentMethodID,
			AmountMinor:     intent.AmountMinor,
			Currency:        intent.Currency,
		}, model.SourceConfirm)
		if err != nil {
			return nil, fmt.Errorf("record confirmed payment: %w", err)
		}
	} else {
		// requires_action / processing: the webhook finalises
		_, _, err := s.transitioner.Apply(ctx,
			byOrderID(s.orderRepo, order.ID),
			func(order model.Order) (outcome, error) {
				return attachIntent(order, intent.ID), nil
			},
			nil,
		)
		if err != nil {
			logger.FromContext(ctx, s.log).ErrorContext(ctx, "attach intent to order", "order_id", order.ID, "intent_id", intent.ID, "err", err)
		}
	}

	return &dto.ConfirmChargeResponse{
		PaymentIntentID: intent.ID,
		Status:          intent.Status,
	}, nil
}
