package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"storefront-payments/internal/apperr"
	"storefront-payments/internal/client"
	"storefront-payments/internal/dto"
	"storefront-payments/internal/logger"
	"storefront-payments/internal/model"
	"storefront-payments/internal/money"
	"storefront-payments/internal/repository"
)

type IntentService interface {
	// CreateIntent issues a charge attempt. idempotencyKey may be empty, in
	// which case one is generated and shared by every retry of this call.
	CreateIntent(ctx context.Context, req *dto.CreateIntentRequest, idempotencyKey string) (*dto.CreateIntentResponse, error)
}

type intentServiceImpl struct {
	log           *slog.Logger
	paymentClient client.PaymentClient
	retry         RetryPolicy
	transitioner  *OrderTransitioner
	orderRepo     repository.OrderRepository
	reconciler    Reconciler
}

func NewIntentService(
	log *slog.Logger,
	paymentClient client.PaymentClient,
	retry RetryPolicy,
	transitioner *OrderTransitioner,
	orderRepo repository.OrderRepository,
	reconciler Reconciler,
) IntentService {
	return &intentServiceImpl{
		log:           log,
		paymentClient: paymentClient,
		retry:         retry,
		transitioner:  transitioner,
		orderRepo:     orderRepo,
		reconciler:    reconciler,
	}
}

func (s *intentServiceImpl) CreateIntent(ctx context.Context, req *dto.CreateIntentRequest, idempotencyKey string) (*dto.CreateIntentResponse, error) {
	if !req.Amount.Valid {
		return nil, apperr.ValidationErr("Amount is required")
	}
	currency := money.NormalizeCurrency(req.Currency)
	amountMinor, err := money.ToMinor(req.Amount.Decimal, currency)
	if err != nil {
		return nil, apperr.ValidationErr("Amount must be greater than zero")
	}

	metadata := make(map[string]string, len(req.Metadata))
	for k, v := range req.Metadata {
		metadata[k] = v
	}
	if idempotencyKey == "" {
		idempotencyKey = "intent:" + uuid.NewString()
	}

	params := client.CreateIntentParams{
		AmountMinor:     amountMinor,
		Currency:        currency,
		PaymentMethodID: req.PaymentMethodID,
		ReceiptEmail:    req.ReceiptEmail,
		Metadata:        metadata,
		IdempotencyKey:  idempotencyKey,
	}
	intent, err := withRetry(ctx, logger.FromContext(ctx, s.log), s.retry, "create intent", func(ctx context.Context) (*client.Intent, error) {
		return s.paymentClient.CreateIntent(ctx, params)
	})
	if err != nil {
		return nil, err
	}

	if orderID := metadata[model.MetadataOrderID]; orderID != "" {
		s.attach(ctx, orderID, intent.ID)
	}

	return &dto.CreateIntentResponse{
		ClientSecret: intent.ClientSecret,
		ID:           intent.ID,
	}, nil
}

// attach records the new intent on its order. The intent already exists at
// the processor, so failures here are logged and left to the webhook path.
func (s *intentServiceImpl) attach(ctx context.Context, orderID, intentID string) {
	log := logger.FromContext(ctx, s.log).With("order_id", orderID, "intent_id", intentID)

	_, out, err := s.transitioner.Apply(ctx,
		byOrderID(s.orderRepo, orderID),
		func(order model.Order) (outcome, error) {
			return attachIntent(order, intentID), nil
		},
		nil,
	)
	switch {
	case errors.Is(err, errOrderMissing):
		log.DebugContext(ctx, "intent created for order not stored yet")
		return
	case err != nil:
		log.ErrorContext(ctx, "attach intent to order", "err", err)
		return
	case out.note != "":
		log.WarnContext(ctx, "intent not attached", "reason", out.note)
	}

	if err := s.reconciler.AdoptOrphans(ctx, orderID, intentID); err != nil {
		log.ErrorContext(ctx, "adopt orphan payments", "err", err)
	}
}
