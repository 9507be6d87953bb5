package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"storefront-payments/internal/apperr"
	"storefront-payments/internal/client"
	"storefront-payments/internal/dto"
	"storefront-payments/internal/logger"
	"storefront-payments/internal/model"
	"storefront-payments/internal/repository"
)

const statusCancelRequested = "cancel_requested"

type SubscriptionService interface {
	Create(ctx context.Context, req *dto.CreateSubscriptionRequest, idempotencyKey string) (*dto.CreateSubscriptionResponse, error)
	// Cancel only asks the processor; the local row changes when the
	// deletion webhook arrives.
	Cancel(ctx context.Context, req *dto.CancelSubscriptionRequest) (*dto.CancelSubscriptionResponse, error)
}

type subscriptionServiceImpl struct {
	db               *gorm.DB
	log              *slog.Logger
	paymentClient    client.PaymentClient
	retry            RetryPolicy
	subscriptionRepo repository.SubscriptionRepository
	customerRepo     repository.CustomerRepository
}

func NewSubscriptionService(
	db *gorm.DB,
	log *slog.Logger,
	paymentClient client.PaymentClient,
	retry RetryPolicy,
	subscriptionRepo repository.SubscriptionRepository,
	customerRepo repository.CustomerRepository,
) SubscriptionService {
	return &subscriptionServiceImpl{
		db:               db,
		log:              log,
		paymentClient:    paymentClient,
		retry:            retry,
		subscriptionRepo: subscriptionRepo,
		customerRepo:     customerRepo,
	}
}

func (s *subscriptionServiceImpl) Create(ctx context.Context, req *dto.CreateSubscriptionRequest, idempotencyKey string) (*dto.CreateSubscriptionResponse, error) {
	if req.CustomerID == "" {
		return nil, apperr.ValidationErr("Customer ID is required")
	}
	if req.PriceID == "" {
		return nil, apperr.ValidationErr("Price ID is required")
	}

	// accept either the customer email or the processor id
	billingID := req.CustomerID
	if customer, err := s.customerRepo.FindByEmail(ctx, req.CustomerID); err == nil && customer.BillingID != "" {
		billingID = customer.BillingID
	}

	if idempotencyKey == "" {
		idempotencyKey = "subscription:" + uuid.NewString()
	}
	params := client.CreateSubscriptionParams{
		CustomerID:     billingID,
		PriceID:        req.PriceID,
		Metadata:       req.Metadata,
		IdempotencyKey: idempotencyKey,
	}
	billing, err := withRetry(ctx, logger.FromContext(ctx, s.log), s.retry, "create subscription", func(ctx context.Context) (*client.BillingSubscription, error) {
		return s.paymentClient.CreateSubscription(ctx, params)
	})
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := s.subscriptionRepo.InsertIfAbsent(ctx, tx, &model.Subscription{
			ID:                 billing.ID,
			CustomerID:         billingID,
			PriceID:            billing.PriceID,
			Status:             model.SubscriptionStatus(billing.Status),
			CurrentPeriodStart: model.EpochTime(billing.CurrentPeriodStart),
			CurrentPeriodEnd:   model.EpochTime(billing.CurrentPeriodEnd),
			CancelAtPeriodEnd:  billing.CancelAtPeriodEnd,
			SourceEventAt:      model.SnapshotFloor,
		})
		if err != nil {
			return fmt.Errorf("store subscription: %w", err)
		}

		customer, err := s.customerRepo.FindByBillingID(ctx, tx, billingID)
		if repository.IsNotFound(err) {
			logger.FromContext(ctx, s.log).WarnContext(ctx, "subscription for unknown customer", "billing_id", billingID, "subscription_id", billing.ID)
			return nil
		}
		if err != nil {
			return fmt.Errorf("find customer: %w", err)
		}
		return s.customerRepo.AddSubscription(ctx, tx, customer.ID, billing.ID)
	})
	if err != nil {
		return nil, err
	}

	resp := &dto.CreateSubscriptionResponse{
		Success:        true,
		SubscriptionID: billing.ID,
		Status:         billing.Status,
	}
	if billing.ClientSecret != "" {
		resp.ClientSecret = &billing.ClientSecret
	}
	return resp, nil
}

func (s *subscriptionServiceImpl) Cancel(ctx context.Context, req *dto.CancelSubscriptionRequest) (*dto.CancelSubscriptionResponse, error) {
	if req.SubscriptionID == "" {
		return nil, apperr.ValidationErr("Subscription ID is required")
	}

	_, err := withRetry(ctx, logger.FromContext(ctx, s.log), s.retry, "cancel subscription", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.paymentClient.CancelSubscription(ctx, req.SubscriptionID)
	})
	if err != nil {
		return nil, err
	}

	return &dto.CancelSubscriptionResponse{
		Success:        true,
		SubscriptionID: req.SubscriptionID,
		Status:         statusCancelRequested,
	}, nil
}
