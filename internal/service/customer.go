package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"storefront-payments/internal/apperr"
	"storefront-payments/internal/client"
	"storefront-payments/internal/dto"
	"storefront-payments/internal/logger"
	"storefront-payments/internal/model"
	"storefront-payments/internal/repository"
)

type CustomerService interface {
	Upsert(ctx context.Context, req *dto.UpsertCustomerRequest) (*dto.UpsertCustomerResponse, error)
}

type customerServiceImpl struct {
	log           *slog.Logger
	paymentClient client.PaymentClient
	retry         RetryPolicy
	customerRepo  repository.CustomerRepository
}

func NewCustomerService(log *slog.Logger, paymentClient client.PaymentClient, retry RetryPolicy, customerRepo repository.CustomerRepository) CustomerService {
	return &customerServiceImpl{
		log:           log,
		paymentClient: paymentClient,
		retry:         retry,
		customerRepo:  customerRepo,
	}
}

func (s *customerServiceImpl) Upsert(ctx context.Context, req *dto.UpsertCustomerRequest) (*dto.UpsertCustomerResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, apperr.ValidationErr("Email is required")
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, apperr.ValidationErr("Name is required")
	}

	billingID, err := s.resolveBillingID(ctx, email, req.Name)
	if err != nil {
		return nil, err
	}

	if err := s.customerRepo.Upsert(ctx, &model.Customer{
		ID:        email,
		Name:      req.Name,
		BillingID: billingID,
	}); err != nil {
		return nil, fmt.Errorf("store customer: %w", err)
	}

	if req.PaymentMethodID != "" {
		if err := s.attachDefault(ctx, email, billingID, req.PaymentMethodID); err != nil {
			return nil, err
		}
	}

	return &dto.UpsertCustomerResponse{
		Success:    true,
		CustomerID: billingID,
	}, nil
}

// resolveBillingID finds the processor customer by local row, then by
// processor lookup, and creates one only when both miss.
func (s *customerServiceImpl) resolveBillingID(ctx context.Context, email, name string) (string, error) {
	local, err := s.customerRepo.FindByEmail(ctx, email)
	if err == nil && local.BillingID != "" {
		return local.BillingID, nil
	}
	if err != nil && !repository.IsNotFound(err) {
		return "", fmt.Errorf("find customer: %w", err)
	}

	found, err := withRetry(ctx, logger.FromContext(ctx, s.log), s.retry, "find customer", func(ctx context.Context) (*client.BillingCustomer, error) {
		return s.paymentClient.FindCustomerByEmail(ctx, email)
	})
	if err != nil {
		return "", err
	}
	if found != nil {
		return found.ID, nil
	}

	created, err := withRetry(ctx, logger.FromContext(ctx, s.log), s.retry, "create customer", func(ctx context.Context) (*client.BillingCustomer, error) {
		return s.paymentClient.CreateCustomer(ctx, email, name)
	})
	if err != nil {
		return "", err
	}
	return created.ID, nil
}

func (s *customerServiceImpl) attachDefault(ctx context.Context, email, billingID, paymentMethodID string) error {
	_, err := withRetry(ctx, logger.FromContext(ctx, s.log), s.retry, "attach payment method", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.paymentClient.AttachPaymentMethod(ctx, paymentMethodID, billingID)
	})
	if err != nil {
		return err
	}
	_, err = withRetry(ctx, logger.FromContext(ctx, s.log), s.retry, "set default payment method", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.paymentClient.SetDefaultPaymentMethod(ctx, billingID, paymentMethodID)
	})
	if err != nil {
		return err
	}

	if err := s.customerRepo.AddPaymentMethod(ctx, email, paymentMethodID); err != nil {
		return fmt.Errorf("store payment method: %w", err)
	}
	if err := s.customerRepo.SetDefaultPaymentMethod(ctx, email, paymentMethodID); err != nil {
		return fmt.Errorf("store default payment method: %w", err)
	}
	return nil
}
