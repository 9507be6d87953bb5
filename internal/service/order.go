package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"storefront-payments/internal/apperr"
	"storefront-payments/internal/clock"
	"storefront-payments/internal/dto"
	"storefront-payments/internal/logger"
	"storefront-payments/internal/model"
	"storefront-payments/internal/money"
	"storefront-payments/internal/repository"
)

type OrderService interface {
	Create(ctx context.Context, req *dto.CreateOrderRequest) (*dto.Order, error)
	Get(ctx context.Context, orderID string) (*dto.Order, error)
	Cancel(ctx context.Context, orderID string) (*dto.Order, error)
}

type orderServiceImpl struct {
	log          *slog.Logger
	clock        clock.Clock
	transitioner *OrderTransitioner
	orderRepo    repository.OrderRepository
	reconciler   Reconciler
}

func NewOrderService(
	log *slog.Logger,
	clk clock.Clock,
	transitioner *OrderTransitioner,
	orderRepo repository.OrderRepository,
	reconciler Reconciler,
) OrderService {
	return &orderServiceImpl{
		log:          log,
		clock:        clk,
		transitioner: transitioner,
		orderRepo:    orderRepo,
		reconciler:   reconciler,
	}
}

func (s *orderServiceImpl) Create(ctx context.Context, req *dto.CreateOrderRequest) (*dto.Order, error) {
	if !req.Amount.Valid {
		return nil, apperr.ValidationErr("Amount is required")
	}
	currency := money.NormalizeCurrency(req.Currency)
	amountMinor, err := money.ToMinor(req.Amount.Decimal, currency)
	if err != nil {
		return nil, apperr.ValidationErr("Amount must be greater than zero")
	}

	orderID := strings.TrimSpace(req.OrderID)
	if orderID == "" {
		orderID = "ORD-" + strings.ToUpper(uuid.NewString()[:8])
	}

	metadata := datatypes.JSONMap{}
	for k, v := range req.Metadata {
		metadata[k] = v
	}
	metadata[model.MetadataOrderID] = orderID

	now := s.clock.Now()
	order := &model.Order{
		ID:            orderID,
		CustomerID:    strings.ToLower(strings.TrimSpace(req.CustomerEmail)),
		AmountMinor:   amountMinor,
		Currency:      currency,
		PaymentStatus: model.PaymentPending,
		OrderStatus:   model.OrderPending,
		Metadata:      metadata,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.orderRepo.Create(ctx, nil, order); err != nil {
		if repository.IsDuplicate(err) {
			return nil, apperr.ConflictErr("Order already exists")
		}
		return nil, fmt.Errorf("store order: %w", err)
	}

	// a payment may have arrived before checkout stored the order
	if err := s.reconciler.AdoptOrphans(ctx, orderID, ""); err != nil {
		logger.FromContext(ctx, s.log).ErrorContext(ctx, "adopt orphan payments", "order_id", orderID, "err", err)
	}

	return s.Get(ctx, orderID)
}

func (s *orderServiceImpl) Get(ctx context.Context, orderID string) (*dto.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, nil, orderID)
	if repository.IsNotFound(err) {
		return nil, apperr.NotFoundErr("Order not found")
	}
	if err != nil {
		return nil, fmt.Errorf("find order: %w", err)
	}
	return ToOrderDTO(order), nil
}

func (s *orderServiceImpl) Cancel(ctx context.Context, orderID string) (*dto.Order, error) {
	order, _, err := s.transitioner.Apply(ctx, byOrderID(s.orderRepo, orderID), cancelOrder, nil)
	if errors.Is(err, errOrderMissing) {
		return nil, apperr.NotFoundErr("Order not found")
	}
	if err != nil {
		return nil, err
	}
	return ToOrderDTO(order), nil
}

func ToOrderDTO(order *model.Order) *dto.Order {
	var metadata map[string]string
	if len(order.Metadata) > 0 {
		metadata = make(map[string]string, len(order.Metadata))
		for k, v := range order.Metadata {
			metadata[k] = fmt.Sprint(v)
		}
	}

	return &dto.Order{
		ID:              order.ID,
		CustomerID:      order.CustomerID,
		Amount:          money.FromMinor(order.AmountMinor, order.Currency).InexactFloat64(),
		Currency:        order.Currency,
		PaymentStatus:   string(order.PaymentStatus),
		OrderStatus:     string(order.OrderStatus),
		IntentID:        order.IntentID,
		PaymentMethodID: order.PaymentMethodID,
		FailureReason:   order.FailureReason,
		Metadata:        metadata,
		PaidAt:          order.PaidAt,
		CreatedAt:       order.CreatedAt,
		UpdatedAt:       order.UpdatedAt,
	}
}
