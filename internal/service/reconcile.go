package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"storefront-payments/internal/apperr"
	"storefront-payments/internal/clock"
	"storefront-payments/internal/logger"
	"storefront-payments/internal/model"
	"storefront-payments/internal/repository"
)

// Reconciler applies processor events to orders, customers and
// subscriptions. Every handler is idempotent and converges regardless of
// delivery order.
type Reconciler interface {
	Handle(ctx context.Context, event model.Event) error
	// RecordSucceeded applies a succeeded intent to its order. It returns a
	// nil order when the payment was parked as an orphan.
	RecordSucceeded(ctx context.Context, orderID string, fact PaymentFact, source model.PaymentSource) (*model.Order, error)
	// AdoptOrphans links parked payments that name orderID or intentID.
	AdoptOrphans(ctx context.Context, orderID, intentID string) error
}

type reconcilerImpl struct {
	db            *gorm.DB
	log           *slog.Logger
	clock         clock.Clock
	transitioner  *OrderTransitioner
	orderRepo     repository.OrderRepository
	paymentRepo   repository.PaymentRepository
	orphanRepo    repository.OrphanPaymentRepository
	customerRepo  repository.CustomerRepository
	subscriptions repository.SubscriptionRepository
}

func NewReconciler(
	db *gorm.DB,
	log *slog.Logger,
	clk clock.Clock,
	orderRepo repository.OrderRepository,
	paymentRepo repository.PaymentRepository,
	orphanRepo repository.OrphanPaymentRepository,
	customerRepo repository.CustomerRepository,
	subscriptionRepo repository.SubscriptionRepository,
) Reconciler {
	return &reconcilerImpl{
		db:            db,
		log:           log,
		clock:         clk,
		transitioner:  NewOrderTransitioner(db, orderRepo, clk),
		orderRepo:     orderRepo,
		paymentRepo:   paymentRepo,
		orphanRepo:    orphanRepo,
		customerRepo:  customerRepo,
		subscriptions: subscriptionRepo,
	}
}

func (r *reconcilerImpl) Handle(ctx context.Context, event model.Event) error {
	switch ev := event.(type) {
	case model.PaymentSucceededEvent:
		_, err := r.RecordSucceeded(ctx, ev.OrderID, PaymentFact{
			EventID:         ev.ID,
			IntentID:        ev.IntentID,
			PaymentMethodID: ev.PaymentMethodID,
			AmountMinor:     ev.AmountMinor,
			Currency:        ev.Currency,
		}, model.SourceWebhook)
		return err
	case model.PaymentFailedEvent:
		return r.handlePaymentFailed(ctx, ev)
	case model.SubscriptionCreated:
		return r.upsertSubscription(ctx, ev.EventMeta, ev.Subscription)
	case model.SubscriptionUpdated:
		return r.upsertSubscription(ctx, ev.EventMeta, ev.Subscription)
	case model.SubscriptionDeleted:
		return r.deleteSubscription(ctx, ev.EventMeta, ev.Subscription)
	case model.Unknown:
		logger.FromContext(ctx, r.log).InfoContext(ctx, "ignoring unhandled event type", "event_id", ev.ID, "type", ev.Type)
		return nil
	default:
		return fmt.Errorf("unsupported event %T", event)
	}
}

func (r *reconcilerImpl) RecordSucceeded(ctx context.Context, orderID string, fact PaymentFact, source model.PaymentSource) (*model.Order, error) {
	log := logger.FromContext(ctx, r.log).With("event_id", fact.EventID, "order_id", orderID, "intent_id", fact.IntentID)

	order, out, err := r.transitioner.Apply(ctx,
		byOrderOrIntent(r.orderRepo, orderID, fact.IntentID),
		func(order model.Order) (outcome, error) {
			return applyPaymentSucceeded(order, fact, r.clock.Now()), nil
		},
		func(ctx context.Context, tx *gorm.DB, order *model.Order, out outcome) error {
			return r.recordPayment(ctx, tx, log, order, fact, source, out)
		},
	)

	if errors.Is(err, errOrderMissing) {
		return nil, r.parkOrphan(ctx, log, orderID, fact)
	}
	if err != nil {
		return nil, err
	}

	switch out.note {
	case notePaidAfterCancel, noteAmountMismatch:
		log.WarnContext(ctx, out.note, "amount_minor", fact.AmountMinor, "order_amount_minor", order.AmountMinor)
	case noteAlreadyPaid:
		log.DebugContext(ctx, "payment already applied")
	}
	return order, nil
}

func (r *reconcilerImpl) recordPayment(
	ctx context.Context,
	tx *gorm.DB,
	log *slog.Logger,
	order *model.Order,
	fact PaymentFact,
	source model.PaymentSource,
	out outcome,
) error {
	if fact.IntentID == "" {
		return nil
	}

	amount, currency := fact.AmountMinor, fact.Currency
	if amount == 0 {
		amount = order.AmountMinor
	}
	if currency == "" {
		currency = order.Currency
	}

	created, err := r.paymentRepo.Record(ctx, tx, &model.Payment{
		ID:          uuid.NewString(),
		OrderID:     order.ID,
		IntentID:    fact.IntentID,
		AmountMinor: amount,
		Currency:    currency,
		Source:      source,
		CreatedAt:   r.clock.Now(),
	})
	if err != nil {
		return fmt.Errorf("record payment: %w", err)
	}

	if created && !out.changed && order.IntentID != fact.IntentID {
		log.WarnContext(ctx, "second intent succeeded for paid order", "paid_intent_id", order.IntentID)
	}

	if source == model.SourceOrphan {
		if _, err := r.orphanRepo.MarkLinked(ctx, tx, fact.IntentID, order.ID, r.clock.Now()); err != nil {
			return fmt.Errorf("link orphan payment: %w", err)
		}
	}
	return nil
}

// parkOrphan stores a payment whose order is unknown, then retries adoption
// in case the order was created concurrently.
func (r *reconcilerImpl) parkOrphan(ctx context.Context, log *slog.Logger, orderID string, fact PaymentFact) error {
	err := r.orphanRepo.Record(ctx, nil, &model.OrphanPayment{
		IntentID:        fact.IntentID,
		OrderID:         orderID,
		AmountMinor:     fact.AmountMinor,
		Currency:        fact.Currency,
		PaymentMethodID: fact.PaymentMethodID,
		EventID:         fact.EventID,
		ReceivedAt:      r.clock.Now(),
	})
	if err != nil {
		return fmt.Errorf("record orphan payment: %w", err)
	}

	warn := apperr.ReconciliationWarning("payment for unknown order, parked for linking")
	log.WarnContext(ctx, warn.Error())

	return r.AdoptOrphans(ctx, orderID, fact.IntentID)
}

func (r *reconcilerImpl) AdoptOrphans(ctx context.Context, orderID, intentID string) error {
	orphans, err := r.orphanRepo.FindUnlinked(ctx, nil, orderID, intentID)
	if err != nil {
		return fmt.Errorf("find orphan payments: %w", err)
	}

	for _, orphan := range orphans {
		fact := PaymentFact{
			EventID:         orphan.EventID,
			IntentID:        orphan.IntentID,
			PaymentMethodID: orphan.PaymentMethodID,
			AmountMinor:     orphan.AmountMinor,
			Currency:        orphan.Currency,
		}

		target := orphan.OrderID
		if target == "" {
			target = orderID
		}

		_, _, err := r.transitioner.Apply(ctx,
			byOrderOrIntent(r.orderRepo, target, orphan.IntentID),
			func(order model.Order) (outcome, error) {
				return applyPaymentSucceeded(order, fact, r.clock.Now()), nil
			},
			func(ctx context.Context, tx *gorm.DB, order *model.Order, out outcome) error {
				return r.recordPayment(ctx, tx, logger.FromContext(ctx, r.log), order, fact, model.SourceOrphan, out)
			},
		)
		if errors.Is(err, errOrderMissing) {
			continue
		}
		if err != nil {
			return err
		}
		logger.FromContext(ctx, r.log).InfoContext(ctx, "orphan payment linked", "intent_id", orphan.IntentID, "order_id", target)
	}
	return nil
}

func (r *reconcilerImpl) handlePaymentFailed(ctx context.Context, ev model.PaymentFailedEvent) error {
	log := logger.FromContext(ctx, r.log).With("event_id", ev.ID, "order_id", ev.OrderID, "intent_id", ev.IntentID)
	fact := PaymentFact{EventID: ev.ID, IntentID: ev.IntentID}

	_, out, err := r.transitioner.Apply(ctx,
		byOrderOrIntent(r.orderRepo, ev.OrderID, ev.IntentID),
		func(order model.Order) (outcome, error) {
			return applyPaymentFailed(order, fact, ev.Reason), nil
		},
		nil,
	)

	if errors.Is(err, errOrderMissing) {
		log.WarnContext(ctx, apperr.ReconciliationWarning("payment failure for unknown order").Error())
		return nil
	}
	if err != nil {
		return err
	}
	if !out.changed {
		log.InfoContext(ctx, "ignoring stale payment failure", "reason", out.note)
	}
	return nil
}

func snapshotRow(meta model.EventMeta, snap model.SubscriptionSnapshot) *model.Subscription {
	return &model.Subscription{
		ID:                 snap.ID,
		CustomerID:         snap.CustomerID,
		PriceID:            snap.PriceID,
		Status:             snap.Status,
		CurrentPeriodStart: snap.CurrentPeriodStart,
		CurrentPeriodEnd:   snap.CurrentPeriodEnd,
		CancelAtPeriodEnd:  snap.CancelAtPeriodEnd,
		CanceledAt:         snap.CanceledAt,
		SourceEventAt:      meta.Created,
	}
}

func (r *reconcilerImpl) upsertSubscription(ctx context.Context, meta model.EventMeta, snap model.SubscriptionSnapshot) error {
	log := logger.FromContext(ctx, r.log).With("event_id", meta.ID, "type", meta.Type, "subscription_id", snap.ID)
	row := snapshotRow(meta, snap)

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.subscriptions.InsertIfAbsent(ctx, tx, row); err != nil {
			return fmt.Errorf("insert subscription: %w", err)
		}

		applied, err := r.subscriptions.ApplySnapshot(ctx, tx, row, r.clock.Now())
		if err != nil {
			return fmt.Errorf("apply subscription snapshot: %w", err)
		}
		if !applied {
			log.InfoContext(ctx, "ignoring stale subscription event")
			return nil
		}

		if row.Status == model.SubscriptionCanceled {
			return r.customerRepo.RemoveSubscription(ctx, tx, row.ID)
		}
		customer, err := r.customerRepo.FindByBillingID(ctx, tx, row.CustomerID)
		if repository.IsNotFound(err) {
			log.WarnContext(ctx, "subscription for unknown customer", "billing_id", row.CustomerID)
			return nil
		}
		if err != nil {
			return fmt.Errorf("find customer: %w", err)
		}
		return r.customerRepo.AddSubscription(ctx, tx, customer.ID, row.ID)
	})
}

func (r *reconcilerImpl) deleteSubscription(ctx context.Context, meta model.EventMeta, snap model.SubscriptionSnapshot) error {
	row := snapshotRow(meta, snap)
	row.Status = model.SubscriptionCanceled
	if row.CanceledAt == nil {
		at := meta.Created
		row.CanceledAt = &at
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.subscriptions.InsertIfAbsent(ctx, tx, row); err != nil {
			return fmt.Errorf("insert subscription: %w", err)
		}
		if err := r.subscriptions.MarkCanceled(ctx, tx, row, r.clock.Now()); err != nil {
			return fmt.Errorf("cancel subscription: %w", err)
		}
		if err := r.customerRepo.RemoveSubscription(ctx, tx, row.ID); err != nil {
			return fmt.Errorf("remove customer subscription: %w", err)
		}
		return nil
	})
}
