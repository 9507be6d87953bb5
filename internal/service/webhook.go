package service

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/datatypes"

	"storefront-payments/internal/apperr"
	"storefront-payments/internal/client"
	"storefront-payments/internal/clock"
	"storefront-payments/internal/logger"
	"storefront-payments/internal/model"
	"storefront-payments/internal/repository"
)

type WebhookService interface {
	// Receive verifies and dispatches one delivery. It fails only when the
	// signature is rejected or the ledger cannot be written; handler errors
	// are recorded on the ledger row and swallowed.
	Receive(ctx context.Context, payload []byte, signature string) error
	// Replay re-dispatches a stored event that was never marked processed.
	Replay(ctx context.Context, eventID string) error
}

type webhookServiceImpl struct {
	log              *slog.Logger
	clock            clock.Clock
	verifier         client.WebhookVerifier
	webhookEventRepo repository.WebhookEventRepository
	reconciler       Reconciler
}

func NewWebhookService(
	log *slog.Logger,
	clk clock.Clock,
	verifier client.WebhookVerifier,
	webhookEventRepo repository.WebhookEventRepository,
	reconciler Reconciler,
) WebhookService {
	return &webhookServiceImpl{
		log:              log,
		clock:            clk,
		verifier:         verifier,
		webhookEventRepo: webhookEventRepo,
		reconciler:       reconciler,
	}
}

func (s *webhookServiceImpl) Receive(ctx context.Context, payload []byte, signature string) error {
	log := logger.FromContext(ctx, s.log)

	event, err := s.verifier.Verify(payload, signature)
	if apperr.Is(err, apperr.Integrity) {
		log.WarnContext(ctx, "webhook signature rejected", "security", true, "err", err)
		return err
	}
	if err != nil {
		// signed by the processor but not decodable; redelivery would not help
		log.ErrorContext(ctx, "undecodable webhook payload", "err", err)
		return nil
	}

	meta := event.Meta()
	log = log.With("event_id", meta.ID, "type", meta.Type)

	inserted, err := s.webhookEventRepo.Insert(ctx, &model.PaymentEvent{
		EventID:    meta.ID,
		EventType:  meta.Type,
		Payload:    datatypes.JSON(payload),
		ReceivedAt: s.clock.Now(),
	})
	if err != nil {
		return apperr.Wrap(fmt.Errorf("insert webhook event: %w", err))
	}
	if !inserted {
		log.InfoContext(ctx, "duplicate webhook event")
		return nil
	}

	s.process(ctx, log, event)
	return nil
}

func (s *webhookServiceImpl) Replay(ctx context.Context, eventID string) error {
	row, err := s.webhookEventRepo.Get(ctx, eventID)
	if repository.IsNotFound(err) {
		return apperr.NotFoundErr("Event not found")
	}
	if err != nil {
		return fmt.Errorf("get webhook event: %w", err)
	}
	if row.ProcessedAt != nil {
		return nil
	}

	event, err := client.DecodePayload(row.Payload)
	if err != nil {
		return fmt.Errorf("decode stored event %s: %w", eventID, err)
	}

	log := logger.FromContext(ctx, s.log).With("event_id", eventID, "type", row.EventType, "replay", true)
	return s.process(ctx, log, event)
}

// process dispatches the event and records the result on its ledger row.
func (s *webhookServiceImpl) process(ctx context.Context, log *slog.Logger, event model.Event) error {
	meta := event.Meta()

	err := s.dispatch(ctx, event)
	if err != nil {
		log.ErrorContext(ctx, "webhook handler failed", append(eventRefs(event), "err", err)...)
		if markErr := s.webhookEventRepo.MarkFailed(ctx, meta.ID, err.Error()); markErr != nil {
			log.ErrorContext(ctx, "record webhook failure", "err", markErr)
		}
		return err
	}

	if err := s.webhookEventRepo.MarkProcessed(ctx, meta.ID, s.clock.Now()); err != nil {
		log.ErrorContext(ctx, "mark webhook processed", "err", err)
	}
	return nil
}

func (s *webhookServiceImpl) dispatch(ctx context.Context, event model.Event) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("handler panic: %v", rec)
		}
	}()
	return s.reconciler.Handle(ctx, event)
}

func eventRefs(event model.Event) []any {
	switch ev := event.(type) {
	case model.PaymentSucceededEvent:
		return []any{"order_id", ev.OrderID, "intent_id", ev.IntentID}
	case model.PaymentFailedEvent:
		return []any{"order_id", ev.OrderID, "intent_id", ev.IntentID}
	case model.SubscriptionCreated:
		return []any{"subscription_id", ev.Subscription.ID}
	case model.SubscriptionUpdated:
		return []any{"subscription_id", ev.Subscription.ID}
	case model.SubscriptionDeleted:
		return []any{"subscription_id", ev.Subscription.ID}
	}
	return nil
}
