package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"storefront-payments/internal/model"
)

const maxProcessErrorLen = 255

type WebhookEventRepository interface {
	// Insert claims the event id. It returns false when the id is already
	// in the ledger.
	Insert(ctx context.Context, event *model.PaymentEvent) (bool, error)
	MarkProcessed(ctx context.Context, eventID string, at time.Time) error
	MarkFailed(ctx context.Context, eventID, reason string) error
	Get(ctx context.Context, eventID string) (*model.PaymentEvent, error)
	// ListUnprocessed returns events that were claimed before receivedBefore
	// but never marked processed, failed ones included.
	ListUnprocessed(ctx context.Context, receivedBefore time.Time, limit int) ([]*model.PaymentEvent, error)
	// PruneBefore deletes processed events received before cutoff.
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type webhookEventRepositoryImpl struct {
	db *gorm.DB
}

func NewWebhookEventRepository(db *gorm.DB) WebhookEventRepository {
	return &webhookEventRepositoryImpl{db: db}
}

func (r *webhookEventRepositoryImpl) Insert(ctx context.Context, event *model.PaymentEvent) (bool, error) {
	err := r.db.WithContext(ctx).Create(event).Error
	if err == nil {
		return true, nil
	}
	if IsDuplicate(err) {
		return false, nil
	}
	return false, err
}

func (r *webhookEventRepositoryImpl) MarkProcessed(ctx context.Context, eventID string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.PaymentEvent{}).
		Where("event_id = ?", eventID).
		Updates(map[string]interface{}{
			"processed_at":  at,
			"process_error": nil,
		}).Error
}

func (r *webhookEventRepositoryImpl) MarkFailed(ctx context.Context, eventID, reason string) error {
	if len(reason) > maxProcessErrorLen {
		reason = reason[:maxProcessErrorLen]
	}
	return r.db.WithContext(ctx).
		Model(&model.PaymentEvent{}).
		Where("event_id = ?", eventID).
		Update("process_error", reason).Error
}

func (r *webhookEventRepositoryImpl) Get(ctx context.Context, eventID string) (*model.PaymentEvent, error) {
	var event model.PaymentEvent
	err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		First(&event).Error
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *webhookEventRepositoryImpl) ListUnprocessed(ctx context.Context, receivedBefore time.Time, limit int) ([]*model.PaymentEvent, error) {
	var events []*model.PaymentEvent
	err := r.db.WithContext(ctx).
		Where("processed_at IS NULL AND received_at < ?", receivedBefore).
		Order("received_at ASC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (r *webhookEventRepositoryImpl) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("processed_at IS NOT NULL AND received_at < ?", cutoff).
		Delete(&model.PaymentEvent{})
	return result.RowsAffected, result.Error
}
