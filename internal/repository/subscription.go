package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"storefront-payments/internal/model"
)

type SubscriptionRepository interface {
	InsertIfAbsent(ctx context.Context, tx *gorm.DB, sub *model.Subscription) error
	// ApplySnapshot overwrites the mutable fields unless the row is already
	// canceled or has seen a newer event.
	ApplySnapshot(ctx context.Context, tx *gorm.DB, sub *model.Subscription, at time.Time) (bool, error)
	MarkCanceled(ctx context.Context, tx *gorm.DB, sub *model.Subscription, at time.Time) error
	GetBySubscriptionID(ctx context.Context, subscriptionID string) (*model.Subscription, error)
}

type subscriptionRepoImpl struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepoImpl{
		db: db,
	}
}

func (r *subscriptionRepoImpl) InsertIfAbsent(ctx context.Context, tx *gorm.DB, sub *model.Subscription) error {
	if sub.SourceEventAt.IsZero() {
		sub.SourceEventAt = model.SnapshotFloor
	}
	return conn(r.db, tx).WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoNothing: true,
		}).
		Create(sub).Error
}

func (r *subscriptionRepoImpl) ApplySnapshot(ctx context.Context, tx *gorm.DB, sub *model.Subscription, at time.Time) (bool, error) {
	result := conn(r.db, tx).WithContext(ctx).
		Model(&model.Subscription{}).
		Where("id = ? AND status <> ? AND source_event_at <= ?", sub.ID, model.SubscriptionCanceled, sub.SourceEventAt).
		Updates(map[string]interface{}{
			"customer_id":          sub.CustomerID,
			"price_id":             sub.PriceID,
			"status":               sub.Status,
			"current_period_start": sub.CurrentPeriodStart,
			"current_period_end":   sub.CurrentPeriodEnd,
			"cancel_at_period_end": sub.CancelAtPeriodEnd,
			"canceled_at":          sub.CanceledAt,
			"source_event_at":      sub.SourceEventAt,
			"updated_at":           at,
		})

	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *subscriptionRepoImpl) MarkCanceled(ctx context.Context, tx *gorm.DB, sub *model.Subscription, at time.Time) error {
	canceledAt := sub.CanceledAt
	if canceledAt == nil {
		at := sub.SourceEventAt
		canceledAt = &at
	}

	return conn(r.db, tx).WithContext(ctx).
		Model(&model.Subscription{}).
		Where("id = ?", sub.ID).
		Updates(map[string]interface{}{
			"status":          model.SubscriptionCanceled,
			"canceled_at":     canceledAt,
			"source_event_at": sub.SourceEventAt,
			"updated_at":      at,
		}).Error
}

func (r *subscriptionRepoImpl) GetBySubscriptionID(ctx context.Context, subscriptionID string) (*model.Subscription, error) {
	var sub model.Subscription
	err := r.db.WithContext(ctx).
		Where("id = ?", subscriptionID).
		First(&sub).
		Error

	if err != nil {
		return nil, err
	}

	return &sub, nil
}
