package repository

import (
	"context"

	"gorm.io/gorm"

	"storefront-payments/internal/model"
)

type OrderRepository interface {
	Create(ctx context.Context, tx *gorm.DB, order *model.Order) error
	FindByID(ctx context.Context, tx *gorm.DB, orderID string) (*model.Order, error)
	FindByIntentID(ctx context.Context, tx *gorm.DB, intentID string) (*model.Order, error)
	// CompareAndSwap writes next only if the stored version still equals
	// expectedVersion, bumping the version. It reports whether the write won.
	CompareAndSwap(ctx context.Context, tx *gorm.DB, next *model.Order, expectedVersion int64) (bool, error)
}

type orderRepoImpl struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepoImpl{
		db: db,
	}
}

func (r *orderRepoImpl) Create(ctx context.Context, tx *gorm.DB, order *model.Order) error {
	return conn(r.db, tx).WithContext(ctx).Create(order).Error
}

func (r *orderRepoImpl) FindByID(ctx context.Context, tx *gorm.DB, orderID string) (*model.Order, error) {
	var order model.Order
	err := conn(r.db, tx).WithContext(ctx).
		Where("id = ?", orderID).
		First(&order).Error

	if err != nil {
		return nil, err
	}

	return &order, nil
}

func (r *orderRepoImpl) FindByIntentID(ctx context.Context, tx *gorm.DB, intentID string) (*model.Order, error) {
	var order model.Order
	err := conn(r.db, tx).WithContext(ctx).
		Where("intent_id = ?", intentID).
		Order("created_at DESC").
		First(&order).Error

	if err != nil {
		return nil, err
	}

	return &order, nil
}

func (r *orderRepoImpl) CompareAndSwap(ctx context.Context, tx *gorm.DB, next *model.Order, expectedVersion int64) (bool, error) {
	result := conn(r.db, tx).WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND version = ?", next.ID, expectedVersion).
		Updates(map[string]interface{}{
			"payment_status":    next.PaymentStatus,
			"order_status":      next.OrderStatus,
			"amount_minor":      next.AmountMinor,
			"currency":          next.Currency,
			"intent_id":         next.IntentID,
			"payment_method_id": next.PaymentMethodID,
			"failure_reason":    next.FailureReason,
			"paid_at":           next.PaidAt,
			"last_event_id":     next.LastEventID,
			"version":           expectedVersion + 1,
			"updated_at":        next.UpdatedAt,
		})

	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 0 {
		return false, nil
	}

	next.Version = expectedVersion + 1
	return true, nil
}
