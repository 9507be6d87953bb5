package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"storefront-payments/internal/model"
)

type PaymentRepository interface {
	// Record inserts the payment unless one already exists for the intent.
	Record(ctx context.Context, tx *gorm.DB, payment *model.Payment) (bool, error)
	CountByIntentID(ctx context.Context, intentID string) (int64, error)
	ListByOrderID(ctx context.Context, orderID string) ([]*model.Payment, error)
}

type paymentRepoImpl struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepoImpl{db: db}
}

func (r *paymentRepoImpl) Record(ctx context.Context, tx *gorm.DB, payment *model.Payment) (bool, error) {
	result := conn(r.db, tx).WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "intent_id"}},
			DoNothing: true,
		}).
		Create(payment)

	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *paymentRepoImpl) CountByIntentID(ctx context.Context, intentID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Payment{}).
		Where("intent_id = ?", intentID).
		Count(&count).Error

	return count, err
}

func (r *paymentRepoImpl) ListByOrderID(ctx context.Context, orderID string) ([]*model.Payment, error) {
	var payments []*model.Payment
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}
