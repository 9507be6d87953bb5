package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"storefront-payments/internal/model"
)

type OrphanPaymentRepository interface {
	Record(ctx context.Context, tx *gorm.DB, orphan *model.OrphanPayment) error
	// FindUnlinked returns orphans that name orderID in metadata or carry intentID.
	FindUnlinked(ctx context.Context, tx *gorm.DB, orderID, intentID string) ([]*model.OrphanPayment, error)
	MarkLinked(ctx context.Context, tx *gorm.DB, intentID, orderID string, at time.Time) (bool, error)
}

type orphanRepoImpl struct {
	db *gorm.DB
}

func NewOrphanPaymentRepository(db *gorm.DB) OrphanPaymentRepository {
	return &orphanRepoImpl{db: db}
}

func (r *orphanRepoImpl) Record(ctx context.Context, tx *gorm.DB, orphan *model.OrphanPayment) error {
	return conn(r.db, tx).WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "intent_id"}},
			DoNothing: true,
		}).
		Create(orphan).Error
}

func (r *orphanRepoImpl) FindUnlinked(ctx context.Context, tx *gorm.DB, orderID, intentID string) ([]*model.OrphanPayment, error) {
	q := conn(r.db, tx).WithContext(ctx).Where("linked_order_id IS NULL")
	switch {
	case orderID != "" && intentID != "":
		q = q.Where("order_id = ? OR intent_id = ?", orderID, intentID)
	case orderID != "":
		q = q.Where("order_id = ?", orderID)
	case intentID != "":
		q = q.Where("intent_id = ?", intentID)
	default:
		return nil, nil
	}

	var orphans []*model.OrphanPayment
	if err := q.Order("received_at ASC").Find(&orphans).Error; err != nil {
		return nil, err
	}
	return orphans, nil
}

func (r *orphanRepoImpl) MarkLinked(ctx context.Context, tx *gorm.DB, intentID, orderID string, at time.Time) (bool, error) {
	result := conn(r.db, tx).WithContext(ctx).Model(&model.OrphanPayment{}).
		Where("intent_id = ? AND linked_order_id IS NULL", intentID).
		Updates(map[string]interface{}{
			"linked_order_id": orderID,
			"linked_at":       at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
