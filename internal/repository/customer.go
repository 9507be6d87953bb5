package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"storefront-payments/internal/model"
)

type CustomerRepository interface {
	FindByEmail(ctx context.Context, email string) (*model.Customer, error)
	FindByBillingID(ctx context.Context, tx *gorm.DB, billingID string) (*model.Customer, error)
	Upsert(ctx context.Context, customer *model.Customer) error
	SetDefaultPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error

	AddPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error
	ListPaymentMethods(ctx context.Context, customerID string) ([]string, error)

	AddSubscription(ctx context.Context, tx *gorm.DB, customerID, subscriptionID string) error
	RemoveSubscription(ctx context.Context, tx *gorm.DB, subscriptionID string) error
	ListSubscriptions(ctx context.Context, customerID string) ([]string, error)
}

type customerRepoImpl struct {
	db *gorm.DB
}

func NewCustomerRepository(db *gorm.DB) CustomerRepository {
	return &customerRepoImpl{db: db}
}

func (r *customerRepoImpl) FindByEmail(ctx context.Context, email string) (*model.Customer, error) {
	var customer model.Customer
	err := r.db.WithContext(ctx).
		Where("id = ?", email).
		First(&customer).Error
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *customerRepoImpl) FindByBillingID(ctx context.Context, tx *gorm.DB, billingID string) (*model.Customer, error) {
	var customer model.Customer
	err := conn(r.db, tx).WithContext(ctx).
		Where("billing_id = ?", billingID).
		First(&customer).Error
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *customerRepoImpl) Upsert(ctx context.Context, customer *model.Customer) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "billing_id", "updated_at"}),
		}).
		Create(customer).Error
}

func (r *customerRepoImpl) SetDefaultPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error {
	return r.db.WithContext(ctx).
		Model(&model.Customer{}).
		Where("id = ?", customerID).
		Update("default_payment_method_id", paymentMethodID).Error
}

func (r *customerRepoImpl) AddPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.CustomerPaymentMethod{
			CustomerID:      customerID,
			PaymentMethodID: paymentMethodID,
		}).Error
}

func (r *customerRepoImpl) ListPaymentMethods(ctx context.Context, customerID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&model.CustomerPaymentMethod{}).
		Where("customer_id = ?", customerID).
		Order("created_at ASC").
		Pluck("payment_method_id", &ids).Error
	return ids, err
}

func (r *customerRepoImpl) AddSubscription(ctx context.Context, tx *gorm.DB, customerID, subscriptionID string) error {
	return conn(r.db, tx).WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.CustomerSubscription{
			CustomerID:     customerID,
			SubscriptionID: subscriptionID,
		}).Error
}

func (r *customerRepoImpl) RemoveSubscription(ctx context.Context, tx *gorm.DB, subscriptionID string) error {
	return conn(r.db, tx).WithContext(ctx).
		Where("subscription_id = ?", subscriptionID).
		Delete(&model.CustomerSubscription{}).Error
}

func (r *customerRepoImpl) ListSubscriptions(ctx context.Context, customerID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&model.CustomerSubscription{}).
		Where("customer_id = ?", customerID).
		Order("created_at ASC").
		Pluck("subscription_id", &ids).Error
	return ids, err
}
