// Package clienttest provides a scripted PaymentClient double.
package clienttest

import (
	"context"
	"fmt"
	"sync"

	"storefront-payments/internal/client"
)

// Fake implements client.PaymentClient. Each method delegates to its Func
// field when set; otherwise it returns a canned success. Calls are recorded.
type Fake struct {
	CreateIntentFunc            func(ctx context.Context, p client.CreateIntentParams) (*client.Intent, error)
	FindCustomerByEmailFunc     func(ctx context.Context, email string) (*client.BillingCustomer, error)
	CreateCustomerFunc          func(ctx context.Context, email, name string) (*client.BillingCustomer, error)
	AttachPaymentMethodFunc     func(ctx context.Context, paymentMethodID, customerID string) error
	SetDefaultPaymentMethodFunc func(ctx context.Context, customerID, paymentMethodID string) error
	CreateSubscriptionFunc      func(ctx context.Context, p client.CreateSubscriptionParams) (*client.BillingSubscription, error)
	CancelSubscriptionFunc      func(ctx context.Context, subscriptionID string) error

	mu            sync.Mutex
	IntentCalls   []client.CreateIntentParams
	CancelCalls   []string
	AttachCalls   []string
	intentCounter int
}

var _ client.PaymentClient = (*Fake)(nil)

func (f *Fake) CreateIntent(ctx context.Context, p client.CreateIntentParams) (*client.Intent, error) {
	f.mu.Lock()
	f.IntentCalls = append(f.IntentCalls, p)
	f.intentCounter++
	n := f.intentCounter
	f.mu.Unlock()

	if f.CreateIntentFunc != nil {
		return f.CreateIntentFunc(ctx, p)
	}

	status := client.IntentRequiresPaymentMethod
	if p.PaymentMethodID != "" {
		status = client.IntentSucceeded
	}
	id := fmt.Sprintf("pi_fake_%d", n)
	return &client.Intent{
		ID:           id,
		ClientSecret: id + "_secret",
		Status:       status,
		AmountMinor:  p.AmountMinor,
		Currency:     p.Currency,
	}, nil
}

func (f *Fake) IntentCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.IntentCalls)
}

func (f *Fake) FindCustomerByEmail(ctx context.Context, email string) (*client.BillingCustomer, error) {
	if f.FindCustomerByEmailFunc != nil {
		return f.FindCustomerByEmailFunc(ctx, email)
	}
	return nil, nil
}

func (f *Fake) CreateCustomer(ctx context.Context, email, name string) (*client.BillingCustomer, error) {
	if f.CreateCustomerFunc != nil {
		return f.CreateCustomerFunc(ctx, email, name)
	}
	return &client.BillingCustomer{ID: "cus_" + email, Email: email, Name: name}, nil
}

func (f *Fake) AttachPaymentMethod(ctx context.Context, paymentMethodID, customerID string) error {
	f.mu.Lock()
	f.AttachCalls = append(f.AttachCalls, paymentMethodID)
	f.mu.Unlock()
	if f.AttachPaymentMethodFunc != nil {
		return f.AttachPaymentMethodFunc(ctx, paymentMethodID, customerID)
	}
	return nil
}

func (f *Fake) SetDefaultPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error {
	if f.SetDefaultPaymentMethodFunc != nil {
		return f.SetDefaultPaymentMethodFunc(ctx, customerID, paymentMethodID)
	}
	return nil
}

func (f *Fake) CreateSubscription(ctx context.Context, p client.CreateSubscriptionParams) (*client.BillingSubscription, error) {
	if f.CreateSubscriptionFunc != nil {
		return f.CreateSubscriptionFunc(ctx, p)
	}
	return &client.BillingSubscription{
		ID:                 "sub_fake",
		CustomerID:         p.CustomerID,
		PriceID:            p.PriceID,
		Status:             "incomplete",
		CurrentPeriodStart: 1700000000,
		CurrentPeriodEnd:   1702592000,
		ClientSecret:       "pi_sub_secret",
	}, nil
}

func (f *Fake) CancelSubscription(ctx context.Context, subscriptionID string) error {
	f.mu.Lock()
	f.CancelCalls = append(f.CancelCalls, subscriptionID)
	f.mu.Unlock()
	if f.CancelSubscriptionFunc != nil {
		return f.CancelSubscriptionFunc(ctx, subscriptionID)
	}
	return nil
}
