package client

import "context"

const (
	IntentSucceeded             = "succeeded"
	IntentProcessing            = "processing"
	IntentRequiresAction        = "requires_action"
	IntentRequiresPaymentMethod = "requires_payment_method"
	IntentCanceled              = "canceled"
)

type CreateIntentParams struct {
	AmountMinor     int64
	Currency        string
	PaymentMethodID string // when set the intent is confirmed immediately
	ReceiptEmail    string
	Metadata        map[string]string
	IdempotencyKey  string
}

type Intent struct {
	ID           string
	ClientSecret string
	Status       string
	AmountMinor  int64
	Currency     string
}

type BillingCustomer struct {
	ID    string
	Email string
	Name  string
}

type CreateSubscriptionParams struct {
	CustomerID     string
	PriceID        string
	Metadata       map[string]string
	IdempotencyKey string
}

type BillingSubscription struct {
	ID                 string
	CustomerID         string
	PriceID            string
	Status             string
	CurrentPeriodStart int64
	CurrentPeriodEnd   int64
	CancelAtPeriodEnd  bool
	ClientSecret       string // first invoice intent, empty when no confirmation is needed
}

// PaymentClient is the narrow surface of the hosted payment processor.
// Implementations return apperr processor errors for rejections and apperr
// transient errors for network/timeouts.
type PaymentClient interface {
	CreateIntent(ctx context.Context, params CreateIntentParams) (*Intent, error)

	FindCustomerByEmail(ctx context.Context, email string) (*BillingCustomer, error)
	CreateCustomer(ctx context.Context, email, name string) (*BillingCustomer, error)
	AttachPaymentMethod(ctx context.Context, paymentMethodID, customerID string) error
	SetDefaultPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error

	CreateSubscription(ctx context.Context, params CreateSubscriptionParams) (*BillingSubscription, error)
	CancelSubscription(ctx context.Context, subscriptionID string) error
}
