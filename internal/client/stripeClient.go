package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/stripe/stripe-go/v74"
	stripeapi "github.com/stripe/stripe-go/v74/client"

	"storefront-payments/internal/apperr"
	"storefront-payments/internal/config"
)

type stripeClientImpl struct {
	api *stripeapi.API
}

// NewStripeClient builds a per-instance API handle; the global stripe.Key is
// never set. Network retries are owned by the service layer, which carries
// the idempotency key across attempts.
func NewStripeClient(cfg *config.Stripe) PaymentClient {
	backendCfg := &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: cfg.Timeout},
		MaxNetworkRetries: stripe.Int64(0),
	}
	backends := &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, backendCfg),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, backendCfg),
	}

	return &stripeClientImpl{
		api: stripeapi.New(cfg.SecretKey, backends),
	}
}

func (c *stripeClientImpl) CreateIntent(ctx context.Context, p CreateIntentParams) (*Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(p.AmountMinor),
		Currency: stripe.String(p.Currency),
	}
	params.Context = ctx

	if p.PaymentMethodID != "" {
		params.PaymentMethod = stripe.String(p.PaymentMethodID)
		params.PaymentMethodTypes = stripe.StringSlice([]string{"card"})
		params.Confirm = stripe.Bool(true)
	} else {
		params.AutomaticPaymentMethods = &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		}
	}
	if p.ReceiptEmail != "" {
		params.ReceiptEmail = stripe.String(p.ReceiptEmail)
	}
	for k, v := range p.Metadata {
		params.AddMetadata(k, v)
	}
	if p.IdempotencyKey != "" {
		params.SetIdempotencyKey(p.IdempotencyKey)
	}

	pi, err := c.api.PaymentIntents.New(params)
	if err != nil {
		return nil, translateStripeError("create payment intent", err)
	}

	return &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
		AmountMinor:  pi.Amount,
		Currency:     string(pi.Currency),
	}, nil
}

func (c *stripeClientImpl) FindCustomerByEmail(ctx context.Context, email string) (*BillingCustomer, error) {
	params := &stripe.CustomerListParams{
		Email: stripe.String(email),
	}
	params.Context = ctx
	params.Limit = stripe.Int64(1)

	iter := c.api.Customers.List(params)
	if iter.Next() {
		cus := iter.Customer()
		return &BillingCustomer{ID: cus.ID, Email: cus.Email, Name: cus.Name}, nil
	}
	if err := iter.Err(); err != nil {
		return nil, translateStripeError("list customers", err)
	}
	return nil, nil
}

func (c *stripeClientImpl) CreateCustomer(ctx context.Context, email, name string) (*BillingCustomer, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(email),
		Name:  stripe.String(name),
	}
	params.Context = ctx
	params.SetIdempotencyKey("customer:" + strings.ToLower(email))

	cus, err := c.api.Customers.New(params)
	if err != nil {
		return nil, translateStripeError("create customer", err)
	}
	return &BillingCustomer{ID: cus.ID, Email: cus.Email, Name: cus.Name}, nil
}

func (c *stripeClientImpl) AttachPaymentMethod(ctx context.Context, paymentMethodID, customerID string) error {
	params := &stripe.PaymentMethodAttachParams{
		Customer: stripe.String(customerID),
	}
	params.Context = ctx

	if _, err := c.api.PaymentMethods.Attach(paymentMethodID, params); err != nil {
		return translateStripeError("attach payment method", err)
	}
	return nil
}

func (c *stripeClientImpl) SetDefaultPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error {
	params := &stripe.CustomerParams{
		InvoiceSettings: &stripe.CustomerInvoiceSettingsParams{
			DefaultPaymentMethod: stripe.String(paymentMethodID),
		},
	}
	params.Context = ctx

	if _, err := c.api.Customers.Update(customerID, params); err != nil {
		return translateStripeError("set default payment method", err)
	}
	return nil
}

func (c *stripeClientImpl) CreateSubscription(ctx context.Context, p CreateSubscriptionParams) (*BillingSubscription, error) {
	params := &stripe.SubscriptionParams{
		Customer: stripe.String(p.CustomerID),
		Items: []*stripe.SubscriptionItemsParams{
			{Price: stripe.String(p.PriceID)},
		},
		PaymentBehavior: stripe.String("default_incomplete"),
	}
	params.Context = ctx
	params.AddExpand("latest_invoice.payment_intent")
	for k, v := range p.Metadata {
		params.AddMetadata(k, v)
	}
	if p.IdempotencyKey != "" {
		params.SetIdempotencyKey(p.IdempotencyKey)
	}

	sub, err := c.api.Subscriptions.New(params)
	if err != nil {
		return nil, translateStripeError("create subscription", err)
	}

	out := &BillingSubscription{
		ID:                 sub.ID,
		PriceID:            p.PriceID,
		Status:             string(sub.Status),
		CurrentPeriodStart: sub.CurrentPeriodStart,
		CurrentPeriodEnd:   sub.CurrentPeriodEnd,
		CancelAtPeriodEnd:  sub.CancelAtPeriodEnd,
		CustomerID:         p.CustomerID,
	}
	if sub.Customer != nil && sub.Customer.ID != "" {
		out.CustomerID = sub.Customer.ID
	}
	if sub.LatestInvoice != nil && sub.LatestInvoice.PaymentIntent != nil {
		out.ClientSecret = sub.LatestInvoice.PaymentIntent.ClientSecret
	}
	return out, nil
}

func (c *stripeClientImpl) CancelSubscription(ctx context.Context, subscriptionID string) error {
	params := &stripe.SubscriptionCancelParams{}
	params.Context = ctx

	if _, err := c.api.Subscriptions.Cancel(subscriptionID, params); err != nil {
		return translateStripeError("cancel subscription", err)
	}
	return nil
}

// translateStripeError splits processor failures into rejections (surfaced
// verbatim, never retried) and transient failures (retryable).
func translateStripeError(op string, err error) error {
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		// network error, timeout, context deadline
		return apperr.TransientErr(fmt.Errorf("%s: %w", op, err))
	}

	if stripeErr.HTTPStatusCode >= http.StatusInternalServerError ||
		stripeErr.HTTPStatusCode == http.StatusTooManyRequests ||
		stripeErr.HTTPStatusCode == 0 {
		return apperr.TransientErr(fmt.Errorf("%s: %w", op, err))
	}

	msg := stripeErr.Msg
	if msg == "" {
		msg = "payment processor rejected the request"
	}
	if stripeErr.Type == stripe.ErrorTypeCard {
		return apperr.ProcessorErr(msg, fmt.Errorf("%s: card error %s: %w", op, stripeErr.Code, err))
	}
	return apperr.ProcessorErr(msg, fmt.Errorf("%s: %w", op, err))
}
