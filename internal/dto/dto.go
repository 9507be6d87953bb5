package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

type CreateIntentRequest struct {
	Amount          decimal.NullDecimal `json:"amount"`
	Currency        string              `json:"currency"`
	PaymentMethodID string              `json:"payment_method_id"`
	ReceiptEmail    string              `json:"receipt_email"`
	Metadata        map[string]string   `json:"metadata"`
}

type CreateIntentResponse struct {
	ClientSecret string `json:"clientSecret"`
	ID           string `json:"id"`
}

type ConfirmChargeRequest struct {
	PaymentMethodID string              `json:"paymentMethodId"`
	Amount          decimal.NullDecimal `json:"amount"`
	OrderID         string              `json:"orderId"`
}

type ConfirmChargeResponse struct {
	PaymentIntentID string `json:"paymentIntentId"`
	Status          string `json:"status"`
}

type WebhookResponse struct {
	Received bool `json:"received"`
}

type UpsertCustomerRequest struct {
	Email           string `json:"email"`
	Name            string `json:"name"`
	PaymentMethodID string `json:"paymentMethodId"`
}

type UpsertCustomerResponse struct {
	Success    bool   `json:"success"`
	CustomerID string `json:"customerId"`
}

type CreateSubscriptionRequest struct {
	CustomerID string            `json:"customerId"`
	PriceID    string            `json:"priceId"`
	Metadata   map[string]string `json:"metadata"`
}

type CreateSubscriptionResponse struct {
	Success        bool    `json:"success"`
	SubscriptionID string  `json:"subscriptionId"`
	Status         string  `json:"status"`
	ClientSecret   *string `json:"clientSecret"`
}

type CancelSubscriptionRequest struct {
	SubscriptionID string `json:"subscriptionId"`
}

type CancelSubscriptionResponse struct {
	Success        bool   `json:"success"`
	SubscriptionID string `json:"subscriptionId"`
	Status         string `json:"status"`
}

type CreateOrderRequest struct {
	OrderID       string              `json:"orderId"`
	CustomerEmail string              `json:"customerEmail"`
	Amount        decimal.NullDecimal `json:"amount"`
	Currency      string              `json:"currency"`
	Metadata      map[string]string   `json:"metadata"`
}

type Order struct {
	ID              string            `json:"id"`
	CustomerID      string            `json:"customerId,omitempty"`
	Amount          float64           `json:"amount"`
	Currency        string            `json:"currency"`
	PaymentStatus   string            `json:"paymentStatus"`
	OrderStatus     string            `json:"orderStatus"`
	IntentID        string            `json:"paymentIntentId,omitempty"`
	PaymentMethodID string            `json:"paymentMethodId,omitempty"`
	FailureReason   string            `json:"failureReason,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	PaidAt          *time.Time        `json:"paidAt,omitempty"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
