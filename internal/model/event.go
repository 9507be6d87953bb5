package model

import (
	"encoding/json"
	"fmt"
	"time"
)

type EventKind string

const (
	KindPaymentSucceeded    EventKind = "payment_intent.succeeded"
	KindPaymentFailed       EventKind = "payment_intent.payment_failed"
	KindSubscriptionCreated EventKind = "customer.subscription.created"
	KindSubscriptionUpdated EventKind = "customer.subscription.updated"
	KindSubscriptionDeleted EventKind = "customer.subscription.deleted"
)

// Event is the closed set of processor notifications the reconciler knows.
// Anything else decodes to Unknown.
type Event interface {
	Meta() EventMeta
	isEvent()
}

type EventMeta struct {
	ID      string
	Type    string
	Created time.Time
}

func (m EventMeta) Meta() EventMeta { return m }

type PaymentSucceededEvent struct {
	EventMeta
	IntentID        string
	OrderID         string
	PaymentMethodID string
	AmountMinor     int64
	Currency        string
}

type PaymentFailedEvent struct {
	EventMeta
	IntentID string
	OrderID  string
	Reason   string
}

type SubscriptionSnapshot struct {
	ID                 string
	CustomerID         string
	PriceID            string
	Status             SubscriptionStatus
	CurrentPeriodStart *time.Time
	CurrentPeriodEnd   *time.Time
	CancelAtPeriodEnd  bool
	CanceledAt         *time.Time
}

type SubscriptionCreated struct {
	EventMeta
	Subscription SubscriptionSnapshot
}

type SubscriptionUpdated struct {
	EventMeta
	Subscription SubscriptionSnapshot
}

type SubscriptionDeleted struct {
	EventMeta
	Subscription SubscriptionSnapshot
}

type Unknown struct {
	EventMeta
}

func (PaymentSucceededEvent) isEvent() {}
func (PaymentFailedEvent) isEvent()    {}
func (SubscriptionCreated) isEvent()   {}
func (SubscriptionUpdated) isEvent()   {}
func (SubscriptionDeleted) isEvent()   {}
func (Unknown) isEvent()               {}

// DecodeEvent maps a verified processor envelope onto the Event union.
// object is the raw data.object of the envelope.
func DecodeEvent(id, eventType string, created int64, object json.RawMessage) (Event, error) {
	meta := EventMeta{ID: id, Type: eventType, Created: time.Unix(created, 0).UTC()}
	if id == "" {
		return nil, fmt.Errorf("event missing id")
	}

	switch EventKind(eventType) {
	case KindPaymentSucceeded:
		var pi StripeIntent
		if err := json.Unmarshal(object, &pi); err != nil {
			return nil, fmt.Errorf("decode payment intent: %w", err)
		}
		if pi.ID == "" {
			return nil, fmt.Errorf("payment intent missing id")
		}
		amount := pi.AmountReceived
		if amount == 0 {
			amount = pi.Amount
		}
		return PaymentSucceededEvent{
			EventMeta:       meta,
			IntentID:        pi.ID,
			OrderID:         pi.Metadata[MetadataOrderID],
			PaymentMethodID: pi.PaymentMethod,
			AmountMinor:     amount,
			Currency:        pi.Currency,
		}, nil
	case KindPaymentFailed:
		var pi StripeIntent
		if err := json.Unmarshal(object, &pi); err != nil {
			return nil, fmt.Errorf("decode payment intent: %w", err)
		}
		if pi.ID == "" {
			return nil, fmt.Errorf("payment intent missing id")
		}
		reason := "payment failed"
		if pi.LastPaymentError != nil && pi.LastPaymentError.Message != "" {
			reason = pi.LastPaymentError.Message
		}
		return PaymentFailedEvent{
			EventMeta: meta,
			IntentID:  pi.ID,
			OrderID:   pi.Metadata[MetadataOrderID],
			Reason:    reason,
		}, nil
	case KindSubscriptionCreated, KindSubscriptionUpdated, KindSubscriptionDeleted:
		var sub StripeSubscription
		if err := json.Unmarshal(object, &sub); err != nil {
			return nil, fmt.Errorf("decode subscription: %w", err)
		}
		if sub.ID == "" {
			return nil, fmt.Errorf("subscription missing id")
		}
		snap := sub.Snapshot()
		switch EventKind(eventType) {
		case KindSubscriptionCreated:
			return SubscriptionCreated{EventMeta: meta, Subscription: snap}, nil
		case KindSubscriptionUpdated:
			return SubscriptionUpdated{EventMeta: meta, Subscription: snap}, nil
		default:
			return SubscriptionDeleted{EventMeta: meta, Subscription: snap}, nil
		}
	}

	return Unknown{EventMeta: meta}, nil
}
