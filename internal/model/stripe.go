package model

import "time"

// Webhook payload shapes (data.object) for the processor events we consume.

type StripePaymentError struct {
	Code        string `json:"code"`
	DeclineCode string `json:"decline_code"`
	Message     string `json:"message"`
}

type StripeIntent struct {
	ID               string              `json:"id"`
	Status           string              `json:"status"`
	Amount           int64               `json:"amount"`
	AmountReceived   int64               `json:"amount_received"`
	Currency         string              `json:"currency"`
	PaymentMethod    string              `json:"payment_method"`
	Metadata         map[string]string   `json:"metadata"`
	LastPaymentError *StripePaymentError `json:"last_payment_error"`
}

type StripePrice struct {
	ID string `json:"id"`
}

type StripeSubscriptionItem struct {
	Price StripePrice `json:"price"`
}

type StripeSubscription struct {
	ID                 string `json:"id"`
	Customer           string `json:"customer"`
	Status             string `json:"status"`
	CurrentPeriodStart int64  `json:"current_period_start"`
	CurrentPeriodEnd   int64  `json:"current_period_end"`
	CancelAtPeriodEnd  bool   `json:"cancel_at_period_end"`
	CanceledAt         *int64 `json:"canceled_at"`
	Items              struct {
		Data []StripeSubscriptionItem `json:"data"`
	} `json:"items"`
	Metadata map[string]string `json:"metadata"`
}

func (s StripeSubscription) Snapshot() SubscriptionSnapshot {
	snap := SubscriptionSnapshot{
		ID:                 s.ID,
		CustomerID:         s.Customer,
		Status:             SubscriptionStatus(s.Status),
		CurrentPeriodStart: EpochTime(s.CurrentPeriodStart),
		CurrentPeriodEnd:   EpochTime(s.CurrentPeriodEnd),
		CancelAtPeriodEnd:  s.CancelAtPeriodEnd,
	}
	if s.CanceledAt != nil {
		snap.CanceledAt = EpochTime(*s.CanceledAt)
	}
	if len(s.Items.Data) > 0 {
		snap.PriceID = s.Items.Data[0].Price.ID
	}
	return snap
}

// EpochTime converts processor epoch seconds; zero means unset.
func EpochTime(sec int64) *time.Time {
	if sec == 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}
