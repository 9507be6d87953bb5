package service

import (
	"time"

	"storefront-payments/internal/apperr"
	"storefront-payments/internal/model"
)

// outcome is the result of a pure order transition. When changed is false
// the order must not be written.
type outcome struct {
	next    model.Order
	changed bool
	note    string
}

// PaymentFact is what is known about a succeeded or failed intent.
type PaymentFact struct {
	EventID         string
	IntentID        string
	PaymentMethodID string
	AmountMinor     int64
	Currency        string
}

const (
	noteAlreadyPaid     = "order already paid"
	notePaidAfterCancel = "payment received for cancelled order"
	noteAmountMismatch  = "paid amount differs from order amount"
	noteNotPending      = "order not pending"
	noteStaleIntent     = "failure for superseded intent"
	noteAlreadyCanceled = "order already cancelled"
)

func applyPaymentSucceeded(order model.Order, fact PaymentFact, at time.Time) outcome {
	if order.PaymentStatus == model.PaymentPaid {
		return outcome{next: order, note: noteAlreadyPaid}
	}

	next := order
	next.PaymentStatus = model.PaymentPaid
	next.FailureReason = ""
	next.PaidAt = &at
	if fact.IntentID != "" {
		next.IntentID = fact.IntentID
	}
	if fact.PaymentMethodID != "" {
		next.PaymentMethodID = fact.PaymentMethodID
	}
	if fact.EventID != "" {
		next.LastEventID = fact.EventID
	}

	// an underpaid or overpaid order keeps its status until someone reviews it
	out := outcome{next: next, changed: true}
	switch {
	case order.OrderStatus == model.OrderCancelled:
		out.note = notePaidAfterCancel
	case fact.AmountMinor != 0 && fact.AmountMinor != order.AmountMinor:
		out.note = noteAmountMismatch
	default:
		out.next.OrderStatus = model.OrderConfirmed
	}
	return out
}

func applyPaymentFailed(order model.Order, fact PaymentFact, reason string) outcome {
	if order.PaymentStatus != model.PaymentPending {
		return outcome{next: order, note: noteNotPending}
	}
	if order.IntentID != "" && fact.IntentID != "" && order.IntentID != fact.IntentID {
		return outcome{next: order, note: noteStaleIntent}
	}

	next := order
	next.PaymentStatus = model.PaymentFailed
	next.FailureReason = reason
	if next.OrderStatus != model.OrderCancelled {
		next.OrderStatus = model.OrderPaymentFailed
	}
	if fact.IntentID != "" {
		next.IntentID = fact.IntentID
	}
	if fact.EventID != "" {
		next.LastEventID = fact.EventID
	}
	return outcome{next: next, changed: true}
}

// attachIntent points the order at a new intent. A paid order keeps its
// intent; the status of a failed order is left for the new intent's events.
func attachIntent(order model.Order, intentID string) outcome {
	if order.PaymentStatus == model.PaymentPaid {
		return outcome{next: order, note: noteAlreadyPaid}
	}
	if order.IntentID == intentID {
		return outcome{next: order}
	}
	next := order
	next.IntentID = intentID
	return outcome{next: next, changed: true}
}

func cancelOrder(order model.Order) (outcome, error) {
	switch {
	case order.PaymentStatus == model.PaymentPaid:
		return outcome{}, apperr.ConflictErr("Order already paid")
	case order.OrderStatus == model.OrderCancelled:
		return outcome{next: order, note: noteAlreadyCanceled}, nil
	}
	next := order
	next.OrderStatus = model.OrderCancelled
	return outcome{next: next, changed: true}, nil
}
