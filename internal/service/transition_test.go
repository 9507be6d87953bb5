package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-payments/internal/apperr"
	"storefront-payments/internal/model"
)

func pendingOrder() model.Order {
	return model.Order{
		ID:            "ORD-1",
		AmountMinor:   4550,
		Currency:      "usd",
		PaymentStatus: model.PaymentPending,
		OrderStatus:   model.OrderPending,
		IntentID:      "pi_1",
	}
}

func TestApplyPaymentSucceeded(t *testing.T) {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	fact := PaymentFact{EventID: "evt_1", IntentID: "pi_1", PaymentMethodID: "pm_1", AmountMinor: 4550}

	out := applyPaymentSucceeded(pendingOrder(), fact, at)
	require.True(t, out.changed)
	assert.Equal(t, model.PaymentPaid, out.next.PaymentStatus)
	assert.Equal(t, model.OrderConfirmed, out.next.OrderStatus)
	assert.Equal(t, "pm_1", out.next.PaymentMethodID)
	assert.Equal(t, "evt_1", out.next.LastEventID)
	assert.Equal(t, at, *out.next.PaidAt)

	again := applyPaymentSucceeded(out.next, fact, at.Add(time.Minute))
	assert.False(t, again.changed)
	assert.Equal(t, noteAlreadyPaid, again.note)

	failed := pendingOrder()
	failed.PaymentStatus = model.PaymentFailed
	failed.OrderStatus = model.OrderPaymentFailed
	failed.FailureReason = "declined"
	lifted := applyPaymentSucceeded(failed, fact, at)
	require.True(t, lifted.changed)
	assert.Equal(t, model.PaymentPaid, lifted.next.PaymentStatus)
	assert.Equal(t, model.OrderConfirmed, lifted.next.OrderStatus)
	assert.Empty(t, lifted.next.FailureReason)

	cancelled := pendingOrder()
	cancelled.OrderStatus = model.OrderCancelled
	paidCancelled := applyPaymentSucceeded(cancelled, fact, at)
	require.True(t, paidCancelled.changed)
	assert.Equal(t, model.PaymentPaid, paidCancelled.next.PaymentStatus)
	assert.Equal(t, model.OrderCancelled, paidCancelled.next.OrderStatus)
	assert.Equal(t, notePaidAfterCancel, paidCancelled.note)

	short := applyPaymentSucceeded(pendingOrder(), PaymentFact{IntentID: "pi_1", AmountMinor: 1}, at)
	require.True(t, short.changed)
	assert.Equal(t, model.PaymentPaid, short.next.PaymentStatus)
	assert.Equal(t, model.OrderPending, short.next.OrderStatus)
	assert.Equal(t, noteAmountMismatch, short.note)
}

func TestApplyPaymentFailed(t *testing.T) {
	fact := PaymentFact{EventID: "evt_2", IntentID: "pi_1"}

	out := applyPaymentFailed(pendingOrder(), fact, "declined")
	require.True(t, out.changed)
	assert.Equal(t, model.PaymentFailed, out.next.PaymentStatus)
	assert.Equal(t, model.OrderPaymentFailed, out.next.OrderStatus)
	assert.Equal(t, "declined", out.next.FailureReason)

	paid := applyPaymentSucceeded(pendingOrder(), fact, time.Now()).next
	stale := applyPaymentFailed(paid, fact, "declined")
	assert.False(t, stale.changed)
	assert.Equal(t, noteNotPending, stale.note)

	superseded := applyPaymentFailed(pendingOrder(), PaymentFact{IntentID: "pi_old"}, "declined")
	assert.False(t, superseded.changed)
	assert.Equal(t, noteStaleIntent, superseded.note)
}

func TestAttachIntent(t *testing.T) {
	out := attachIntent(pendingOrder(), "pi_2")
	require.True(t, out.changed)
	assert.Equal(t, "pi_2", out.next.IntentID)

	assert.False(t, attachIntent(pendingOrder(), "pi_1").changed)

	paid := pendingOrder()
	paid.PaymentStatus = model.PaymentPaid
	assert.False(t, attachIntent(paid, "pi_2").changed)
}

func TestCancelOrderTransition(t *testing.T) {
	out, err := cancelOrder(pendingOrder())
	require.NoError(t, err)
	assert.Equal(t, model.OrderCancelled, out.next.OrderStatus)

	again, err := cancelOrder(out.next)
	require.NoError(t, err)
	assert.False(t, again.changed)

	paid := pendingOrder()
	paid.PaymentStatus = model.PaymentPaid
	_, err = cancelOrder(paid)
	assert.True(t, apperr.Is(err, apperr.Conflict))
}
