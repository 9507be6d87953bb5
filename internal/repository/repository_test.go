package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"storefront-payments/internal/client"
	"storefront-payments/internal/model"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := client.OpenMemory(uuid.NewString())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func TestOrderCompareAndSwap(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository(newTestDB(t))

	order := &model.Order{
		ID:            "ORD-1",
		AmountMinor:   4550,
		Currency:      "usd",
		PaymentStatus: model.PaymentPending,
		OrderStatus:   model.OrderPending,
	}
	require.NoError(t, repo.Create(ctx, nil, order))

	next := *order
	next.PaymentStatus = model.PaymentPaid
	next.OrderStatus = model.OrderConfirmed

	ok, err := repo.CompareAndSwap(ctx, nil, &next, 0)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(1), next.Version)

	// a writer holding the old version loses
	stale := *order
	stale.PaymentStatus = model.PaymentFailed
	ok, err = repo.CompareAndSwap(ctx, nil, &stale, 0)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := repo.FindByID(ctx, nil, "ORD-1")
	require.NoError(t, err)
	assert.Equal(t, model.PaymentPaid, got.PaymentStatus)
	assert.Equal(t, model.OrderConfirmed, got.OrderStatus)
	assert.Equal(t, int64(1), got.Version)
}

func TestOrderFindMissing(t *testing.T) {
	repo := NewOrderRepository(newTestDB(t))
	_, err := repo.FindByID(context.Background(), nil, "nope")
	assert.True(t, IsNotFound(err))
}

func TestPaymentRecordIsUniquePerIntent(t *testing.T) {
	ctx := context.Background()
	repo := NewPaymentRepository(newTestDB(t))

	for i := 0; i < 3; i++ {
		created, err := repo.Record(ctx, nil, &model.Payment{
			ID:          uuid.NewString(),
			OrderID:     "ORD-1",
			IntentID:    "pi_1",
			AmountMinor: 4550,
			Currency:    "usd",
			Source:      model.SourceWebhook,
		})
		require.NoError(t, err)
		assert.Equal(t, i == 0, created)
	}

	count, err := repo.CountByIntentID(ctx, "pi_1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestWebhookEventLedger(t *testing.T) {
	ctx := context.Background()
	repo := NewWebhookEventRepository(newTestDB(t))
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	inserted, err := repo.Insert(ctx, &model.PaymentEvent{EventID: "evt_1", EventType: "x", ReceivedAt: now})
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = repo.Insert(ctx, &model.PaymentEvent{EventID: "evt_1", EventType: "x", ReceivedAt: now})
	require.NoError(t, err)
	assert.False(t, inserted)

	require.NoError(t, repo.MarkFailed(ctx, "evt_1", "boom"))
	failed, err := repo.ListUnprocessed(ctx, now.Add(time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "boom", *failed[0].ProcessError)

	require.NoError(t, repo.MarkProcessed(ctx, "evt_1", now))
	got, err := repo.Get(ctx, "evt_1")
	require.NoError(t, err)
	assert.Nil(t, got.ProcessError)
	require.NotNil(t, got.ProcessedAt)

	_, err = repo.Insert(ctx, &model.PaymentEvent{EventID: "evt_2", EventType: "x", ReceivedAt: now})
	require.NoError(t, err)

	// only processed rows are pruned
	n, err := repo.PruneBefore(ctx, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = repo.Get(ctx, "evt_2")
	assert.NoError(t, err)
}

func TestCustomerSetMembership(t *testing.T) {
	ctx := context.Background()
	repo := NewCustomerRepository(newTestDB(t))

	require.NoError(t, repo.Upsert(ctx, &model.Customer{ID: "a@example.com", Name: "A", BillingID: "cus_a"}))
	require.NoError(t, repo.Upsert(ctx, &model.Customer{ID: "a@example.com", Name: "A2", BillingID: "cus_a"}))

	got, err := repo.FindByBillingID(ctx, nil, "cus_a")
	require.NoError(t, err)
	assert.Equal(t, "A2", got.Name)

	for i := 0; i < 2; i++ {
		require.NoError(t, repo.AddSubscription(ctx, nil, "a@example.com", "sub_1"))
		require.NoError(t, repo.AddPaymentMethod(ctx, "a@example.com", "pm_1"))
	}
	subs, err := repo.ListSubscriptions(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"sub_1"}, subs)

	pms, err := repo.ListPaymentMethods(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"pm_1"}, pms)

	require.NoError(t, repo.RemoveSubscription(ctx, nil, "sub_1"))
	require.NoError(t, repo.RemoveSubscription(ctx, nil, "sub_1"))
	subs, err = repo.ListSubscriptions(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Empty(t, subs)
}

func TestSubscriptionSnapshotOrdering(t *testing.T) {
	ctx := context.Background()
	repo := NewSubscriptionRepository(newTestDB(t))
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	stamp := time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)

	sub := &model.Subscription{ID: "sub_1", CustomerID: "cus_a", Status: model.SubscriptionIncomplete, SourceEventAt: t0}
	require.NoError(t, repo.InsertIfAbsent(ctx, nil, sub))
	require.NoError(t, repo.InsertIfAbsent(ctx, nil, &model.Subscription{ID: "sub_1", Status: model.SubscriptionActive}))

	applied, err := repo.ApplySnapshot(ctx, nil, &model.Subscription{ID: "sub_1", CustomerID: "cus_a", Status: model.SubscriptionActive, SourceEventAt: t0.Add(2 * time.Minute)}, stamp)
	require.NoError(t, err)
	assert.True(t, applied)

	// older snapshot is ignored
	applied, err = repo.ApplySnapshot(ctx, nil, &model.Subscription{ID: "sub_1", CustomerID: "cus_a", Status: model.SubscriptionPastDue, SourceEventAt: t0.Add(time.Minute)}, stamp)
	require.NoError(t, err)
	assert.False(t, applied)

	require.NoError(t, repo.MarkCanceled(ctx, nil, &model.Subscription{ID: "sub_1", SourceEventAt: t0.Add(3 * time.Minute)}, stamp.Add(time.Hour)))

	applied, err = repo.ApplySnapshot(ctx, nil, &model.Subscription{ID: "sub_1", Status: model.SubscriptionActive, SourceEventAt: t0.Add(time.Hour)}, stamp)
	require.NoError(t, err)
	assert.False(t, applied)

	got, err := repo.GetBySubscriptionID(ctx, "sub_1")
	require.NoError(t, err)
	assert.Equal(t, model.SubscriptionCanceled, got.Status)
	assert.NotNil(t, got.CanceledAt)
	assert.True(t, got.UpdatedAt.Equal(stamp.Add(time.Hour)))
}

func TestSubscriptionInsertedWithoutEventTime(t *testing.T) {
	ctx := context.Background()
	repo := NewSubscriptionRepository(newTestDB(t))

	require.NoError(t, repo.InsertIfAbsent(ctx, nil, &model.Subscription{ID: "sub_local", CustomerID: "cus_a", Status: model.SubscriptionIncomplete}))

	got, err := repo.GetBySubscriptionID(ctx, "sub_local")
	require.NoError(t, err)
	assert.True(t, got.SourceEventAt.Equal(model.SnapshotFloor))

	applied, err := repo.ApplySnapshot(ctx, nil, &model.Subscription{
		ID: "sub_local", CustomerID: "cus_a", Status: model.SubscriptionActive,
		SourceEventAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}, time.Date(2024, 1, 1, 0, 0, 1, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, applied)
}

func TestOrphanLinkOnce(t *testing.T) {
	ctx := context.Background()
	repo := NewOrphanPaymentRepository(newTestDB(t))

	require.NoError(t, repo.Record(ctx, nil, &model.OrphanPayment{IntentID: "pi_9", OrderID: "ORD-9", AmountMinor: 100, Currency: "usd"}))
	require.NoError(t, repo.Record(ctx, nil, &model.OrphanPayment{IntentID: "pi_9", OrderID: "ORD-9", AmountMinor: 100, Currency: "usd"}))

	found, err := repo.FindUnlinked(ctx, nil, "ORD-9", "")
	require.NoError(t, err)
	require.Len(t, found, 1)

	ok, err := repo.MarkLinked(ctx, nil, "pi_9", "ORD-9", time.Now())
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = repo.MarkLinked(ctx, nil, "pi_9", "ORD-9", time.Now())
	require.NoError(t, err)
	assert.False(t, ok)

	found, err = repo.FindUnlinked(ctx, nil, "", "pi_9")
	require.NoError(t, err)
	assert.Empty(t, found)
}
