package service

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"storefront-payments/internal/client"
	"storefront-payments/internal/client/clienttest"
	"storefront-payments/internal/clock"
	"storefront-payments/internal/config"
	"storefront-payments/internal/dto"
	"storefront-payments/internal/model"
	"storefront-payments/internal/repository"
)

const testWebhookSecret = "whsec_test"

var testStart = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	db       *gorm.DB
	clock    *clock.Fixed
	fake     *clienttest.Fake
	verifier client.WebhookVerifier

	orders        repository.OrderRepository
	payments      repository.PaymentRepository
	orphans       repository.OrphanPaymentRepository
	customers     repository.CustomerRepository
	subscriptions repository.SubscriptionRepository
	events        repository.WebhookEventRepository

	reconciler      Reconciler
	intents         IntentService
	confirm         ConfirmService
	webhooks        WebhookService
	orderSvc        OrderService
	customerSvc     CustomerService
	subscriptionSvc SubscriptionService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := client.OpenMemory(uuid.NewString())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	log := discardLogger()
	clk := clock.NewFixed(testStart)
	fake := &clienttest.Fake{}
	retry := RetryPolicy{Attempts: 2, Backoff: time.Millisecond}

	env := &testEnv{
		db:            db,
		clock:         clk,
		fake:          fake,
		orders:        repository.NewOrderRepository(db),
		payments:      repository.NewPaymentRepository(db),
		orphans:       repository.NewOrphanPaymentRepository(db),
		customers:     repository.NewCustomerRepository(db),
		subscriptions: repository.NewSubscriptionRepository(db),
		events:        repository.NewWebhookEventRepository(db),
	}

	transitioner := NewOrderTransitioner(db, env.orders, clk)
	env.reconciler = NewReconciler(db, log, clk, env.orders, env.payments, env.orphans, env.customers, env.subscriptions)
	verifier := client.NewWebhookVerifier(&config.Stripe{WebhookSecret: testWebhookSecret, WebhookTolerance: 5 * time.Minute})

	env.verifier = verifier
	env.intents = NewIntentService(log, fake, retry, transitioner, env.orders, env.reconciler)
	env.confirm = NewConfirmService(log, fake, retry, transitioner, env.orders, env.reconciler)
	env.webhooks = NewWebhookService(log, clk, verifier, env.events, env.reconciler)
	env.orderSvc = NewOrderService(log, clk, transitioner, env.orders, env.reconciler)
	env.customerSvc = NewCustomerService(log, fake, retry, env.customers)
	env.subscriptionSvc = NewSubscriptionService(db, log, fake, retry, env.subscriptions, env.customers)
	return env
}

func (e *testEnv) createOrder(t *testing.T, id, amount string) *dto.Order {
	t.Helper()
	order, err := e.orderSvc.Create(context.Background(), &dto.CreateOrderRequest{
		OrderID:       id,
		CustomerEmail: "buyer@example.com",
		Amount:        decimal.NewNullDecimal(decimal.RequireFromString(amount)),
	})
	require.NoError(t, err)
	return order
}

func (e *testEnv) order(t *testing.T, id string) *model.Order {
	t.Helper()
	order, err := e.orders.FindByID(context.Background(), nil, id)
	require.NoError(t, err)
	return order
}

// deliver signs payload the way the processor does and hands it to the
// receiver.
func (e *testEnv) deliver(t *testing.T, payload []byte) error {
	t.Helper()
	return e.webhooks.Receive(context.Background(), payload, client.SignPayload(testWebhookSecret, time.Now(), payload))
}

func eventPayload(t *testing.T, id, kind string, created time.Time, object any) []byte {
	t.Helper()
	raw, err := json.Marshal(map[string]any{
		"id":      id,
		"object":  "event",
		"type":    kind,
		"created": created.Unix(),
		"data":    map[string]any{"object": object},
	})
	require.NoError(t, err)
	return raw
}

func intentObject(intentID, orderID string, amount int64) map[string]any {
	obj := map[string]any{
		"id":             intentID,
		"object":         "payment_intent",
		"amount":         amount,
		"currency":       "usd",
		"payment_method": "pm_card_visa",
	}
	if orderID != "" {
		obj["metadata"] = map[string]string{model.MetadataOrderID: orderID}
	}
	return obj
}

func succeededEvent(t *testing.T, eventID, intentID, orderID string, amount int64) []byte {
	return eventPayload(t, eventID, string(model.KindPaymentSucceeded), testStart, intentObject(intentID, orderID, amount))
}

func failedEvent(t *testing.T, eventID, intentID, orderID string) []byte {
	obj := intentObject(intentID, orderID, 0)
	obj["last_payment_error"] = map[string]string{"message": "Your card was declined."}
	return eventPayload(t, eventID, string(model.KindPaymentFailed), testStart, obj)
}

func subscriptionEvent(t *testing.T, eventID string, kind model.EventKind, created time.Time, subID, customer, status string) []byte {
	return eventPayload(t, eventID, string(kind), created, map[string]any{
		"id":                   subID,
		"object":               "subscription",
		"customer":             customer,
		"status":               status,
		"current_period_start": created.Unix(),
		"current_period_end":   created.Add(30 * 24 * time.Hour).Unix(),
		"items": map[string]any{
			"data": []any{map[string]any{"price": map[string]string{"id": "price_basic"}}},
		},
	})
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
