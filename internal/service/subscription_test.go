package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-payments/internal/apperr"
	"storefront-payments/internal/dto"
	"storefront-payments/internal/model"
)

func TestCreateSubscription(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	require.NoError(t, env.customers.Upsert(ctx, &model.Customer{ID: "sub@example.com", Name: "S", BillingID: "cus_s"}))

	resp, err := env.subscriptionSvc.Create(ctx, &dto.CreateSubscriptionRequest{CustomerID: "sub@example.com", PriceID: "price_basic"}, "")
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "sub_fake", resp.SubscriptionID)
	assert.Equal(t, "incomplete", resp.Status)
	require.NotNil(t, resp.ClientSecret)
	assert.Equal(t, "pi_sub_secret", *resp.ClientSecret)

	row, err := env.subscriptions.GetBySubscriptionID(ctx, "sub_fake")
	require.NoError(t, err)
	assert.Equal(t, "cus_s", row.CustomerID)
	require.NotNil(t, row.CurrentPeriodStart)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), row.CurrentPeriodStart.UTC())
	assert.Equal(t, time.Unix(1702592000, 0).UTC(), row.CurrentPeriodEnd.UTC())
	assert.True(t, row.SourceEventAt.Equal(model.SnapshotFloor))

	subs, err := env.customers.ListSubscriptions(ctx, "sub@example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"sub_fake"}, subs)

	// the activation webhook overrides the locally stored status
	env.clock.Advance(time.Minute)
	require.NoError(t, env.deliver(t, subscriptionEvent(t, "evt_act", model.KindSubscriptionUpdated, testStart, "sub_fake", "cus_s", "active")))
	row, err = env.subscriptions.GetBySubscriptionID(ctx, "sub_fake")
	require.NoError(t, err)
	assert.Equal(t, model.SubscriptionActive, row.Status)
	assert.True(t, row.UpdatedAt.Equal(testStart.Add(time.Minute)))
}

func TestCreateSubscriptionValidation(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.subscriptionSvc.Create(context.Background(), &dto.CreateSubscriptionRequest{PriceID: "price_basic"}, "")
	assert.True(t, apperr.Is(err, apperr.Validation))

	_, err = env.subscriptionSvc.Create(context.Background(), &dto.CreateSubscriptionRequest{CustomerID: "cus_s"}, "")
	assert.True(t, apperr.Is(err, apperr.Validation))
}

func TestCancelSubscriptionIsAsynchronous(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	_, err := env.subscriptionSvc.Create(ctx, &dto.CreateSubscriptionRequest{CustomerID: "cus_s", PriceID: "price_basic"}, "")
	require.NoError(t, err)

	resp, err := env.subscriptionSvc.Cancel(ctx, &dto.CancelSubscriptionRequest{SubscriptionID: "sub_fake"})
	require.NoError(t, err)
	assert.Equal(t, "cancel_requested", resp.Status)
	assert.Equal(t, []string{"sub_fake"}, env.fake.CancelCalls)

	row, err := env.subscriptions.GetBySubscriptionID(ctx, "sub_fake")
	require.NoError(t, err)
	assert.Equal(t, model.SubscriptionIncomplete, row.Status)
}
