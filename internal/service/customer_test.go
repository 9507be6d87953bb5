package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-payments/internal/apperr"
	"storefront-payments/internal/client"
	"storefront-payments/internal/dto"
)

func TestUpsertCustomerValidation(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.customerSvc.Upsert(context.Background(), &dto.UpsertCustomerRequest{Name: "No Email"})
	assert.Equal(t, "Email is required", apperr.PublicMessage(err))

	_, err = env.customerSvc.Upsert(context.Background(), &dto.UpsertCustomerRequest{Email: "a@example.com"})
	assert.Equal(t, "Name is required", apperr.PublicMessage(err))
}

func TestUpsertCustomerCreatesOnceAndAttaches(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	created := 0
	env.fake.CreateCustomerFunc = func(ctx context.Context, email, name string) (*client.BillingCustomer, error) {
		created++
		return &client.BillingCustomer{ID: "cus_new", Email: email, Name: name}, nil
	}

	resp, err := env.customerSvc.Upsert(ctx, &dto.UpsertCustomerRequest{Email: " Ann@Example.com ", Name: "Ann", PaymentMethodID: "pm_1"})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "cus_new", resp.CustomerID)

	resp, err = env.customerSvc.Upsert(ctx, &dto.UpsertCustomerRequest{Email: "ann@example.com", Name: "Ann B", PaymentMethodID: "pm_1"})
	require.NoError(t, err)
	assert.Equal(t, "cus_new", resp.CustomerID)
	assert.Equal(t, 1, created)

	customer, err := env.customers.FindByEmail(ctx, "ann@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Ann B", customer.Name)
	assert.Equal(t, "pm_1", customer.DefaultPaymentMethodID)

	methods, err := env.customers.ListPaymentMethods(ctx, "ann@example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"pm_1"}, methods)
	assert.Equal(t, []string{"pm_1", "pm_1"}, env.fake.AttachCalls)
}

func TestUpsertCustomerReusesProcessorCustomer(t *testing.T) {
	env := newTestEnv(t)
	env.fake.FindCustomerByEmailFunc = func(ctx context.Context, email string) (*client.BillingCustomer, error) {
		return &client.BillingCustomer{ID: "cus_existing", Email: email}, nil
	}
	env.fake.CreateCustomerFunc = func(ctx context.Context, email, name string) (*client.BillingCustomer, error) {
		t.Fatal("customer must not be created")
		return nil, nil
	}

	resp, err := env.customerSvc.Upsert(context.Background(), &dto.UpsertCustomerRequest{Email: "old@example.com", Name: "Old"})
	require.NoError(t, err)
	assert.Equal(t, "cus_existing", resp.CustomerID)
}
