package server

import (
	"log/slog"

	"gorm.io/gorm"

	"storefront-payments/internal/client"
	"storefront-payments/internal/clock"
	"storefront-payments/internal/repository"
	"storefront-payments/internal/service"
)

// BuildServices wires repositories and services over one database handle.
func BuildServices(
	db *gorm.DB,
	log *slog.Logger,
	clk clock.Clock,
	paymentClient client.PaymentClient,
	verifier client.WebhookVerifier,
	retry service.RetryPolicy,
) Services {
	orderRepo := repository.NewOrderRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	orphanRepo := repository.NewOrphanPaymentRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	subscriptionRepo := repository.NewSubscriptionRepository(db)
	webhookEventRepo := repository.NewWebhookEventRepository(db)

	transitioner := service.NewOrderTransitioner(db, orderRepo, clk)
	reconciler := service.NewReconciler(db, log, clk, orderRepo, paymentRepo, orphanRepo, customerRepo, subscriptionRepo)

	return Services{
		Intents:       service.NewIntentService(log, paymentClient, retry, transitioner, orderRepo, reconciler),
		Confirm:       service.NewConfirmService(log, paymentClient, retry, transitioner, orderRepo, reconciler),
		Webhooks:      service.NewWebhookService(log, clk, verifier, webhookEventRepo, reconciler),
		Customers:     service.NewCustomerService(log, paymentClient, retry, customerRepo),
		Subscriptions: service.NewSubscriptionService(db, log, paymentClient, retry, subscriptionRepo, customerRepo),
		Orders:        service.NewOrderService(log, clk, transitioner, orderRepo, reconciler),
	}
}
