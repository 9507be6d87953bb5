package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"storefront-payments/internal/config"
	"storefront-payments/internal/handler"
	appmw "storefront-payments/internal/middleware"
	"storefront-payments/internal/service"
)

type Services struct {
	Intents       service.IntentService
	Confirm       service.ConfirmService
	Webhooks      service.WebhookService
	Customers     service.CustomerService
	Subscriptions service.SubscriptionService
	Orders        service.OrderService
}

type Server struct {
	echo                *echo.Echo
	paymentHandler      *handler.PaymentHandler
	customerHandler     *handler.CustomerHandler
	subscriptionHandler *handler.SubscriptionHandler
	orderHandler        *handler.OrderHandler
}

func NewServer(log *slog.Logger, cfg config.HTTPServer, services Services) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handler.ErrorHandler(log)

	e.Use(middleware.RequestID())
	e.Use(appmw.ContextLogger(log))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"request_id", v.RequestID,
			}
			if v.Error != nil {
				attrs = append(attrs, "err", v.Error)
			}
			log.InfoContext(c.Request().Context(), "request", attrs...)
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	if cfg.BodyLimit != "" {
		e.Use(middleware.BodyLimit(cfg.BodyLimit))
	}

	s := &Server{
		echo:                e,
		paymentHandler:      handler.NewPaymentHandler(services.Intents, services.Confirm, services.Webhooks),
		customerHandler:     handler.NewCustomerHandler(services.Customers),
		subscriptionHandler: handler.NewSubscriptionHandler(services.Subscriptions),
		orderHandler:        handler.NewOrderHandler(services.Orders),
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// -------- payments --------
	s.echo.POST("/intents", s.paymentHandler.CreateIntent)
	s.echo.POST("/charges/confirm", s.paymentHandler.ConfirmCharge)

	// -------- processor webhooks --------
	s.echo.POST("/webhooks/payments", s.paymentHandler.Webhook)

	// -------- customers / subscriptions --------
	s.echo.POST("/customers", s.customerHandler.Upsert)
	s.echo.POST("/subscriptions", s.subscriptionHandler.Create)
	s.echo.POST("/subscriptions/cancel", s.subscriptionHandler.Cancel)

	// -------- orders --------
	s.echo.POST("/orders", s.orderHandler.Create)
	s.echo.GET("/orders/:id", s.orderHandler.Get)
	s.echo.POST("/orders/:id/cancel", s.orderHandler.Cancel)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
