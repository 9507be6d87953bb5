package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"

	"storefront-payments/internal/client"
	"storefront-payments/internal/clock"
	"storefront-payments/internal/config"
	"storefront-payments/internal/logger"
	"storefront-payments/internal/server"
	"storefront-payments/internal/service"
)

func main() {
	// load .env into os.Environ
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found (ok in prod)")
	}

	cfg := &config.Config{}
	if err := env.Parse(cfg); err != nil {
		fmt.Printf("Failed to parse config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(os.Stdout, cfg.Log).With("env", cfg.Environment.Name)

	db, err := client.InitDB(cfg.Database)
	if err != nil {
		log.Error("database init failed", "err", err)
		os.Exit(1)
	}

	paymentClient := client.NewStripeClient(&cfg.Stripe)
	verifier := client.NewWebhookVerifier(&cfg.Stripe)

	services := server.BuildServices(db, log, clock.Real(), paymentClient, verifier, service.RetryPolicyFrom(&cfg.Stripe))

	serverAddr := cfg.HTTP.Host + ":" + cfg.HTTP.Port

	// Init HTTP server
	srv := server.NewServer(log, cfg.HTTP, services)

	log.Info("starting HTTP server", "addr", serverAddr)
	go func() {
		if err := srv.Start(serverAddr); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", "err", err)
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	<-sigChan
	log.Info("signal received, starting graceful shutdown")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", "err", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}
