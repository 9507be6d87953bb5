// Command ledger maintains the webhook event ledger: it lists and replays
// events that never finished processing and prunes processed rows past the
// retention window.
//
//	ledger list   [-older-than 10m]
//	ledger replay -event evt_123 | -all [-older-than 10m]
//	ledger prune  [-retention 720h]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"

	"storefront-payments/internal/client"
	"storefront-payments/internal/clock"
	"storefront-payments/internal/config"
	"storefront-payments/internal/logger"
	"storefront-payments/internal/repository"
	"storefront-payments/internal/server"
	"storefront-payments/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found (ok in prod)")
	}

	if len(os.Args) < 2 {
		usage()
	}
	cmd, args := os.Args[1], os.Args[2:]

	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	eventID := fs.String("event", "", "Event ID to replay")
	all := fs.Bool("all", false, "Replay every unprocessed event")
	olderThan := fs.Duration("older-than", 10*time.Minute, "Only events received at least this long ago")
	retention := fs.Duration("retention", 0, "Prune processed events older than this (default LEDGER_RETENTION)")
	limit := fs.Int("limit", 500, "Maximum events to list or replay")
	_ = fs.Parse(args)

	cfg := &config.Config{}
	if err := env.Parse(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(os.Stderr, cfg.Log)

	db, err := client.InitDB(cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Database init failed: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	clk := clock.Real()
	events := repository.NewWebhookEventRepository(db)
	// replay never verifies signatures, the processor client is not used
	services := server.BuildServices(db, log, clk, nil, client.NewWebhookVerifier(&cfg.Stripe), service.RetryPolicyFrom(&cfg.Stripe))

	switch cmd {
	case "list":
		rows, err := events.ListUnprocessed(ctx, clk.Now().Add(-*olderThan), *limit)
		exitOn(err)
		for _, row := range rows {
			reason := ""
			if row.ProcessError != nil {
				reason = *row.ProcessError
			}
			fmt.Printf("%s\t%s\t%s\t%s\n", row.EventID, row.EventType, row.ReceivedAt.Format(time.RFC3339), reason)
		}

	case "replay":
		ids := []string{*eventID}
		if *all {
			rows, err := events.ListUnprocessed(ctx, clk.Now().Add(-*olderThan), *limit)
			exitOn(err)
			ids = ids[:0]
			for _, row := range rows {
				ids = append(ids, row.EventID)
			}
		} else if *eventID == "" {
			usage()
		}

		failed := 0
		for _, id := range ids {
			if err := services.Webhooks.Replay(ctx, id); err != nil {
				failed++
				fmt.Printf("%s\tFAILED\t%v\n", id, err)
				continue
			}
			fmt.Printf("%s\tok\n", id)
		}
		if failed > 0 {
			os.Exit(1)
		}

	case "prune":
		window := *retention
		if window == 0 {
			window = cfg.Ledger.Retention
		}
		n, err := events.PruneBefore(ctx, clk.Now().Add(-window))
		exitOn(err)
		fmt.Printf("pruned %d events received before %s\n", n, clk.Now().Add(-window).Format(time.RFC3339))

	default:
		usage()
	}
}

func exitOn(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: ledger list|replay|prune [flags]")
	os.Exit(2)
}
