// Command mockwebhook signs a processor-shaped event with the webhook secret
// and posts it to a running API, for local development.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"storefront-payments/internal/client"
	"storefront-payments/internal/model"
)

func main() {
	_ = godotenv.Load()

	url := flag.String("url", "http://localhost:8080/webhooks/payments", "Webhook URL")
	secret := flag.String("secret", os.Getenv("STRIPE_WEBHOOK_SECRET"), "Webhook secret")
	eventID := flag.String("event-id", "evt_"+shortID(), "Event ID")
	eventType := flag.String("type", string(model.KindPaymentSucceeded), "Event type (payment_intent.succeeded, payment_intent.payment_failed, customer.subscription.created|updated|deleted)")
	intentID := flag.String("intent", "pi_"+shortID(), "Intent ID (payment events)")
	orderID := flag.String("order", "", "Order ID placed in intent metadata")
	amount := flag.Int64("amount", 4550, "Amount in minor units")
	currency := flag.String("currency", "usd", "Currency")
	subscriptionID := flag.String("subscription", "sub_"+shortID(), "Subscription ID (subscription events)")
	customerID := flag.String("customer", "", "Processor customer ID (subscription events)")
	status := flag.String("status", "active", "Subscription status")
	dryRun := flag.Bool("dry-run", false, "Only print signature header, don't send")

	flag.Parse()

	if *secret == "" {
		fmt.Fprintf(os.Stderr, "Error: secret not provided and STRIPE_WEBHOOK_SECRET not set\n")
		os.Exit(1)
	}

	now := time.Now()
	var object map[string]any
	if strings.HasPrefix(*eventType, "customer.subscription.") {
		object = map[string]any{
			"id":                   *subscriptionID,
			"object":               "subscription",
			"customer":             *customerID,
			"status":               *status,
			"current_period_start": now.Unix(),
			"current_period_end":   now.AddDate(0, 1, 0).Unix(),
		}
	} else {
		object = map[string]any{
			"id":       *intentID,
			"object":   "payment_intent",
			"amount":   *amount,
			"currency": *currency,
			"metadata": map[string]string{model.MetadataOrderID: *orderID},
		}
		if *eventType == string(model.KindPaymentFailed) {
			object["last_payment_error"] = map[string]string{"message": "Your card was declined."}
		}
	}

	body, err := json.Marshal(map[string]any{
		"id":      *eventID,
		"object":  "event",
		"type":    *eventType,
		"created": now.Unix(),
		"data":    map[string]any{"object": object},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling payload: %v\n", err)
		os.Exit(1)
	}

	sigHeader := client.SignPayload(*secret, now, body)

	fmt.Printf("%s: %s\n", client.SignatureHeader, sigHeader)
	fmt.Printf("Body: %s\n", string(body))

	if *dryRun {
		fmt.Println("\n[DRY RUN] Not sending request")
		return
	}

	fmt.Printf("\nSending to %s...\n", *url)
	req, err := http.NewRequest(http.MethodPost, *url, bytes.NewReader(body))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating request: %v\n", err)
		os.Exit(1)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(client.SignatureHeader, sigHeader)

	httpClient := &http.Client{Timeout: 10 * time.Second}
	resp, err := httpClient.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error sending request: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	fmt.Printf("Status: %d\n", resp.StatusCode)
	fmt.Printf("Response: %s\n", string(respBody))

	if resp.StatusCode != http.StatusOK {
		os.Exit(1)
	}
}

func shortID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}
