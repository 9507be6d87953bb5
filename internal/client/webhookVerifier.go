package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/webhook"

	"storefront-payments/internal/apperr"
	"storefront-payments/internal/config"
	"storefront-payments/internal/model"
)

const SignatureHeader = "Stripe-Signature"

type WebhookVerifier interface {
	// Verify checks the signature over the raw body and decodes the event.
	Verify(payload []byte, signatureHeader string) (model.Event, error)
}

type stripeWebhookVerifier struct {
	secret    string
	tolerance time.Duration
}

func NewWebhookVerifier(cfg *config.Stripe) WebhookVerifier {
	return &stripeWebhookVerifier{
		secret:    cfg.WebhookSecret,
		tolerance: cfg.WebhookTolerance,
	}
}

func (v *stripeWebhookVerifier) Verify(payload []byte, signatureHeader string) (model.Event, error) {
	if signatureHeader == "" {
		return nil, apperr.IntegrityErr(webhook.ErrNotSigned)
	}
	if v.secret == "" {
		return nil, apperr.IntegrityErr(errors.New("webhook secret not configured"))
	}
	if err := webhook.ValidatePayloadWithTolerance(payload, signatureHeader, v.secret, v.tolerance); err != nil {
		return nil, apperr.IntegrityErr(err)
	}

	return DecodePayload(payload)
}

// DecodePayload decodes a raw event envelope without checking a signature.
// Only payloads already verified and stored in the ledger may be passed here.
func DecodePayload(payload []byte) (model.Event, error) {
	var envelope stripe.Event
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, apperr.ValidationErr(fmt.Sprintf("invalid event payload: %v", err))
	}
	if envelope.Data == nil {
		return nil, apperr.ValidationErr("event payload missing data")
	}

	ev, err := model.DecodeEvent(envelope.ID, string(envelope.Type), envelope.Created, envelope.Data.Raw)
	if err != nil {
		return nil, apperr.ValidationErr(err.Error())
	}
	return ev, nil
}

// SignPayload produces a signature header in the processor's scheme
// (t=<unix>,v1=<hex hmac-sha256 of "t.payload">). Used by tooling and tests.
func SignPayload(secret string, t time.Time, payload []byte) string {
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: t,
	})
	return signed.Header
}
