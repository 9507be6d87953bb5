package service

import (
	"context"
	"log/slog"
	"time"

	"storefront-payments/internal/apperr"
	"storefront-payments/internal/config"
)

// RetryPolicy bounds retries of transient processor failures. Attempts
// counts retries after the first call.
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
}

func RetryPolicyFrom(cfg *config.Stripe) RetryPolicy {
	return RetryPolicy{Attempts: cfg.MaxRetries, Backoff: cfg.RetryBackoff}
}

// withRetry calls fn until it succeeds, fails with a non-transient error or
// the policy is exhausted. fn must reuse the same idempotency key on every
// call.
func withRetry[T any](ctx context.Context, log *slog.Logger, policy RetryPolicy, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	backoff := policy.Backoff

	for attempt := 0; ; attempt++ {
		res, err := fn(ctx)
		if err == nil {
			return res, nil
		}
		if !apperr.Is(err, apperr.Transient) || attempt >= policy.Attempts {
			return zero, err
		}

		log.WarnContext(ctx, "transient processor failure, retrying",
			"op", op, "attempt", attempt+1, "backoff", backoff, "err", err)

		select {
		case <-ctx.Done():
			return zero, apperr.TransientErr(ctx.Err())
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}
