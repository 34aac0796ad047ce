// Package retry runs calls to external services with bounded retries on
// transient failures and paces calls per service.
package retry

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/wikidigest"
)

// DefaultDelays returns the backoff delays between attempts: 1s, 2s, 4s.
func DefaultDelays() []time.Duration {
	return []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}
}

// Policy describes how a call is retried.
type Policy struct {
	// Delays holds the wait before each retry; its length is the retry count.
	Delays []time.Duration

	// Retryable decides whether an error is worth another attempt.
	// Defaults to wikidigest.IsTransient.
	Retryable func(error) bool

	Logger *slog.Logger
}

// Default returns the policy used for every external service.
func Default(logger *slog.Logger) Policy {
	return Policy{Delays: DefaultDelays(), Logger: logger}
}

// Do calls fn until it succeeds, returns a non-retryable error, or the
// delays run out. The last error is returned.
func Do[T any](ctx context.Context, p Policy, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	retryable := p.Retryable
	if retryable == nil {
		retryable = wikidigest.IsTransient
	}
	maxAttempts := len(p.Delays) + 1

	var zero T
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err

		if !retryable(err) || attempt >= maxAttempts-1 {
			break
		}

		if err := ctx.Err(); err != nil {
			return zero, err
		}

		if p.Logger != nil {
			p.Logger.Warn("retrying", "op", op, "attempt", attempt+2, "err", err)
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(p.Delays[attempt]):
		}
	}

	return zero, lastErr
}
