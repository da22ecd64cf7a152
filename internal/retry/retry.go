// Package retry wraps external tool calls in an explicit retry policy:
// a fixed attempt budget with linearly growing delay (delay × attempt) and
// a predicate deciding which failures are worth retrying.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/verticut/verticut/internal/logger"
)

// linearBackOff grows the wait as baseDelay × attempt.
type linearBackOff struct {
	baseDelay time.Duration
	attempt   int
}

func (b *linearBackOff) NextBackOff() time.Duration {
	b.attempt++
	return b.baseDelay * time.Duration(b.attempt)
}

func (b *linearBackOff) Reset() { b.attempt = 0 }

// Do runs fn up to attempts times. Failures for which retryable returns
// false abort immediately; ctx cancellation stops the waits. A nil
// retryable treats every error as retryable.
func Do(ctx context.Context, attempts int, baseDelay time.Duration, retryable func(error) bool, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}

	wrapped := func() error {
		err := fn()
		if err == nil {
			return nil
		}
		if retryable != nil && !retryable(err) {
			return backoff.Permanent(err)
		}
		logger.Warn("Attempt failed, will retry", "error", err)
		return err
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(&linearBackOff{baseDelay: baseDelay}, uint64(attempts-1)),
		ctx,
	)
	return backoff.Retry(wrapped, policy)
}
