package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/verticut/verticut/internal/retry"
)

func TestDoSucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	err := retry.Do(context.Background(), 3, time.Millisecond, nil, func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, attempts)
}

func TestDoExhaustsAttempts(t *testing.T) {
	attempts := 0
	boom := errors.New("boom")
	err := retry.Do(context.Background(), 3, time.Millisecond, nil, func() error {
		attempts++
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.Equal(t, 3, attempts)
}

func TestDoStopsOnNonRetryable(t *testing.T) {
	attempts := 0
	fatal := errors.New("fatal")
	err := retry.Do(context.Background(), 5, time.Millisecond, func(err error) bool {
		return !errors.Is(err, fatal)
	}, func() error {
		attempts++
		return fatal
	})
	require.ErrorIs(t, err, fatal)
	require.Equal(t, 1, attempts, "non-retryable failures abort immediately")
}

func TestDoRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	err := retry.Do(ctx, 10, 50*time.Millisecond, nil, func() error {
		attempts++
		cancel()
		return errors.New("keep going")
	})
	require.Error(t, err)
	require.LessOrEqual(t, attempts, 2, "cancellation stops the waits")
}

func TestDoSingleAttemptMinimum(t *testing.T) {
	attempts := 0
	err := retry.Do(context.Background(), 0, time.Millisecond, nil, func() error {
		attempts++
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 1, attempts)
}
