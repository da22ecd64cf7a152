package jobs_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/verticut/verticut/internal/jobs"
)

func TestErrorRetryability(t *testing.T) {
	tests := []struct {
		err       *jobs.Error
		retryable bool
	}{
		{jobs.Validationf("bad input"), false},
		{jobs.NotFoundf("missing"), false},
		{jobs.Fatalf("bug"), false},
		{jobs.Transient("net", errors.New("refused")), true},
		{jobs.Tool("ffmpeg failed", "stderr text", errors.New("exit 1")), true},
		{jobs.Timeout("deadline", nil), true},
	}
	for _, tt := range tests {
		require.Equal(t, tt.retryable, tt.err.Retryable(), "kind=%s", tt.err.Kind)
	}
}

func TestErrorMessageCarriesStderr(t *testing.T) {
	err := jobs.Tool("encoder failed", "last stderr line", errors.New("exit status 1"))
	require.Contains(t, err.Error(), "tool_failure")
	require.Contains(t, err.Error(), "encoder failed")
	require.Contains(t, err.Error(), "last stderr line")
	require.Contains(t, err.Error(), "exit status 1")
}

func TestErrorUnwrapsThroughWrapping(t *testing.T) {
	inner := jobs.Timeout("tool timed out", nil)
	wrapped := fmt.Errorf("download step: %w", inner)

	var he *jobs.Error
	require.ErrorAs(t, wrapped, &he)
	require.Equal(t, jobs.KindTimeout, he.Kind)
}
