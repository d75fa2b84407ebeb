package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pharbi/arachnid/internal/core"
)

func TestWithRetrySucceedsAfterTransientStoreUnavailable(t *testing.T) {
	attempts := 0
	got, err := WithRetry(context.Background(), RetryConfig{MaxAttempts: 5}, func() (string, error) {
		attempts++
		if attempts < 3 {
			return "", core.ErrStoreUnavailable
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, attempts)
}

func TestWithRetryDoesNotRetryNonRetryableError(t *testing.T) {
	attempts := 0
	_, err := WithRetry(context.Background(), RetryConfig{MaxAttempts: 5}, func() (string, error) {
		attempts++
		return "", core.ErrAgentNotFound
	})
	assert.ErrorIs(t, err, core.ErrAgentNotFound)
	assert.Equal(t, 1, attempts)
}

func TestWithRetryGivesUpAfterMaxAttempts(t *testing.T) {
	attempts := 0
	_, err := WithRetry(context.Background(), RetryConfig{MaxAttempts: 2}, func() (string, error) {
		attempts++
		return "", fmt.Errorf("wrapped: %w", core.ErrStoreUnavailable)
	})
	assert.Error(t, err)
	assert.Equal(t, 2, attempts)
}
