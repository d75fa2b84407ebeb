package store

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/Pharbi/arachnid/internal/core"
)

// RetryConfig configures WithRetry, the bounded exponential-backoff wrapper
// spec §7 calls for around a StoreUnavailable condition, grounded on
// resilience/retry.go's RetryConfig/Retry shape but built on
// cenkalti/backoff/v5's BackOff instead of a hand-rolled timer loop.
type RetryConfig struct {
	MaxAttempts uint
}

// DefaultRetryConfig matches resilience/retry.go's defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxAttempts: 3}
}

// WithRetry runs fn, retrying with exponential backoff (100ms initial
// interval, doubling per attempt, with the library's default jitter) while
// the returned error satisfies core.IsRetryable: ErrStoreUnavailable,
// ErrProviderTimeout or ErrProviderRateLimit. Any other error returns
// immediately via backoff.Permanent.
func WithRetry[T any](ctx context.Context, cfg RetryConfig, fn func() (T, error)) (T, error) {
	op := func() (T, error) {
		v, err := fn()
		if err == nil {
			return v, nil
		}
		if !core.IsRetryable(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.Multiplier = 2
	return backoff.Retry(ctx, op, backoff.WithBackOff(b), backoff.WithMaxTries(cfg.MaxAttempts))
}
