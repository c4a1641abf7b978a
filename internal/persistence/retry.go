package persistence

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryConfig configures exponential backoff for history writes. Another
// dmake writing to the same database can hold the lock past the busy timeout.
type RetryConfig struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration // Gives up after this long
	Multiplier      float64
}

// DefaultRetryConfig returns the retry policy used for history writes.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		InitialInterval: 50 * time.Millisecond,
		MaxInterval:     time.Second,
		MaxElapsedTime:  5 * time.Second,
		Multiplier:      2.0,
	}
}

// SaveRunWithRetry saves run, retrying failed writes with exponential backoff
// until cfg.MaxElapsedTime passes or ctx is done.
func SaveRunWithRetry(ctx context.Context, store Store, run *Run, cfg RetryConfig) error {
	operation := func() error {
		// Check context first - fail fast if cancelled
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		return store.SaveRun(ctx, run)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = cfg.InitialInterval
	policy.MaxInterval = cfg.MaxInterval
	policy.MaxElapsedTime = cfg.MaxElapsedTime
	policy.Multiplier = cfg.Multiplier

	return backoff.Retry(operation, backoff.WithContext(policy, ctx))
}
