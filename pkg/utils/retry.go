package utils

import (
	"context"
	"time"
)

// RetryConfig bounds the retry loop.
type RetryConfig struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	// ShouldRetry, when set, is consulted after each failure. Returning
	// false stops the loop and surfaces the error immediately.
	ShouldRetry func(error) bool
}

// DefaultRetryConfig suits short reads against flaky public APIs:
// three attempts starting at 100ms.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      10 * time.Second,
		BackoffFactor: 2.0,
	}
}

// RetryWithResult runs fn until it succeeds or the attempt budget is
// spent, scaling the delay by BackoffFactor between attempts. Context
// cancellation interrupts the backoff wait, not a running fn.
func RetryWithResult[T any](ctx context.Context, cfg RetryConfig, fn func() (T, error)) (T, error) {
	var zero T

	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	delay := cfg.InitialDelay
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if cfg.ShouldRetry != nil && !cfg.ShouldRetry(err) {
			return zero, err
		}
		if attempt == attempts {
			break
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}

		if delay = time.Duration(float64(delay) * cfg.BackoffFactor); delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}
	return zero, lastErr
}
