// Package retry provides bounded retry with exponential backoff for
// operations against remote systems.
package retry

import (
	"context"
	"time"
)

// maxDelay caps the exponential growth of the wait between attempts.
const maxDelay = 30 * time.Second

// Do calls fn up to attempts times, waiting delay between the first two
// attempts and doubling the wait after each failure, capped at maxDelay.
// It returns nil on the first success, the last error once the budget is
// exhausted, or the context error if ctx is done while waiting.
func Do(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	_, err := DoResult(ctx, attempts, delay, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// DoResult is Do for functions that produce a value along with their error.
func DoResult[T any](ctx context.Context, attempts int, delay time.Duration, fn func() (T, error)) (T, error) {
	var result T
	var err error

	for attempt := 1; ; attempt++ {
		if result, err = fn(); err == nil {
			return result, nil
		}
		if attempt >= attempts {
			return result, err
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return result, ctx.Err()
		}
		if delay *= 2; delay > maxDelay {
			delay = maxDelay
		}
	}
}
