package httputil

import (
	"context"
	"errors"
	"time"
)

// RetryableError marks an error as transient. The scoring client wraps
// network failures and 5xx/429 responses with it; anything else (bad
// request, auth failure) is returned to the caller on the first attempt.
type RetryableError struct{ Err error }

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Retry executes fn up to attempts times, doubling delay between tries.
// Only errors wrapped in [RetryableError] trigger another attempt; other
// errors return immediately. If every attempt fails, the last error is
// returned; a cancelled context returns ctx.Err().
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	attempts = max(attempts, 1)
	var lastErr error

	for i := range attempts {
		if err := fn(); err == nil {
			return nil
		} else if lastErr = err; !isRetryable(err) {
			return err
		}

		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				delay *= 2
			}
		}
	}
	return lastErr
}

// RetryWithBackoff runs fn with the defaults used for scoring-API calls:
// 3 attempts starting at 2 seconds, which clears the API's per-minute
// rate window before the final try.
func RetryWithBackoff(ctx context.Context, fn func() error) error {
	return Retry(ctx, 3, 2*time.Second, fn)
}

func isRetryable(err error) bool {
	return errors.As(err, new(*RetryableError))
}
