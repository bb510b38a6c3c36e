// Package retry runs operations that can fail transiently, such as opening
// a database connection while the server is still starting.
package retry

import (
	"context"
	"errors"
	"time"
)

// Defaults used by [Do].
const (
	DefaultAttempts = 3
	DefaultDelay    = 250 * time.Millisecond
)

// TransientError marks an error as worth another attempt. Errors not
// wrapped in it end the retry loop at once.
type TransientError struct{ Err error }

func (e *TransientError) Error() string { return e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err as a [TransientError]. A nil err stays nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// IsTransient reports whether err is wrapped in a [TransientError].
func IsTransient(err error) bool {
	return errors.As(err, new(*TransientError))
}

// Retry calls fn up to attempts times, doubling delay after each transient
// failure. It returns the last error once attempts run out, or ctx.Err()
// when ctx ends while waiting.
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	attempts = max(attempts, 1)
	var lastErr error

	for i := range attempts {
		if err := fn(); err == nil {
			return nil
		} else if lastErr = err; !IsTransient(err) {
			return err
		}

		if i < attempts-1 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
				delay *= 2
			}
		}
	}
	return lastErr
}

// Do is [Retry] with [DefaultAttempts] and [DefaultDelay].
func Do(ctx context.Context, fn func() error) error {
	return Retry(ctx, DefaultAttempts, DefaultDelay, fn)
}
