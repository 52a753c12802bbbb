// Package retry runs an operation a bounded number of times with linear backoff.
package retry

import (
	"context"
	"errors"
	"time"
)

// Policy bounds the retries. Attempts includes the first call.
type Policy struct {
	Attempts int
	Backoff  time.Duration
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as final: Do returns it unwrapped without another attempt.
// Use it for failures after a write that may have committed.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Do calls fn until it succeeds, retryable reports false for its error, the attempts
// run out or ctx is done. The last error is returned.
func Do(ctx context.Context, p Policy, retryable func(error) bool, fn func(context.Context) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for attempt := 1; ; attempt++ {
		err = fn(ctx)
		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		if err == nil || attempt >= attempts || !retryable(err) {
			return err
		}
		timer := time.NewTimer(p.Backoff * time.Duration(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
	}
}
