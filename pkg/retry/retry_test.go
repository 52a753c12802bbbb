package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var (
	errTransient = errors.New("connection reset")
	errPolicy    = errors.New("policy")
)

func retryable(err error) bool { return !errors.Is(err, errPolicy) }

func TestDoRetriesTransientErrors(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Policy{Attempts: 3, Backoff: time.Millisecond}, retryable, func(context.Context) error {
		calls++
		if calls < 3 {
			return errTransient
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoGivesUp(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Policy{Attempts: 2, Backoff: time.Millisecond}, retryable, func(context.Context) error {
		calls++
		return errTransient
	})
	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, 2, calls)
}

func TestDoDoesNotRetryPolicyErrors(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Policy{Attempts: 5, Backoff: time.Millisecond}, retryable, func(context.Context) error {
		calls++
		return errPolicy
	})
	assert.ErrorIs(t, err, errPolicy)
	assert.Equal(t, 1, calls)
}

func TestDoStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Do(ctx, Policy{Attempts: 5, Backoff: time.Hour}, retryable, func(context.Context) error {
		calls++
		cancel()
		return errTransient
	})
	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, 1, calls)
}

func TestDoStopsOnPermanent(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Policy{Attempts: 5, Backoff: time.Millisecond}, retryable, func(context.Context) error {
		calls++
		return Permanent(errTransient)
	})
	assert.Equal(t, errTransient, err)
	assert.Equal(t, 1, calls)
	assert.NoError(t, Permanent(nil))
}
