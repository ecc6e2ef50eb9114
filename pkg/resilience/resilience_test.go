package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errFlaky = errors.New("flaky")

func TestBackoffRetriesUntilSuccess(t *testing.T) {
	calls := 0
	err := Backoff{Attempts: 3, Initial: time.Millisecond}.Do(context.Background(), "fetch", func(context.Context) error {
		calls++
		if calls < 3 {
			return errFlaky
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestBackoffGivesUp(t *testing.T) {
	calls := 0
	err := Backoff{Attempts: 2, Initial: time.Millisecond}.Do(context.Background(), "fetch", func(context.Context) error {
		calls++
		return errFlaky
	})
	assert.ErrorIs(t, err, errFlaky)
	assert.ErrorContains(t, err, "after 2 attempts")
	assert.Equal(t, 2, calls)
}

func TestZeroBackoffTriesOnce(t *testing.T) {
	calls := 0
	err := Backoff{}.Do(context.Background(), "fetch", func(context.Context) error {
		calls++
		return errFlaky
	})
	assert.Equal(t, errFlaky, err)
	assert.Equal(t, 1, calls)
}

func TestPermanentStopsRetrying(t *testing.T) {
	calls := 0
	err := Backoff{Attempts: 5, Initial: time.Millisecond}.Do(context.Background(), "fetch", func(context.Context) error {
		calls++
		return Permanent(errFlaky)
	})
	assert.ErrorIs(t, err, errFlaky)
	assert.True(t, IsPermanent(err))
	assert.Equal(t, 1, calls)
	assert.Nil(t, Permanent(nil))
}

func TestBackoffHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	err := Backoff{Attempts: 5, Initial: time.Hour}.Do(ctx, "fetch", func(context.Context) error {
		cancel()
		return errFlaky
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBackoffDelayIsCapped(t *testing.T) {
	b := Backoff{Initial: time.Second, Max: 3 * time.Second, Multiplier: 2}.withDefaults()
	assert.Equal(t, time.Second, b.delay(1))
	assert.Equal(t, 2*time.Second, b.delay(2))
	assert.Equal(t, 3*time.Second, b.delay(5))
}

func TestBreakerOpensAndRecovers(t *testing.T) {
	now := time.Unix(0, 0)
	b := NewBreaker("redis", BreakerConfig{Threshold: 2, Cooldown: time.Minute})
	b.now = func() time.Time { return now }

	assert.ErrorIs(t, b.Do(func() error { return errFlaky }), errFlaky)
	assert.Equal(t, StateClosed, b.State())
	assert.ErrorIs(t, b.Do(func() error { return errFlaky }), errFlaky)
	assert.Equal(t, StateOpen, b.State())

	called := false
	err := b.Do(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrOpen)
	assert.False(t, called)

	now = now.Add(time.Minute)
	require.NoError(t, b.Allow())
	assert.Equal(t, StateHalfOpen, b.State())
	assert.ErrorIs(t, b.Allow(), ErrOpen, "only one probe at a time")
	b.Record(nil)
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerFailedProbeReopens(t *testing.T) {
	now := time.Unix(0, 0)
	b := NewBreaker("redis", BreakerConfig{Threshold: 1, Cooldown: time.Second})
	b.now = func() time.Time { return now }

	b.Do(func() error { return errFlaky })
	now = now.Add(time.Second)
	assert.ErrorIs(t, b.Do(func() error { return errFlaky }), errFlaky)
	assert.Equal(t, StateOpen, b.State())
	assert.ErrorIs(t, b.Allow(), ErrOpen)
}

func TestSuccessResetsFailureCount(t *testing.T) {
	b := NewBreaker("redis", BreakerConfig{Threshold: 2})
	b.Do(func() error { return errFlaky })
	b.Do(func() error { return nil })
	b.Do(func() error { return errFlaky })
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, "closed", b.State().String())
}
