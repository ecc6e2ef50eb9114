// Package resilience retries flaky remote calls with exponential backoff and
// trips a breaker around a dependency that keeps failing.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"
)

// Backoff describes how often and how patiently a call is retried. The zero
// value makes a single attempt.
type Backoff struct {
	Attempts   int
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
	Jitter     float64
}

func (b Backoff) withDefaults() Backoff {
	if b.Attempts < 1 {
		b.Attempts = 1
	}
	if b.Initial <= 0 {
		b.Initial = 100 * time.Millisecond
	}
	if b.Max <= 0 {
		b.Max = 10 * time.Second
	}
	if b.Multiplier < 1 {
		b.Multiplier = 2
	}
	if b.Jitter < 0 || b.Jitter > 1 {
		b.Jitter = 0
	}
	return b
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth another attempt.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Do calls fn until it succeeds, returns a Permanent error, or the attempts
// run out. The last error is returned wrapped.
func (b Backoff) Do(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	b = b.withDefaults()
	logger := slog.Default().With("component", "retry", "operation", name)

	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			if attempt > 1 {
				logger.Debug("succeeded after retry", "attempt", attempt)
			}
			return nil
		}
		if IsPermanent(err) {
			return err
		}
		if attempt >= b.Attempts {
			if b.Attempts == 1 {
				return err
			}
			return fmt.Errorf("%s failed after %d attempts: %w", name, attempt, err)
		}

		delay := b.delay(attempt)
		logger.Debug("attempt failed, backing off",
			"attempt", attempt,
			"max_attempts", b.Attempts,
			"next_delay", delay,
			"error", err,
		)
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%s: retry aborted: %w", name, ctx.Err())
		}
	}
}

func (b Backoff) delay(attempt int) time.Duration {
	d := float64(b.Initial) * math.Pow(b.Multiplier, float64(attempt-1))
	d += d * b.Jitter * (2*rand.Float64() - 1)
	if d > float64(b.Max) {
		d = float64(b.Max)
	}
	if d < 0 {
		d = float64(b.Initial)
	}
	return time.Duration(d)
}
