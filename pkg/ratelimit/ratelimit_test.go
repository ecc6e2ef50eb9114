package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(rate float64, burst int) (*Limiter, *clock) {
	c := &clock{t: time.Unix(0, 0)}
	l := New(rate, burst)
	l.now = c.now
	return l, c
}

func TestReserveSpacesRequestsPerKey(t *testing.T) {
	l, c := newTestLimiter(2, 1)

	assert.Zero(t, l.Reserve("a.example"))
	assert.Equal(t, 500*time.Millisecond, l.Reserve("a.example"))
	assert.Equal(t, time.Second, l.Reserve("a.example"))
	assert.Zero(t, l.Reserve("b.example"))

	c.advance(2 * time.Second)
	assert.Zero(t, l.Reserve("a.example"))
}

func TestAllowHonoursBurst(t *testing.T) {
	l, c := newTestLimiter(1, 2)

	assert.True(t, l.Allow("k"))
	assert.True(t, l.Allow("k"))
	assert.False(t, l.Allow("k"))

	c.advance(time.Second)
	assert.True(t, l.Allow("k"))
	assert.False(t, l.Allow("k"))

	l.Forget("k")
	assert.True(t, l.Allow("k"))
}

func TestUnlimited(t *testing.T) {
	l := New(0, 0)
	for i := 0; i < 100; i++ {
		assert.True(t, l.Allow("k"))
		assert.Zero(t, l.Reserve("k"))
	}
	var nilLimiter *Limiter
	assert.NoError(t, nilLimiter.Wait(context.Background(), "k"))
}

func TestWaitCancelled(t *testing.T) {
	l := New(0.001, 1)
	assert.NoError(t, l.Wait(context.Background(), "k"))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, l.Wait(ctx, "k"), context.DeadlineExceeded)
}
