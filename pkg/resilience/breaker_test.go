package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBackend = errors.New("connection refused")

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestBreaker(threshold int) (*Breaker, *clock) {
	c := &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	b := NewBreaker("test", BreakerConfig{FailureThreshold: threshold, Cooldown: time.Minute})
	b.now = c.now
	return b, c
}

func fail(context.Context) error    { return errBackend }
func succeed(context.Context) error { return nil }

func TestBreakerOpensAfterThreshold(t *testing.T) {
	b, _ := newTestBreaker(3)
	for i := 0; i < 3; i++ {
		require.ErrorIs(t, b.Do(context.Background(), fail), errBackend)
	}
	assert.Equal(t, StateOpen, b.State())

	called := false
	err := b.Do(context.Background(), func(context.Context) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, ErrOpen)
	assert.False(t, called)
}

func TestBreakerSuccessResetsFailures(t *testing.T) {
	b, _ := newTestBreaker(2)
	require.Error(t, b.Do(context.Background(), fail))
	require.NoError(t, b.Do(context.Background(), succeed))
	require.Error(t, b.Do(context.Background(), fail))
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerHalfOpenProbe(t *testing.T) {
	b, c := newTestBreaker(1)
	require.Error(t, b.Do(context.Background(), fail))
	require.Equal(t, StateOpen, b.State())

	c.t = c.t.Add(2 * time.Minute)
	require.Error(t, b.Do(context.Background(), fail))
	assert.Equal(t, StateOpen, b.State(), "failed probe re-opens")

	c.t = c.t.Add(2 * time.Minute)
	require.NoError(t, b.Do(context.Background(), succeed))
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerIgnoresCallerCancellation(t *testing.T) {
	b, _ := newTestBreaker(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := b.Do(ctx, func(ctx context.Context) error { return ctx.Err() })
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerCallTimeout(t *testing.T) {
	b := NewBreaker("slow", BreakerConfig{FailureThreshold: 1, CallTimeout: 10 * time.Millisecond})
	err := b.Do(context.Background(), func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, StateOpen, b.State())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "unknown", State(9).String())
}
