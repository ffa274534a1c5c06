package errors

import (
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var errBackend = stderrors.New("backend failed")

func TestCircuitBreaker_OpensAfterMaxFailures(t *testing.T) {
	// Given: a breaker that trips after 2 failures
	clock := &fakeClock{now: time.Unix(1000, 0)}
	cb := NewCircuitBreaker("generation", WithMaxFailures(2), WithResetTimeout(time.Minute), WithClock(clock.Now))

	// When: two calls fail
	_ = cb.Execute(func() error { return errBackend })
	assert.Equal(t, StateClosed, cb.State())
	_ = cb.Execute(func() error { return errBackend })

	// Then: the circuit is open and calls fail fast
	assert.Equal(t, StateOpen, cb.State())
	called := false
	err := cb.Execute(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestCircuitBreaker_HalfOpenProbe(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	cb := NewCircuitBreaker("generation", WithMaxFailures(1), WithResetTimeout(time.Minute), WithClock(clock.Now))

	_ = cb.Execute(func() error { return errBackend })
	require.Equal(t, StateOpen, cb.State())

	t.Run("failed probe reopens", func(t *testing.T) {
		clock.Advance(time.Minute)
		assert.Equal(t, StateHalfOpen, cb.State())

		err := cb.Execute(func() error { return errBackend })
		assert.ErrorIs(t, err, errBackend)
		assert.Equal(t, StateOpen, cb.State())
	})

	t.Run("successful probe closes", func(t *testing.T) {
		clock.Advance(time.Minute)
		err := cb.Execute(func() error { return nil })
		require.NoError(t, err)
		assert.Equal(t, StateClosed, cb.State())
		assert.Equal(t, 0, cb.Failures())
	})
}

func TestCircuitBreaker_SingleProbeInFlight(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	cb := NewCircuitBreaker("generation", WithMaxFailures(1), WithResetTimeout(time.Second), WithClock(clock.Now))
	_ = cb.Execute(func() error { return errBackend })
	clock.Advance(time.Second)

	// Given: a probe that is still running
	inProbe := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- cb.Execute(func() error {
			close(inProbe)
			<-release
			return nil
		})
	}()
	<-inProbe

	// Then: a second caller is rejected until the probe finishes
	assert.ErrorIs(t, cb.Execute(func() error { return nil }), ErrCircuitOpen)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitExecute_ReturnsValue(t *testing.T) {
	cb := NewCircuitBreaker("generation")

	got, err := CircuitExecute(cb, func() (int, error) { return 42, nil })
	require.NoError(t, err)
	assert.Equal(t, 42, got)

	got, err = CircuitExecute(cb, func() (int, error) { return 7, errBackend })
	assert.ErrorIs(t, err, errBackend)
	assert.Equal(t, 0, got)
	assert.Equal(t, 1, cb.Failures())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "unknown", State(9).String())
}
