package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	saeserrors "github.com/Aman-CERP/saesagent/internal/errors"
	"github.com/Aman-CERP/saesagent/internal/llm"
)

// fakeGenerator records concurrency and call order.
type fakeGenerator struct {
	delay time.Duration
	fail  error
	// gate, when set, blocks each call until a value is received.
	gate chan struct{}

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
	calls       atomic.Int32

	mu    sync.Mutex
	order []string
}

func (f *fakeGenerator) Generate(ctx context.Context, system, user string) (llm.Generation, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		m := f.maxInFlight.Load()
		if n <= m || f.maxInFlight.CompareAndSwap(m, n) {
			break
		}
	}
	f.calls.Add(1)

	f.mu.Lock()
	f.order = append(f.order, user)
	f.mu.Unlock()

	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return llm.Generation{}, ctx.Err()
		}
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return llm.Generation{}, ctx.Err()
		}
	}
	if f.fail != nil {
		return llm.Generation{}, f.fail
	}
	return llm.Generation{Text: "re: " + user, Model: "fake"}, nil
}

func (f *fakeGenerator) Name() string { return "fake" }

func (f *fakeGenerator) seen() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.order...)
}

func startQueue(t *testing.T, gen llm.Generator, opts ...Option) *Queue {
	t.Helper()
	q, err := New(gen, opts...)
	require.NoError(t, err)
	q.Start(context.Background())
	t.Cleanup(q.Stop)
	return q
}

// =============================================================================
// Basics
// =============================================================================

func TestNew_NilGenerator(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrNilGenerator)
}

func TestQueue_Submit(t *testing.T) {
	// Given a running queue
	q := startQueue(t, &fakeGenerator{})

	// When a request is submitted
	res, err := q.Submit(context.Background(), "sys", "hola")

	// Then the generation comes back with an id
	require.NoError(t, err)
	assert.Equal(t, "re: hola", res.Generation.Text)
	assert.NotEmpty(t, res.RequestID)

	// Counters settle after the result is delivered
	require.Eventually(t, func() bool { return q.Stats().TotalProcessed == 1 }, time.Second, time.Millisecond)
	st := q.Stats()
	assert.Equal(t, int64(0), st.TotalErrors)
	assert.False(t, st.Processing)
	assert.Equal(t, 0, st.QueueSize)
}

func TestQueue_GeneratorErrorCounted(t *testing.T) {
	q := startQueue(t, &fakeGenerator{fail: errors.New("boom")})

	_, err := q.Submit(context.Background(), "s", "u")

	require.EqualError(t, err, "boom")
	require.Eventually(t, func() bool { return q.Stats().TotalErrors == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, int64(0), q.Stats().TotalProcessed)
}

// =============================================================================
// Serialization
// =============================================================================

func TestQueue_NeverOverlapsGenerations(t *testing.T) {
	// Given a slow generator
	gen := &fakeGenerator{delay: 5 * time.Millisecond}
	q := startQueue(t, gen)

	// When many callers submit at once
	const n = 20
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := q.Submit(context.Background(), "s", fmt.Sprint(i))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// Then every call ran and none overlapped
	assert.Equal(t, int32(n), gen.calls.Load())
	assert.Equal(t, int32(1), gen.maxInFlight.Load())
	assert.Eventually(t, func() bool { return q.Stats().TotalProcessed == n }, time.Second, time.Millisecond)
}

func TestQueue_FIFO(t *testing.T) {
	// Given a worker held on the first request
	gen := &fakeGenerator{gate: make(chan struct{})}
	q := startQueue(t, gen)

	results := make(chan string, 3)
	submit := func(user string) {
		go func() {
			res, err := q.Submit(context.Background(), "s", user)
			if err == nil {
				results <- res.Generation.Text
			}
		}()
	}

	submit("a")
	require.Eventually(t, func() bool { return q.Stats().Processing }, time.Second, time.Millisecond)
	submit("b")
	require.Eventually(t, func() bool { return q.Stats().QueueSize == 1 }, time.Second, time.Millisecond)
	submit("c")
	require.Eventually(t, func() bool { return q.Stats().QueueSize == 2 }, time.Second, time.Millisecond)

	// When the worker is released
	for range 3 {
		gen.gate <- struct{}{}
	}

	// Then every caller is answered and the requests ran in arrival order
	var got []string
	for range 3 {
		select {
		case text := <-results:
			got = append(got, text)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for result")
		}
	}
	assert.ElementsMatch(t, []string{"re: a", "re: b", "re: c"}, got)
	assert.Equal(t, []string{"a", "b", "c"}, gen.seen())
}

// =============================================================================
// Timeouts
// =============================================================================

func TestQueue_CallerTimeoutStillProcessed(t *testing.T) {
	// Given a generator slower than the caller's patience
	gen := &fakeGenerator{delay: 100 * time.Millisecond}
	q := startQueue(t, gen)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	// When the caller gives up
	res, err := q.Submit(ctx, "s", "u")

	// Then the caller sees the deadline and the worker still finishes the job
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotEmpty(t, res.RequestID)
	assert.Eventually(t, func() bool { return q.Stats().TotalProcessed == 1 }, 2*time.Second, 5*time.Millisecond)
}

func TestQueue_JobTimeout(t *testing.T) {
	gen := &fakeGenerator{delay: time.Second}
	q := startQueue(t, gen, WithJobTimeout(20*time.Millisecond))

	_, err := q.Submit(context.Background(), "s", "u")

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Eventually(t, func() bool { return q.Stats().TotalErrors == 1 }, time.Second, time.Millisecond)
}

// =============================================================================
// Lifecycle
// =============================================================================

func TestQueue_StopRejectsAndDrains(t *testing.T) {
	// Given a queue that was never started, holding one request
	q, err := New(&fakeGenerator{})
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() {
		_, err := q.Submit(context.Background(), "s", "u")
		errCh <- err
	}()
	require.Eventually(t, func() bool { return q.Stats().QueueSize == 1 }, time.Second, time.Millisecond)

	// When the queue stops
	q.Stop()

	// Then the waiting request fails and new ones are refused
	select {
	case err := <-errCh:
		assert.Equal(t, saeserrors.ErrCodeQueueStopped, saeserrors.GetCode(err))
	case <-time.After(time.Second):
		t.Fatal("pending request was not released")
	}

	_, err = q.Submit(context.Background(), "s", "u")
	assert.Equal(t, saeserrors.ErrCodeQueueStopped, saeserrors.GetCode(err))
	q.Stop()
}

func TestQueue_OutlivesStartContext(t *testing.T) {
	// Given a worker started with a context that is about to be cancelled,
	// and a job in flight
	gen := &fakeGenerator{gate: make(chan struct{})}
	q, err := New(gen)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	q.Start(ctx)
	t.Cleanup(q.Stop)

	first := make(chan error, 1)
	go func() {
		_, err := q.Submit(context.Background(), "s", "in flight")
		first <- err
	}()
	require.Eventually(t, func() bool { return gen.calls.Load() == 1 }, time.Second, time.Millisecond)

	// When the start context is cancelled
	cancel()
	gen.gate <- struct{}{}

	// Then the in-flight job completes and new jobs still run
	select {
	case err := <-first:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("in-flight job did not finish")
	}

	go func() { gen.gate <- struct{}{} }()
	res, err := q.Submit(context.Background(), "s", "after cancel")
	require.NoError(t, err)
	assert.Equal(t, "re: after cancel", res.Generation.Text)
}

func TestQueue_StartIsIdempotent(t *testing.T) {
	gen := &fakeGenerator{delay: 2 * time.Millisecond}
	q := startQueue(t, gen)
	q.Start(context.Background())

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = q.Submit(context.Background(), "s", "u")
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), gen.maxInFlight.Load())
}
