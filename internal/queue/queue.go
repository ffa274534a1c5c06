// Package queue serializes generation calls through a single worker.
//
// Any number of callers may Submit concurrently; the worker takes requests
// in arrival order and runs at most one generation at a time. Each request
// gets exactly one result on a buffered channel, so a caller that gave up
// never blocks the worker.
package queue

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	saeserrors "github.com/Aman-CERP/saesagent/internal/errors"
	"github.com/Aman-CERP/saesagent/internal/llm"
)

// ErrNilGenerator is returned by New without a generator.
var ErrNilGenerator = errors.New("queue: nil generator")

// DefaultJobTimeout bounds one generation inside the worker.
const DefaultJobTimeout = 60 * time.Second

// Request is one queued generation.
type Request struct {
	ID       string
	System   string
	User     string
	Enqueued time.Time

	result chan Result
}

// Result is delivered once per request.
type Result struct {
	RequestID  string
	Generation llm.Generation
	Err        error
	// Waited is the time spent queued before the worker picked it up.
	Waited time.Duration
}

// Stats is a snapshot of the queue counters.
type Stats struct {
	QueueSize      int   `json:"queue_size"`
	Processing     bool  `json:"processing"`
	TotalProcessed int64 `json:"total_processed"`
	TotalErrors    int64 `json:"total_errors"`
}

// Queue is a single-consumer FIFO in front of a Generator.
type Queue struct {
	gen        llm.Generator
	jobTimeout time.Duration

	// notify wakes the worker; capacity 1 coalesces signals.
	notify chan struct{}
	stopCh chan struct{}
	doneCh chan struct{}

	mu      sync.Mutex
	pending []*Request
	started bool
	stopped bool
	stats   Stats
}

// Option configures a Queue.
type Option func(*Queue)

// WithJobTimeout overrides DefaultJobTimeout.
func WithJobTimeout(d time.Duration) Option {
	return func(q *Queue) {
		if d > 0 {
			q.jobTimeout = d
		}
	}
}

// New creates a stopped queue. Call Start to run the worker.
func New(gen llm.Generator, opts ...Option) (*Queue, error) {
	if gen == nil {
		return nil, ErrNilGenerator
	}
	q := &Queue{
		gen:        gen,
		jobTimeout: DefaultJobTimeout,
		notify:     make(chan struct{}, 1),
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q, nil
}

// Start launches the worker. Later calls are no-ops. The worker keeps
// running until Stop: cancelling ctx does not end it or the job in flight,
// so a server can finish in-flight requests during shutdown.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	if q.started || q.stopped {
		q.mu.Unlock()
		return
	}
	q.started = true
	q.mu.Unlock()

	go q.run(context.WithoutCancel(ctx))
	slog.Info("queue_started", slog.Duration("job_timeout", q.jobTimeout))
}

// Stop ends the worker after its current job and fails every request still
// waiting. Safe to call more than once.
func (q *Queue) Stop() {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return
	}
	q.stopped = true
	started := q.started
	q.mu.Unlock()

	close(q.stopCh)
	if started {
		<-q.doneCh
	}
	q.drain()
	slog.Info("queue_stopped")
}

// Submit enqueues a generation and waits for its result or for ctx to end.
// When ctx ends first the request stays queued and is still processed.
func (q *Queue) Submit(ctx context.Context, system, user string) (Result, error) {
	req := &Request{
		ID:       uuid.NewString(),
		System:   system,
		User:     user,
		Enqueued: time.Now(),
		result:   make(chan Result, 1),
	}

	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return Result{}, saeserrors.New(saeserrors.ErrCodeQueueStopped, "queue is stopped", nil)
	}
	q.pending = append(q.pending, req)
	q.stats.QueueSize = len(q.pending)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}

	select {
	case res := <-req.result:
		return res, res.Err
	case <-ctx.Done():
		slog.Warn("queue_caller_timeout", slog.String("request_id", req.ID))
		return Result{RequestID: req.ID}, ctx.Err()
	}
}

// Stats snapshots the counters.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.stats
}

func (q *Queue) run(ctx context.Context) {
	defer close(q.doneCh)
	for {
		select {
		case <-q.stopCh:
			return
		case <-q.notify:
		}

		for {
			req := q.next()
			if req == nil {
				break
			}
			q.process(ctx, req)

			select {
			case <-q.stopCh:
				return
			default:
			}
		}
	}
}

// next pops the oldest request and marks the worker busy.
func (q *Queue) next() *Request {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return nil
	}
	req := q.pending[0]
	q.pending[0] = nil
	q.pending = q.pending[1:]
	q.stats.QueueSize = len(q.pending)
	q.stats.Processing = true
	return req
}

func (q *Queue) process(ctx context.Context, req *Request) {
	waited := time.Since(req.Enqueued)

	jobCtx, cancel := context.WithTimeout(ctx, q.jobTimeout)
	gen, err := q.gen.Generate(jobCtx, req.System, req.User)
	cancel()

	res := Result{RequestID: req.ID, Generation: gen, Err: err, Waited: waited}
	req.result <- res

	q.mu.Lock()
	q.stats.Processing = false
	if err != nil {
		q.stats.TotalErrors++
	} else {
		q.stats.TotalProcessed++
	}
	q.mu.Unlock()

	if err != nil {
		slog.Error("queue_job_failed",
			slog.String("request_id", req.ID),
			slog.Int64("waited_ms", waited.Milliseconds()),
			slog.String("error", err.Error()))
	} else {
		slog.Info("queue_job_done",
			slog.String("request_id", req.ID),
			slog.Int64("waited_ms", waited.Milliseconds()),
			slog.Int64("elapsed_ms", gen.Elapsed.Milliseconds()))
	}
}

// drain fails every request still queued after the worker exits.
func (q *Queue) drain() {
	q.mu.Lock()
	pending := q.pending
	q.pending = nil
	q.stats.QueueSize = 0
	q.mu.Unlock()

	for _, req := range pending {
		req.result <- Result{
			RequestID: req.ID,
			Err:       saeserrors.New(saeserrors.ErrCodeQueueStopped, "queue stopped before the request ran", nil),
		}
	}
}
