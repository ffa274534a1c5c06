package llm

import (
	"context"
	stderrors "errors"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	saeserrors "github.com/Aman-CERP/saesagent/internal/errors"
)

// GuardConfig throttles and protects calls to a generation backend.
type GuardConfig struct {
	// RequestsPerMinute caps outbound calls. Zero disables throttling.
	RequestsPerMinute int
	MaxRetries        int
	// FailureThreshold consecutive failures open the circuit.
	FailureThreshold int
	ResetTimeout     time.Duration
}

// guard wraps a backend call with a rate limiter, retries and a circuit
// breaker. Retries happen inside the breaker, so one exhausted call counts
// as one failure.
type guard struct {
	name    string
	limiter *rate.Limiter
	breaker *saeserrors.CircuitBreaker
	retry   saeserrors.RetryConfig
}

func newGuard(name string, cfg GuardConfig) *guard {
	g := &guard{name: name}
	if cfg.RequestsPerMinute > 0 {
		g.limiter = rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), 1)
	}

	var opts []saeserrors.CircuitBreakerOption
	if cfg.FailureThreshold > 0 {
		opts = append(opts, saeserrors.WithMaxFailures(cfg.FailureThreshold))
	}
	if cfg.ResetTimeout > 0 {
		opts = append(opts, saeserrors.WithResetTimeout(cfg.ResetTimeout))
	}
	g.breaker = saeserrors.NewCircuitBreaker(name, opts...)

	g.retry = saeserrors.DefaultRetryConfig()
	g.retry.MaxRetries = max(cfg.MaxRetries, 0)
	g.retry.Jitter = true
	g.retry.ShouldRetry = saeserrors.IsRetryable
	return g
}

func (g *guard) run(ctx context.Context, call func(context.Context) (string, error)) (string, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return "", saeserrors.New(saeserrors.ErrCodeRateLimited, "generation throttled", err)
		}
	}

	text, err := saeserrors.CircuitExecute(g.breaker, func() (string, error) {
		return saeserrors.RetryWithResult(ctx, g.retry, func() (string, error) {
			return call(ctx)
		})
	})
	switch {
	case err == nil:
		return text, nil
	case stderrors.Is(err, saeserrors.ErrCircuitOpen):
		slog.Warn("generation_circuit_open", slog.String("backend", g.name))
		return "", saeserrors.New(saeserrors.ErrCodeGenerationFailed, "generation service unavailable", err).
			WithSuggestion("the backend failed repeatedly; retry later")
	case stderrors.Is(err, context.DeadlineExceeded):
		return "", saeserrors.New(saeserrors.ErrCodeGenerationTimeout, "generation timed out", err)
	default:
		return "", err
	}
}

// state exposes the breaker state for status reporting.
func (g *guard) state() saeserrors.State { return g.breaker.State() }
