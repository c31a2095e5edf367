package sandbox

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
)

// Executor is the facade over the warm-pool/ephemeral Client pair: it
// tries the warm pool first, behind a circuit breaker, and falls
// through to the ephemeral job runner on breaker-open or pool failure
// (spec §5 backpressure / §7 "silently falls through").
type Executor struct {
	WarmPool  Client
	Ephemeral Client
	Breaker   *gobreaker.CircuitBreaker
	Metrics   *Metrics
}

// NewExecutor wires a warm pool client (may be nil to disable it), an
// ephemeral job client, and a breaker guarding the warm pool call.
// Breaker settings mirror a conservative ready-to-trip rule: open after
// at least 3 requests with a 60% failure ratio, matching the pattern
// used elsewhere in the corpus for external-collaborator breakers.
func NewExecutor(warmPool, ephemeral Client, metrics *Metrics) *Executor {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "sandbox-warm-pool",
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     20 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("sandbox warm pool breaker state change", "name", name, "from", from, "to", to)
		},
	})
	return &Executor{WarmPool: warmPool, Ephemeral: ephemeral, Breaker: breaker, Metrics: metrics}
}

// Execute runs req, preferring the warm pool. On breaker-open, a warm
// pool error, or no warm pool client configured, it falls through to
// the ephemeral job client; with no ephemeral client configured, that
// fallthrough returns an error instead. The returned ExecuteResult
// carries UsedWarmPool so callers can decide whether Cleanup is a no-op.
func (e *Executor) Execute(ctx context.Context, req ExecuteRequest) (*ExecuteResult, error) {
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	if req.AttemptID == "" {
		req.AttemptID = req.RequestID
	}

	start := time.Now()
	result, usedWarmPool, err := e.tryWarmPoolThenEphemeral(ctx, req)
	latency := time.Since(start)
	if err != nil {
		return nil, err
	}
	result.Latency = latency
	result.UsedWarmPool = usedWarmPool

	if e.Metrics != nil {
		e.Metrics.ObserveExecution(req.Language, result, latency, usedWarmPool)
	}
	return result, nil
}

func (e *Executor) tryWarmPoolThenEphemeral(ctx context.Context, req ExecuteRequest) (*ExecuteResult, bool, error) {
	if e.WarmPool != nil {
		out, err := e.Breaker.Execute(func() (any, error) {
			return e.WarmPool.Execute(ctx, req)
		})
		if err == nil {
			return out.(*ExecuteResult), true, nil
		}
		if errors.Is(err, gobreaker.ErrOpenState) {
			slog.Info("sandbox warm pool breaker open, falling back to ephemeral job")
		} else {
			slog.Info("sandbox warm pool unavailable, falling back to ephemeral job", "error", err)
		}
	}

	if e.Ephemeral == nil {
		return nil, false, errors.New("sandbox: warm pool unavailable and no ephemeral client configured")
	}
	result, err := e.Ephemeral.Execute(ctx, req)
	return result, false, err
}

// Cleanup releases the ephemeral workspace/job for attemptID. A no-op
// when the run was served by the warm pool.
func (e *Executor) Cleanup(ctx context.Context, attemptID string, usedWarmPool bool) error {
	if usedWarmPool {
		return nil
	}
	if e.Ephemeral == nil {
		return nil
	}
	return e.Ephemeral.Cleanup(ctx, attemptID)
}
