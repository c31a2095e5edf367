// Package httpclient provides the one pooled *http.Client the process
// reuses across every external collaborator (spec §5 "one pooled HTTP
// client shared across coordinators"), each collaborator wrapped with
// its own circuit breaker and pre-breaker retry policy so a slow LLM
// backend cannot starve the retrieval or sandbox paths.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
)

// Pool is the single shared *http.Client, built once at startup with
// a cloned default transport tuned for keep-alive reuse across many
// short-lived collaborator calls. streamClient shares the same
// transport but carries no overall Timeout, since an SSE stream's
// lifetime is bounded by context cancellation, not a fixed deadline.
type Pool struct {
	client       *http.Client
	streamClient *http.Client
}

// NewPool builds the shared pool. timeout bounds any single non-stream
// round trip; per-call deadlines should still be supplied via context.
func NewPool(timeout time.Duration) *Pool {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConns = 100
	transport.MaxIdleConnsPerHost = 20
	transport.IdleConnTimeout = 90 * time.Second

	return &Pool{
		client:       &http.Client{Transport: transport, Timeout: timeout},
		streamClient: &http.Client{Transport: transport},
	}
}

// Collaborator wraps the shared pool's transport with a named circuit
// breaker and exponential-backoff retry policy, implementing the
// narrow httpPoster seam (PostJSON) that internal/sandbox,
// internal/failurecache, and the external-collaborator clients depend
// on without importing this package's concrete type.
type Collaborator struct {
	name    string
	pool    *Pool
	breaker *gobreaker.CircuitBreaker
	logger  *slog.Logger
}

// NewCollaborator builds a breaker-wrapped client for one named
// external service (llm, retrieval, lsp, sandbox-warm-pool, ...), the
// failure-ratio trip rule mirrored from the same gobreaker.Settings
// shape internal/sandbox's Executor uses.
func NewCollaborator(name string, pool *Pool) *Collaborator {
	logger := slog.Default().With("collaborator", name)
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     20 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(_ string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "from", from, "to", to)
		},
	}
	return &Collaborator{name: name, pool: pool, breaker: gobreaker.NewCircuitBreaker(settings), logger: logger}
}

// newRetryPolicy builds a per-call exponential backoff, capped so a
// single PostJSON never retries past the caller's overall timeout.
func newRetryPolicy(ctx context.Context, maxElapsed time.Duration) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = maxElapsed
	return backoff.WithContext(b, ctx)
}

// PostJSON marshals payload, POSTs it to url through the breaker with
// up to a few backoff-spaced attempts, and returns the raw response
// body and status code. A non-2xx status is not itself a retry
// trigger — only transport-level errors are retried — matching the
// original's at-most-one-retry failure-classification idiom.
func (c *Collaborator) PostJSON(ctx context.Context, url string, payload any, timeout time.Duration) ([]byte, int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, fmt.Errorf("httpclient: marshal payload for %s: %w", c.name, err)
	}

	type attemptResult struct {
		body   []byte
		status int
	}

	raw, err := c.breaker.Execute(func() (interface{}, error) {
		var result attemptResult
		op := func() error {
			reqCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewReader(body))
			if err != nil {
				return backoff.Permanent(err)
			}
			req.Header.Set("Content-Type", "application/json")

			resp, err := c.pool.client.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			respBody, err := io.ReadAll(resp.Body)
			if err != nil {
				return err
			}
			result = attemptResult{body: respBody, status: resp.StatusCode}
			return nil
		}

		if retryErr := backoff.Retry(op, newRetryPolicy(ctx, timeout*3)); retryErr != nil {
			return nil, retryErr
		}
		return result, nil
	})
	if err != nil {
		if err == gobreaker.ErrOpenState {
			c.logger.Warn("request skipped: breaker open")
		}
		return nil, 0, fmt.Errorf("httpclient: %s request failed: %w", c.name, err)
	}

	result := raw.(attemptResult)
	return result.body, result.status, nil
}

// DoStream issues a POST and returns the live *http.Response for the
// caller to stream from (llmclient's SSE reader). Unlike PostJSON this
// does not buffer the body or retry — a streaming response cannot be
// safely replayed into a fresh attempt, so the breaker only guards the
// initial connection, not transport errors that occur mid-stream.
func (c *Collaborator) DoStream(ctx context.Context, url string, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("httpclient: marshal stream payload for %s: %w", c.name, err)
	}

	raw, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "text/event-stream")

		resp, err := c.pool.streamClient.Do(req)
		if err != nil {
			return nil, err
		}
		return resp, nil
	})
	if err != nil {
		return nil, fmt.Errorf("httpclient: %s stream request failed: %w", c.name, err)
	}
	return raw.(*http.Response), nil
}
