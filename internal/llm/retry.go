package llm

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"
)

// retryProvider re-issues failed requests with exponential backoff. The
// budget is deliberately small: a learner is waiting on every verdict,
// so the retry layer trades completeness for latency.
type retryProvider struct {
	inner Provider
	cfg   RetryConfig
}

// WithRetry wraps a provider with bounded retries for transient
// failures.
func WithRetry(p Provider, cfg RetryConfig) Provider {
	return &retryProvider{inner: p, cfg: cfg}
}

func (r *retryProvider) ModelID() string { return r.inner.ModelID() }

func (r *retryProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	var lastErr error
	retriedInvalid := false

	for attempt := 0; attempt < r.cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(r.wait(attempt-1, lastErr)):
			}
		}

		resp, err := r.inner.Generate(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !retryable(err, &retriedInvalid) {
			return nil, err
		}
	}
	return nil, lastErr
}

// retryable classifies an error. Context errors and token-budget
// overruns are permanent. A schema miss gets exactly one more chance:
// models do occasionally emit broken JSON, but two misses in a row
// means the prompt is the problem. Everything else is assumed
// transient.
func retryable(err error, retriedInvalid *bool) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var truncated *ErrMaxTokensExceeded
	if errors.As(err, &truncated) {
		return false
	}
	var invalid *ErrInvalidResponse
	if errors.As(err, &invalid) {
		if *retriedInvalid {
			return false
		}
		*retriedInvalid = true
		return true
	}
	return true
}

// wait computes the pause before the next attempt, honoring a
// server-supplied Retry-After when present.
func (r *retryProvider) wait(attempt int, err error) time.Duration {
	var limited *ErrRateLimit
	if errors.As(err, &limited) && limited.RetryAfter > 0 {
		return limited.RetryAfter
	}

	backoff := float64(r.cfg.InitialWait) * math.Pow(r.cfg.Multiplier, float64(attempt))
	backoff = math.Min(backoff, float64(r.cfg.MaxWait))
	backoff *= 0.8 + 0.4*rand.Float64() // ±20% jitter
	return time.Duration(backoff)
}
