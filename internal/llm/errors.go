package llm

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// The provider backends fold their SDK errors into this small set so
// the retry layer and the judge can react without knowing which vendor
// served the call.

// ErrRateLimit means the provider refused the request with a 429.
// RetryAfter, when the provider supplied one, overrides the backoff.
type ErrRateLimit struct {
	RetryAfter time.Duration
	Err        error
}

func (e *ErrRateLimit) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("provider rate limited, retry after %s: %v", e.RetryAfter, e.Err)
	}
	return fmt.Sprintf("provider rate limited: %v", e.Err)
}

func (e *ErrRateLimit) Unwrap() error { return e.Err }

// ErrInvalidResponse means the model produced output that is not the
// JSON the request's schema asked for. Content keeps the offending
// payload for the logs.
type ErrInvalidResponse struct {
	Content json.RawMessage
	Err     error
}

func (e *ErrInvalidResponse) Error() string {
	return fmt.Sprintf("response does not match schema: %v", e.Err)
}

func (e *ErrInvalidResponse) Unwrap() error { return e.Err }

// ErrProviderUnavailable means the provider could not serve the request
// at all: network failure, 5xx, or no backend configured.
type ErrProviderUnavailable struct {
	Err error
}

func (e *ErrProviderUnavailable) Error() string {
	if e.Err == nil {
		return "provider unavailable"
	}
	return fmt.Sprintf("provider unavailable: %v", e.Err)
}

func (e *ErrProviderUnavailable) Unwrap() error { return e.Err }

// ErrMaxTokensExceeded means generation was cut off at the token
// budget. A truncated verdict is never valid JSON, so callers treat
// this as a configuration problem rather than something to retry.
type ErrMaxTokensExceeded struct {
	Content json.RawMessage
}

func (e *ErrMaxTokensExceeded) Error() string {
	return "response truncated at token budget"
}

// statusError normalizes an HTTP status carried by a provider SDK
// error.
func statusError(code int, err error) error {
	if code == http.StatusTooManyRequests {
		return &ErrRateLimit{Err: err}
	}
	return &ErrProviderUnavailable{Err: err}
}
