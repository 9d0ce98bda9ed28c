package ai

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// APIError is a non-2xx response from a completion endpoint.
type APIError struct {
	StatusCode int            `json:"-"`
	Code       string         `json:"code,omitempty"`
	Message    string         `json:"message,omitempty"`
	Raw        map[string]any `json:"-"`
	RequestID  string         `json:"-"`
}

func (e *APIError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "api error: status=%d", e.StatusCode)
	if e.Code != "" {
		fmt.Fprintf(&sb, " code=%s", e.Code)
	}
	if e.RequestID != "" {
		fmt.Fprintf(&sb, " request_id=%s", e.RequestID)
	}
	if e.Message != "" {
		fmt.Fprintf(&sb, " message=%s", e.Message)
	}
	return sb.String()
}

// AuthError indicates a missing or rejected credential (401/403).
type AuthError struct{ *APIError }

func (e *AuthError) Error() string { return "authentication failed: " + e.APIError.Error() }
func (e *AuthError) Unwrap() error { return e.APIError }

// RateLimitError indicates a 429 and may carry the server's Retry-After.
type RateLimitError struct {
	*APIError
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited (retry after %ds): %s", int(e.RetryAfter.Seconds()), e.APIError.Error())
	}
	return "rate limited: " + e.APIError.Error()
}
func (e *RateLimitError) Unwrap() error { return e.APIError }

// ModelNotFoundError indicates the requested model is not available.
type ModelNotFoundError struct{ *APIError }

func (e *ModelNotFoundError) Error() string { return "model not found: " + e.APIError.Error() }
func (e *ModelNotFoundError) Unwrap() error { return e.APIError }

// BadRequestError indicates a 400 validation problem.
type BadRequestError struct{ *APIError }

func (e *BadRequestError) Error() string { return "bad request: " + e.APIError.Error() }
func (e *BadRequestError) Unwrap() error { return e.APIError }

// QuotaExceededError indicates billing or quota exhaustion.
type QuotaExceededError struct{ *APIError }

func (e *QuotaExceededError) Error() string { return "quota exceeded: " + e.APIError.Error() }
func (e *QuotaExceededError) Unwrap() error { return e.APIError }

// ServerError indicates a 5xx from the provider.
type ServerError struct{ *APIError }

func (e *ServerError) Error() string { return "provider error: " + e.APIError.Error() }
func (e *ServerError) Unwrap() error { return e.APIError }

// UnreachableError indicates the endpoint could not be reached.
type UnreachableError struct {
	Host string
	Err  error
	// Transient is set for timeouts and dropped connections.
	Transient bool
}

func (e *UnreachableError) Error() string {
	if e == nil {
		return "unreachable"
	}
	if e.Host != "" {
		return fmt.Sprintf("endpoint unreachable at %s: %v", e.Host, e.Err)
	}
	return fmt.Sprintf("endpoint unreachable: %v", e.Err)
}
func (e *UnreachableError) Unwrap() error { return e.Err }

// IsRetryable reports whether another attempt could succeed: rate limits,
// server errors and transient network failures.
func IsRetryable(err error) bool {
	var rl *RateLimitError
	var se *ServerError
	var ue *UnreachableError
	switch {
	case errors.As(err, &rl), errors.As(err, &se):
		return true
	case errors.As(err, &ue):
		return ue.Transient
	}
	return false
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.StatusCode
	}
	return 0
}
