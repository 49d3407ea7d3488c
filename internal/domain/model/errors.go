package model

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNoToken is returned when the authentication response lacks a token.
var ErrNoToken = errors.New("no token in authentication response")

// maxBodyExcerpt bounds how much of an upstream body is kept on errors.
const maxBodyExcerpt = 512

// Excerpt trims an upstream response body for inclusion in an error.
func Excerpt(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxBodyExcerpt {
		return s[:maxBodyExcerpt] + "..."
	}
	return s
}

// ConfigError reports required configuration that is absent. It aborts the
// whole run before any network call is made.
type ConfigError struct {
	Missing []string
}

func (e *ConfigError) Error() string {
	return "missing required configuration: " + strings.Join(e.Missing, ", ")
}

// AuthError reports a failed authentication call. Without a token no query is
// possible, so it aborts the whole run.
type AuthError struct {
	Status int    // HTTP status, 0 for transport failures
	Body   string // response excerpt
	Err    error
}

func (e *AuthError) Error() string {
	switch {
	case e.Err != nil && e.Status != 0:
		return fmt.Sprintf("authentication failed (status %d): %v", e.Status, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("authentication failed: %v", e.Err)
	case e.Body != "":
		return fmt.Sprintf("authentication failed (status %d): %s", e.Status, e.Body)
	default:
		return fmt.Sprintf("authentication failed (status %d)", e.Status)
	}
}

func (e *AuthError) Unwrap() error { return e.Err }

// RetryExhaustedError reports that the upstream kept answering with retryable
// statuses until the attempt budget ran out.
type RetryExhaustedError struct {
	Attempts int
	Status   int
	Body     string
}

func (e *RetryExhaustedError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("upstream still failing after %d attempts (last status %d): %s", e.Attempts, e.Status, e.Body)
	}
	return fmt.Sprintf("upstream still failing after %d attempts (last status %d)", e.Attempts, e.Status)
}

// UpstreamError reports a non-retryable upstream failure: an unexpected
// status, a transport failure, or a body that is not valid JSON.
type UpstreamError struct {
	Status int
	Body   string
	Err    error
}

func (e *UpstreamError) Error() string {
	switch {
	case e.Err != nil && e.Status != 0:
		return fmt.Sprintf("upstream request failed (status %d): %v", e.Status, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("upstream request failed: %v", e.Err)
	case e.Body != "":
		return fmt.Sprintf("upstream returned status %d: %s", e.Status, e.Body)
	default:
		return fmt.Sprintf("upstream returned status %d", e.Status)
	}
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// SchemaError reports a well-formed response whose shape is not one of the
// recognized slot layouts.
type SchemaError struct {
	Reason string
}

func (e *SchemaError) Error() string {
	return "unexpected response structure: " + e.Reason
}

// IsFatal reports whether err aborts an entire run rather than a single query.
func IsFatal(err error) bool {
	var cfgErr *ConfigError
	var authErr *AuthError
	return errors.As(err, &cfgErr) || errors.As(err, &authErr)
}

// PublicMessage describes err in terms safe to show to site visitors. Upstream
// response bodies are never included; callers log the full error instead.
func PublicMessage(err error) string {
	var (
		cfgErr       *ConfigError
		authErr      *AuthError
		exhaustedErr *RetryExhaustedError
		upstreamErr  *UpstreamError
		schemaErr    *SchemaError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &cfgErr):
		return cfgErr.Error()
	case errors.As(err, &authErr):
		return "authentication with the booking service failed"
	case errors.As(err, &exhaustedErr):
		if exhaustedErr.Status == 429 || exhaustedErr.Status == 403 {
			return fmt.Sprintf("booking service is rate limiting requests, gave up after %d attempts", exhaustedErr.Attempts)
		}
		return fmt.Sprintf("booking service still failing after %d attempts (status %d)", exhaustedErr.Attempts, exhaustedErr.Status)
	case errors.As(err, &schemaErr):
		return "unexpected response from the booking service"
	case errors.As(err, &upstreamErr):
		if upstreamErr.Status != 0 {
			return fmt.Sprintf("booking service returned status %d", upstreamErr.Status)
		}
		return "booking service request failed"
	case errors.Is(err, context.DeadlineExceeded):
		return "booking service request timed out"
	case errors.Is(err, context.Canceled):
		return "request cancelled"
	default:
		return "failed to fetch availability"
	}
}
