// Package upstream implements the HTTP client for the nideriji diary API:
// bulk sync, detail-by-ids, login, diary write, and image fetch.
//
// Error taxonomy (callers branch with errors.As):
//   - UnauthorizedError: HTTP 401/403; the token lifecycle manager reacts to
//     this and only this kind by re-logging in.
//   - NetworkError: connection/timeout failures after the retry budget is
//     exhausted; carries the attempt count for human-readable summaries.
//   - StatusError: any other non-2xx response; never retried.
//   - ValidationError: response arrived but its shape or field values are
//     unusable; never retried.
package upstream

import (
	"errors"
	"fmt"
)

// UnauthorizedError reports an upstream 401 or 403 response.
type UnauthorizedError struct {
	Status int
}

// Error implements the error interface.
func (e *UnauthorizedError) Error() string {
	return fmt.Sprintf("upstream auth failure (HTTP %d)", e.Status)
}

// NetworkError reports a network-layer failure that survived the retry
// budget. Attempts is the total number of tries made.
type NetworkError struct {
	Attempts int
	Err      error
}

// Error implements the error interface.
func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error, retried %d times: %v", e.Attempts, e.Err)
}

// Unwrap exposes the underlying transport error.
func (e *NetworkError) Unwrap() error { return e.Err }

// StatusError reports a non-auth HTTP status failure (4xx/5xx other than
// 401/403). The body snippet is already truncated for logging.
type StatusError struct {
	Status int
	Body   string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("upstream returned HTTP %d", e.Status)
	}
	return fmt.Sprintf("upstream returned HTTP %d: %s", e.Status, e.Body)
}

// ValidationError reports a response whose shape or content cannot be used.
type ValidationError struct {
	Msg string
}

// Error implements the error interface.
func (e *ValidationError) Error() string { return "upstream validation: " + e.Msg }

// IsUnauthorized reports whether err is (or wraps) an UnauthorizedError.
func IsUnauthorized(err error) bool {
	var ue *UnauthorizedError
	return errors.As(err, &ue)
}
