package voice

import (
	"errors"
	"fmt"
)

// ErrNoUsableCandidate is returned when generation produced previews but none
// of them carried a usable audio payload.
var ErrNoUsableCandidate = errors.New("voice: generation produced nothing usable")

// ValidationError rejects a request before any processing happens.
type ValidationError struct {
	// Field is the request field that failed validation.
	Field string

	// Bound is the violated limit, or 0 when the field is missing.
	Bound int

	// Message is a fixed, user-facing explanation.
	Message string
}

func (e *ValidationError) Error() string {
	return "voice: invalid request: " + e.Message
}

// ContentPolicyError reports that the generation provider refused the
// description. It is never retried automatically.
type ContentPolicyError struct {
	// Suggestions lists human-readable rewrites the caller can apply.
	Suggestions []string

	Err error
}

func (e *ContentPolicyError) Error() string {
	if e.Err == nil {
		return "voice: description blocked by content policy"
	}
	return fmt.Sprintf("voice: description blocked by content policy: %v", e.Err)
}

func (e *ContentPolicyError) Unwrap() error { return e.Err }

// ProviderUnavailableError is a transient generation failure. The whole
// request may be re-issued safely.
type ProviderUnavailableError struct {
	// Reason is a short machine-readable cause ("transient", "quota",
	// "circuit_open", "unknown").
	Reason string

	Err error
}

func (e *ProviderUnavailableError) Error() string {
	return fmt.Sprintf("voice: generation provider unavailable (%s): %v", e.Reason, e.Err)
}

func (e *ProviderUnavailableError) Unwrap() error { return e.Err }

// Retryable always reports true; it exists so callers can test for the
// capability without importing this package's concrete type.
func (e *ProviderUnavailableError) Retryable() bool { return true }

// IsRetryable reports whether err (or anything it wraps) is a retryable
// provider failure.
func IsRetryable(err error) bool {
	var r interface{ Retryable() bool }
	return errors.As(err, &r) && r.Retryable()
}
