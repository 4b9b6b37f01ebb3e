// Package voicegen defines the Provider interface for voice-design backends.
//
// A voice-generation provider turns a natural-language voice description into
// a handful of short audio previews, each backed by a provider-side voice that
// can later be saved or used for synthesis.
//
// Provider failures are classified with the sentinel errors below so callers
// can decide between retrying, failing over and reporting a policy rejection
// without knowing anything about the transport.
//
// Implementations must be safe for concurrent use.
package voicegen

import (
	"context"
	"errors"

	"github.com/MrWong99/vocalis/pkg/voice"
)

// Sentinel errors used to classify provider failures. Implementations wrap
// them with %w so callers can match with errors.Is.
var (
	// ErrContentPolicy means the provider refused the description. Retrying
	// the same request will fail the same way.
	ErrContentPolicy = errors.New("voicegen: rejected by content policy")

	// ErrQuota means the account is out of credits or over its plan limits.
	ErrQuota = errors.New("voicegen: quota exceeded")

	// ErrTransient covers timeouts, rate limits, network and 5xx failures
	// that may succeed on a later attempt.
	ErrTransient = errors.New("voicegen: transient failure")
)

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool { return errors.Is(err, ErrTransient) }

// IsPermanent reports whether err is a verdict on the request itself rather
// than on the provider's health. Permanent errors must not be retried and
// must not count against a provider's circuit breaker.
func IsPermanent(err error) bool { return errors.Is(err, ErrContentPolicy) }

// Request describes one preview-generation call.
type Request struct {
	// Description is the voice description sent to the provider.
	Description string

	// SampleText is the text the previews speak.
	SampleText string

	// Language is the ISO 639-1 language code of SampleText.
	Language string

	// Count is the number of previews wanted. Providers may return fewer.
	Count int
}

// Preview is one generated voice preview.
type Preview struct {
	// VoiceRef is the provider-side identifier of the generated voice.
	VoiceRef string

	// Audio is the encoded preview payload.
	Audio []byte

	// MediaType is the MIME type of Audio (e.g. "audio/mpeg").
	MediaType string

	// DurationSecs is the preview length as reported by the provider.
	DurationSecs float64

	// Failure is set when the provider flagged this single preview as
	// unusable while still returning the others.
	Failure voice.FailureReason
}

// Provider is the abstraction over any voice-design backend.
type Provider interface {
	// GeneratePreviews asks the provider for previews matching req.
	//
	// Returns an error wrapping one of the sentinel errors when the call as a
	// whole fails. A successful call may still contain previews with a
	// Failure flag or empty audio; callers filter them.
	GeneratePreviews(ctx context.Context, req Request) ([]Preview, error)
}
