package domain

import "errors"

var (
	// ErrCredentialMissing means the server-side API key is not configured.
	// This is a deployment fault and is surfaced on every request until fixed.
	ErrCredentialMissing = errors.New("api key is not configured")

	// ErrCredentialInvalid means the provider rejected the configured key or
	// the key lacks entitlement. Recoverable by re-authorizing.
	ErrCredentialInvalid = errors.New("api key rejected by provider")

	// ErrContentBlocked means the provider declined to generate for policy
	// reasons. Not a retry candidate.
	ErrContentBlocked = errors.New("blocked by provider content policy")

	// ErrNoImageInResponse means an image request resolved without an image
	// part, typically due to content filtering. An expected outcome, not a
	// transport failure.
	ErrNoImageInResponse = errors.New("no image in provider response")

	// ErrMalformedResponse means the provider payload had an unexpected shape.
	ErrMalformedResponse = errors.New("unexpected provider response")

	ErrTurnInFlight    = errors.New("a turn is already in flight")
	ErrEmptySubmission = errors.New("submission carries no text and no image")
)
