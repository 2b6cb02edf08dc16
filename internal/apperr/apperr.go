package apperr

import "errors"

// Error kinds surfaced by the chat core. Callers match with errors.Is; the
// concrete cause is wrapped alongside.
var (
	// ErrRemoteUnavailable marks a store, index or generator that is
	// unreachable or erroring. The in-memory state keeps serving.
	ErrRemoteUnavailable = errors.New("remote unavailable")

	// ErrGenerationFailed marks a response stream that errored mid-flight.
	// Partial output is never persisted.
	ErrGenerationFailed = errors.New("generation failed")

	// ErrNotFound marks a conversation id unknown to both cache and store.
	ErrNotFound = errors.New("conversation not found")
)
