package services

import "errors"

var (
	// ErrNotFound means the requested circular or analysis does not exist.
	// Surfaced to the caller as a distinct result so the presentation layer
	// can route to a not-found view.
	ErrNotFound = errors.New("not found")

	// ErrUnknownSource means the source key is not in the registry.
	ErrUnknownSource = errors.New("unknown source")

	// ErrUnavailable means the document store could not serve the request
	// after the bounded retries. Callers must surface it as a visible error
	// state, never as an empty result.
	ErrUnavailable = errors.New("document store unavailable")
)
