package domain

import "errors"

var (
	// ErrEventNotFound signals a missing event.
	ErrEventNotFound = errors.New("event not found")
	// ErrInvalidEvent signals malformed event fields.
	ErrInvalidEvent = errors.New("invalid event")
	// ErrInvalidCoordinates signals out-of-range or non-finite coordinates.
	ErrInvalidCoordinates = errors.New("invalid coordinates")
	// ErrProviderUnavailable signals an embedding or text-generation provider
	// failure. Always recoverable locally via a fallback; never returned to
	// API callers as a request failure.
	ErrProviderUnavailable = errors.New("provider unavailable")
	// ErrVectorDimMismatch signals a vector dimension mismatch between the
	// configured embedder and the stored index. Surfaced at startup, never at
	// query time.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrStoreUnavailable signals that the authoritative event store is unreachable.
	ErrStoreUnavailable = errors.New("event store unavailable")
)
