package types

import (
	"errors"
	"strings"
)

// Error taxonomy for the retrieval core. Adapter-level transient failures
// are absorbed by the search engine's degradation chain; the fatal classes
// (embedding backend failures, malformed identifiers) propagate to the
// caller.
var (
	// ErrNoEmbeddingBackend means no embedding provider could be
	// initialized. Fatal: there is no degraded embedding path.
	ErrNoEmbeddingBackend = errors.New("no embedding backend available")

	// ErrDimensionMismatch means a backend returned a vector of the wrong
	// size. Fatal for the call that observed it.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrIndexUnavailable means an index adapter never connected or was not
	// provisioned. Non-fatal: the engine runs without that adapter.
	ErrIndexUnavailable = errors.New("index unavailable")

	// ErrIndexQueryFailed is a transient query-time index error. It
	// triggers the retry-without-filter and scan-fallback chain.
	ErrIndexQueryFailed = errors.New("index query failed")

	// ErrInvalidIdentifier means a lookup key does not match the
	// vulnerability identifier grammar. Rejected before any I/O.
	ErrInvalidIdentifier = errors.New("invalid vulnerability identifier")

	// ErrNotFound is used internally by storage for missing rows. The
	// public lookup surface translates it to a nil record, not an error.
	ErrNotFound = errors.New("not found")
)

// transientMarkers are message fragments that classify an index error as
// transient or corruption-class. Detection is by message rather than type
// because the underlying store surfaces driver errors of varying shapes.
var transientMarkers = []string{
	"outputtoosmall",
	"channel closed",
	"500",
	"corrupt",
	"dimension",
	"disk i/o",
	"database is locked",
}

// IsTransientIndexError reports whether err is a transient or
// corruption-class index failure that the search engine should absorb by
// degrading rather than propagating.
func IsTransientIndexError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrIndexQueryFailed) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
