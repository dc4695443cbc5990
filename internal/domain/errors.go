package domain

import "errors"

// Error taxonomy. Per-batch and per-record failures degrade gracefully;
// only total unavailability with no snapshot fallback reaches a caller.
var (
	// ErrUpstreamUnavailable wraps network errors, timeouts, and non-2xx
	// responses from the NWS API. Recoverable: callers fall back to the
	// last snapshot.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrNoData means a fresh fetch failed and no snapshot has ever been
	// saved. Terminal for the request.
	ErrNoData = errors.New("no alert data available")

	// ErrMalformedGeometry marks a geometry that cannot be parsed as a
	// Polygon or MultiPolygon. The offending record is skipped from
	// spatial rendering, never fatal to its batch.
	ErrMalformedGeometry = errors.New("malformed geometry")
)
