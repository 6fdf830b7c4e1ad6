package domain

import "errors"

// Error taxonomy surfaced by the engine. Callers always get one of these
// (possibly wrapped), a valid result, or a stale-but-labeled result,
// never a raw transport failure.
var (
	// ErrNotFound: the entity genuinely does not exist upstream. Not
	// retried.
	ErrNotFound = errors.New("not found")

	// ErrHiddenProfile: the entity exists but its data is access
	// restricted. Cached and not re-fetched until a forced refresh.
	ErrHiddenProfile = errors.New("hidden profile")

	// ErrUpstreamUnavailable: transient network or API failure. Recovered
	// by serving stale cache once any prior fetch has succeeded.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrReferenceDataUnavailable: no expectation or tier tables are
	// loaded for the region; rating computation cannot proceed.
	ErrReferenceDataUnavailable = errors.New("reference data unavailable")
)
