package domain

import "errors"

var (
	// ErrSourceUnavailable signals a discussion source connectivity failure.
	ErrSourceUnavailable = errors.New("discussion source unavailable")
	// ErrSourceNotFound signals a discussion reference that does not resolve.
	ErrSourceNotFound = errors.New("discussion not found")
	// ErrSourceRateLimited signals upstream throttling on the discussion source.
	ErrSourceRateLimited = errors.New("discussion source rate limited")

	// ErrExtractionFailed signals malformed or unusable extraction output.
	ErrExtractionFailed = errors.New("extraction output unusable")
	// ErrExtractionUnavailable signals an extraction provider outage.
	ErrExtractionUnavailable = errors.New("extraction provider unavailable")

	// ErrVerifierRateLimited signals throttling on the places lookup.
	ErrVerifierRateLimited = errors.New("places lookup rate limited")
	// ErrVerifierUnavailable signals a places lookup outage.
	ErrVerifierUnavailable = errors.New("places lookup unavailable")
	// ErrPlaceNotFound signals that a candidate did not resolve to a real
	// place. It is a filtering outcome, never a pipeline failure.
	ErrPlaceNotFound = errors.New("place not found")

	// ErrCacheUnavailable signals that the cache store cannot be reached.
	// The only failure surfaced to callers as a hard error.
	ErrCacheUnavailable = errors.New("cache store unavailable")

	// ErrRecordNotFound signals a cache miss on a read path.
	ErrRecordNotFound = errors.New("cached record not found")
	// ErrCityNotFound signals an unknown city key or place id.
	ErrCityNotFound = errors.New("city not found")
	// ErrInvalidRequest signals a malformed or unresolvable request.
	ErrInvalidRequest = errors.New("invalid request")
)

// Retryable reports whether err is a transient upstream failure worth
// retrying with backoff. NotFound-class errors are deliberate outcomes and
// never retryable.
func Retryable(err error) bool {
	return errors.Is(err, ErrSourceUnavailable) ||
		errors.Is(err, ErrSourceRateLimited) ||
		errors.Is(err, ErrExtractionUnavailable) ||
		errors.Is(err, ErrVerifierRateLimited) ||
		errors.Is(err, ErrVerifierUnavailable)
}
