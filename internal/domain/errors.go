package domain

import "errors"

var (
	// ErrQuoteNotFound is returned when no quote exists for a cache key
	ErrQuoteNotFound = errors.New("price quote not found")

	// ErrIngredientNotFound is returned when a canonical name has no ingredient row
	ErrIngredientNotFound = errors.New("ingredient not found")

	// ErrUnresolvableName is returned when a free-text name canonicalizes to nothing
	ErrUnresolvableName = errors.New("ingredient name could not be canonicalized")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrReaderFailure is returned when the external reader service request fails
	ErrReaderFailure = errors.New("reader service request failed")

	// ErrExtractionFailed is returned when structured extraction fails or times out
	ErrExtractionFailed = errors.New("structured extraction failed")

	// ErrAllStoresFailed is the systemic failure: zero successes across an
	// entire batch run. Individual item failures degrade silently; only this
	// condition should abort or alert.
	ErrAllStoresFailed = errors.New("all store lookups failed for the entire batch")
)
