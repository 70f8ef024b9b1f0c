package models

import "errors"

// Domain error kinds. Routes translate these to HTTP errors; the core never
// retries internally.
var (
	// ErrInvalidInput covers missing identifiers, empty normalized values and
	// malformed envelopes.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnknownEntity is returned when an operation references an entity id
	// that is not in the store.
	ErrUnknownEntity = errors.New("unknown entity")

	// ErrAliasBoundElsewhere is returned when a non-auto-merge alias would
	// conflict with another entity. The caller must resolve manually.
	ErrAliasBoundElsewhere = errors.New("alias already mapped to another entity")

	// ErrAlreadyMerged is returned when merging two entities that already
	// share a canonical id.
	ErrAlreadyMerged = errors.New("entities are already merged")

	// ErrCycleInRedirects signals a corrupt redirect graph. Fatal.
	ErrCycleInRedirects = errors.New("cycle detected in merge redirects")

	// ErrStoreFailure wraps underlying persistence errors.
	ErrStoreFailure = errors.New("store failure")
)
