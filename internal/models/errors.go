package models

import "errors"

// Sentinel errors shared across repositories and services. Handlers map them
// to HTTP status codes.
var (
	// ErrNotFound means the requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrForbidden means the acting user is not allowed to touch the record,
	// e.g. a collector reaching outside their assigned areas.
	ErrForbidden = errors.New("not allowed")

	// ErrNotPending means a resolve hit a request that was already approved
	// or rejected.
	ErrNotPending = errors.New("request not found or already processed")

	// ErrVersionConflict means an optimistic-concurrency write lost the race:
	// the row changed since the caller read it.
	ErrVersionConflict = errors.New("record was modified by another user, reload and retry")

	// ErrDuplicate means a uniqueness rule was violated, e.g. a VC number
	// already in stock.
	ErrDuplicate = errors.New("record already exists")
)
