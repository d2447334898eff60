package domain

import "github.com/pkg/errors"

// Error taxonomy shared by the engine and the event log store. Every failure
// surfaces to the caller as one of these kinds; nothing is retried or
// swallowed inside the engine.
var (
	// ErrConcurrencyConflict means an append's expected-version precondition
	// failed: another writer advanced the log first.
	ErrConcurrencyConflict = errors.New("concurrency conflict: log version advanced by another writer")

	// ErrLogUnavailable means the durable log store could not be opened,
	// written or read. Writes fail outright, reads return no partial result.
	ErrLogUnavailable = errors.New("event log unavailable")

	// ErrInvalidIdentity means an empty or malformed account identity was
	// supplied; rejected before any log access.
	ErrInvalidIdentity = errors.New("invalid account identity")

	// ErrNegativeAmount means a deposit or withdrawal amount was negative.
	ErrNegativeAmount = errors.New("amount must be non-negative")
)
