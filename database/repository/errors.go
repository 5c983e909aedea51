package repository

import "errors"

// Sentinel errors shared by the repository implementations. Services wrap
// these with user-facing context; use errors.Is to classify.
var (
	// ErrSlotTaken means another confirmed appointment already occupies the
	// requested instant.
	ErrSlotTaken = errors.New("slot already taken")

	// ErrNotFound means no document matched the given id.
	ErrNotFound = errors.New("record not found")

	// ErrNotActive means the appointment is no longer in a state the
	// requested write applies to (already cancelled or completed, or moved
	// concurrently).
	ErrNotActive = errors.New("appointment is not active")

	// ErrInsufficientBalance means a ledger append would drive the cached
	// balance below zero.
	ErrInsufficientBalance = errors.New("insufficient loyalty balance")

	// ErrStoreContention means the transaction kept conflicting after the
	// bounded retry budget. Callers may retry the whole unit of work.
	ErrStoreContention = errors.New("store contention, retries exhausted")
)
