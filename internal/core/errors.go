package core

import (
	"errors"
	"fmt"
)

// Error taxonomy for write operations. Aggregation itself never fails; bad
// records are skipped with a zero effect so one malformed row cannot blank
// a whole dashboard.

// ValidationError rejects a malformed or missing field before any state is
// touched. Callers surface it as a 4xx with the offending field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NotFoundError marks an operation referencing a missing entity, kept
// distinct from ValidationError so callers can render "already deleted"
// instead of "bad input".
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// InvariantError rejects a write that would produce an internally
// inconsistent state, such as a non-positive EMI tenure. The write is
// refused outright, never silently clamped.
type InvariantError struct {
	Reason string
}

func (e *InvariantError) Error() string {
	return "invariant violation: " + e.Reason
}

// ConflictError is an optimistic-concurrency failure: the entity changed
// between read and write. Callers retry the whole operation from a fresh
// read.
type ConflictError struct {
	Entity string
	ID     string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %s was modified concurrently, retry from a fresh read", e.Entity, e.ID)
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

func IsInvariant(err error) bool {
	var iv *InvariantError
	return errors.As(err, &iv)
}

func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}
