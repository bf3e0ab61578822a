package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Sentinel errors callers branch on with errors.Is. Typed variants below
// carry detail and unwrap to these.
var (
	// ErrNotFound indicates a referenced entity id does not exist.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates malformed input detected before storage.
	ErrValidation = errors.New("validation failed")
	// ErrConflict indicates a duplicate unique field such as an activity name.
	ErrConflict = errors.New("conflict")
)

// NotFoundError reports which entity, and which ids, were missing.
type NotFoundError struct {
	Entity string
	IDs    []int64
}

func (e *NotFoundError) Error() string {
	if len(e.IDs) == 0 {
		return e.Entity + " not found"
	}
	parts := make([]string, 0, len(e.IDs))
	for _, id := range e.IDs {
		parts = append(parts, strconv.FormatInt(id, 10))
	}
	return fmt.Sprintf("%s not found: %s", e.Entity, strings.Join(parts, ", "))
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// NotFoundByID builds a NotFoundError for a single id.
func NotFoundByID(entity string, id int64) error {
	return &NotFoundError{Entity: entity, IDs: []int64{id}}
}

// ValidationError describes input rejected before any storage call.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Validation builds a ValidationError.
func Validation(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// StorageError wraps a collaborator failure so callers can distinguish it
// from domain errors; it surfaces as-is with no automatic retry.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return "storage: " + e.Op + ": " + e.Err.Error() }

func (e *StorageError) Unwrap() error { return e.Err }
