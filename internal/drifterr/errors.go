package drifterr

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure classes the tool distinguishes.
var (
	// ErrAborted is returned when the resolution oracle signals abort.
	ErrAborted = errors.New("resolution aborted")

	// ErrValidation is returned when a schema snapshot fails structural validation.
	ErrValidation = errors.New("validation error")

	// ErrUnparseableTag is returned when a directory in the migrations
	// store does not match the expected tag format.
	ErrUnparseableTag = errors.New("unparseable migration tag")

	// ErrPartialUnit is returned when a migration unit directory is missing
	// either its snapshot or its statement file.
	ErrPartialUnit = errors.New("partial migration unit")

	// ErrIO is returned when a filesystem operation fails.
	ErrIO = errors.New("io failure")
)

// ValidationError represents a structural problem in a schema snapshot
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// TagError represents a migration directory whose name does not parse as a tag
type TagError struct {
	Dir    string
	Reason string
}

func (e *TagError) Error() string {
	return fmt.Sprintf("migration directory '%s' does not parse as a tag: %s", e.Dir, e.Reason)
}

func (e *TagError) Unwrap() error {
	return ErrUnparseableTag
}

// PartialUnitError represents a migration unit left incomplete by an
// interrupted write
type PartialUnitError struct {
	Tag     string
	Missing string
}

func (e *PartialUnitError) Error() string {
	return fmt.Sprintf("migration unit '%s' is incomplete: missing %s; resolve it manually before continuing", e.Tag, e.Missing)
}

func (e *PartialUnitError) Unwrap() error {
	return ErrPartialUnit
}

// IOError represents a failed filesystem operation
type IOError struct {
	Op    string
	Path  string
	Cause error
}

func (e *IOError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("io failure during %s on '%s': %v", e.Op, e.Path, e.Cause)
	}
	return fmt.Sprintf("io failure during %s on '%s'", e.Op, e.Path)
}

func (e *IOError) Unwrap() error {
	return ErrIO
}

// Error wrapping functions

// WrapValidationError wraps a field problem as a validation error
func WrapValidationError(field, message string) error {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// WrapTagError wraps a malformed directory name as a tag error
func WrapTagError(dir, reason string) error {
	return &TagError{
		Dir:    dir,
		Reason: reason,
	}
}

// WrapPartialUnitError wraps an incomplete unit as a partial-write error
func WrapPartialUnitError(tag, missing string) error {
	return &PartialUnitError{
		Tag:     tag,
		Missing: missing,
	}
}

// WrapIOError wraps a failed filesystem operation
func WrapIOError(op, path string, cause error) error {
	return &IOError{
		Op:    op,
		Path:  path,
		Cause: cause,
	}
}

// Error checking functions

// IsAborted checks if an error is an oracle abort
func IsAborted(err error) bool {
	return errors.Is(err, ErrAborted)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsUnparseableTag checks if an error is a tag parse error
func IsUnparseableTag(err error) bool {
	return errors.Is(err, ErrUnparseableTag)
}

// IsPartialUnit checks if an error is a partial-write inconsistency
func IsPartialUnit(err error) bool {
	return errors.Is(err, ErrPartialUnit)
}

// IsIOError checks if an error is an io failure
func IsIOError(err error) bool {
	return errors.Is(err, ErrIO)
}
