package core

import (
	"errors"
	"fmt"
)

// NotFoundError marks a lookup for a filename (or other key) that exists
// neither physically nor in the metadata store where at least one was
// required.
type NotFoundError struct {
	Resource string
	Key      string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.Key)
}

// NewNotFound builds a NotFoundError for a resource/key pair.
func NewNotFound(resource, key string) *NotFoundError {
	return &NotFoundError{Resource: resource, Key: key}
}

// IsNotFound reports whether err wraps a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// ValidationError marks malformed input to a mutating operation. It is always
// raised before any storage mutation is attempted.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// NewValidation builds a ValidationError from a format string.
func NewValidation(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err wraps a ValidationError or ConflictError.
// Conflicts surface to callers in the same bad-request shape.
func IsValidation(err error) bool {
	var ve *ValidationError
	var ce *ConflictError
	return errors.As(err, &ve) || errors.As(err, &ce)
}

// ConflictError marks a storage-layer uniqueness violation surfaced during a
// create, translated so the raw driver error never reaches callers.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// NewConflict builds a ConflictError from a format string.
func NewConflict(format string, args ...any) *ConflictError {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// EngineError wraps a failure from the physical-file query engine with enough
// context to diagnose. Engine failures are terminal for the request and are
// never retried.
type EngineError struct {
	Filename  string
	Operation string
	Err       error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("engine %s failed for %s: %v", e.Operation, e.Filename, e.Err)
}

func (e *EngineError) Unwrap() error { return e.Err }

// NewEngineError wraps err with the filename and operation that failed.
func NewEngineError(filename, operation string, err error) *EngineError {
	return &EngineError{Filename: filename, Operation: operation, Err: err}
}

// IsEngineError reports whether err wraps an EngineError.
func IsEngineError(err error) bool {
	var ee *EngineError
	return errors.As(err, &ee)
}
