// Package domain defines core types, interfaces, and errors for the gateway.
package domain

import "fmt"

// NotFoundError indicates a resource was not found.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// AccessDeniedError indicates insufficient permissions.
type AccessDeniedError struct {
	Message string
}

func (e *AccessDeniedError) Error() string { return e.Message }

// ValidationError indicates invalid input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ConflictError indicates a conflict (e.g., duplicate resource).
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// UnknownPrincipalError indicates an operation referenced a principal that
// does not exist. Grant/revoke against an unknown principal performs no
// mutation.
type UnknownPrincipalError struct {
	Name string
}

func (e *UnknownPrincipalError) Error() string {
	return fmt.Sprintf("principal %q does not exist", e.Name)
}

// KeyNotFoundError indicates no column key record exists for a (table, column) pair.
type KeyNotFoundError struct {
	Table  string
	Column string
}

func (e *KeyNotFoundError) Error() string {
	return fmt.Sprintf("no encryption key found for %s.%s", e.Table, e.Column)
}

// WrapIntegrityError indicates key unwrap failed authentication: the master
// passphrase changed or the stored wrap record is corrupt.
type WrapIntegrityError struct {
	Table  string
	Column string
	Err    error
}

func (e *WrapIntegrityError) Error() string {
	return fmt.Sprintf("unwrap key for %s.%s: %v", e.Table, e.Column, e.Err)
}

func (e *WrapIntegrityError) Unwrap() error { return e.Err }

// DecryptionError indicates a value failed to decrypt. Recoverable: callers
// substitute a sentinel and continue the result set.
type DecryptionError struct {
	Err error
}

func (e *DecryptionError) Error() string { return fmt.Sprintf("decrypt value: %v", e.Err) }

func (e *DecryptionError) Unwrap() error { return e.Err }

// ExtractionError indicates a SQL statement could not be confidently
// decomposed into table and column references. Fail closed: the gateway
// denies rather than executing an unanalyzed statement.
type ExtractionError struct {
	Message string
}

func (e *ExtractionError) Error() string { return e.Message }

// DatastoreError wraps an opaque failure from the underlying store.
// Never retried: query semantics must not be replayed implicitly.
type DatastoreError struct {
	Err error
}

func (e *DatastoreError) Error() string { return fmt.Sprintf("datastore: %v", e.Err) }

func (e *DatastoreError) Unwrap() error { return e.Err }

// ErrNotFound creates a NotFoundError with a formatted message.
func ErrNotFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ErrAccessDenied creates an AccessDeniedError with a formatted message.
func ErrAccessDenied(format string, args ...interface{}) *AccessDeniedError {
	return &AccessDeniedError{Message: fmt.Sprintf(format, args...)}
}

// ErrValidation creates a ValidationError with a formatted message.
func ErrValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ErrConflict creates a ConflictError with a formatted message.
func ErrConflict(format string, args ...interface{}) *ConflictError {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// ErrExtraction creates an ExtractionError with a formatted message.
func ErrExtraction(format string, args ...interface{}) *ExtractionError {
	return &ExtractionError{Message: fmt.Sprintf(format, args...)}
}
