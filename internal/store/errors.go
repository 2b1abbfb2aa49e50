package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all dialects.
var (
	// ErrDuplicate is returned when an operation would create a duplicate
	// of a unique entity (e.g., a user with the same email).
	ErrDuplicate = errors.New("entity already exists")

	// ErrForeignKey is returned when a row references a parent that does not
	// exist, or a parent is removed while still referenced.
	ErrForeignKey = errors.New("foreign key violation")

	// ErrInvalidEntity is returned when a row violates a check or not-null
	// constraint, or fails validation before being stored.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrTransactionFailed is returned when a database transaction fails
	// to commit or when an operation within a transaction fails.
	ErrTransactionFailed = errors.New("transaction failed")
)

// IsDuplicateError reports whether err is a unique-constraint failure.
func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate)
}

// IsIntegrityError reports whether err is any constraint violation raised by
// the database: duplicate key, dangling foreign key, or check/not-null.
func IsIntegrityError(err error) bool {
	return errors.Is(err, ErrDuplicate) ||
		errors.Is(err, ErrForeignKey) ||
		errors.Is(err, ErrInvalidEntity)
}

// StoreError is a custom error type for store-specific errors with additional context.
type StoreError struct {
	Entity    string // The entity type (e.g., "user", "pet")
	Operation string // The operation that failed (e.g., "insert")
	Message   string // Error message
	Err       error  // Original error
}

// Error implements the error interface for StoreError.
func (e *StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s operation on %s failed: %s: %v", e.Operation, e.Entity, e.Message, e.Err)
	}
	return fmt.Sprintf("%s operation on %s failed: %s", e.Operation, e.Entity, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError with the given entity, operation, message, and wrapped error.
func NewStoreError(entity, operation, message string, err error) *StoreError {
	return &StoreError{
		Entity:    entity,
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
