package testdb

import (
	"errors"
	"fmt"
)

var (
	// ErrConnection marks failures to reach the database server or to open
	// the test database. Match it with errors.Is.
	ErrConnection = errors.New("testdb: database connection failed")

	// ErrNotConnected is returned by operations that need a live connection
	// when Connect has not been called, or after Close.
	ErrNotConnected = errors.New("testdb: manager is not connected")

	// ErrTxInProgress is returned when an explicit transaction is already
	// open and the operation would have to end or nest it.
	ErrTxInProgress = errors.New("testdb: transaction already in progress")

	// ErrSessionClosed is returned by a Session after Close.
	ErrSessionClosed = errors.New("testdb: session is closed")

	// ErrUnknownDialect is returned for a driver name with no dialect.
	ErrUnknownDialect = errors.New("testdb: unknown dialect")
)

// ConnectionError describes a failed attempt to reach a database. Target is
// always a masked DSN and never carries a password.
type ConnectionError struct {
	Op     string // "ensure", "connect"
	Target string
	Err    error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("testdb: %s %s: %v", e.Op, e.Target, e.Err)
}

// Unwrap returns the underlying driver error.
func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// Is reports ErrConnection for every ConnectionError.
func (e *ConnectionError) Is(target error) bool {
	return target == ErrConnection
}
