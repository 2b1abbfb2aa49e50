// Package store defines the data-layer error taxonomy shared by the harness
// and the transaction helper used for work that must commit independently of
// a test's rolled-back transaction.
//
// Driver-specific failures (a duplicate key from pgx, mysql or sqlite) are
// classified into the sentinels declared here, so assertions such as
// errors.Is(err, store.ErrDuplicate) read the same against every database.
package store
