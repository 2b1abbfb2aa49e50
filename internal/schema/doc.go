// Package schema ships the pet-care test schema for each supported SQL
// dialect and splits schema sources into executable statements.
//
// The embedded files double as goose migrations: each starts with a
// "-- +goose Up" annotation, which Split discards like any other comment.
package schema
