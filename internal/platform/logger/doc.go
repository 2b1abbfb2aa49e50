// Package logger provides structured logging for the harness.
//
// It uses Go's standard library log/slog package. Setup builds a JSON or
// text handler at the configured level; in CI environments records are
// enriched with CI metadata by CIHandler. The test helpers capture records
// in memory so tests can assert on what was logged.
package logger
