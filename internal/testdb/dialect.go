package testdb

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/phrazzld/petcare-harness/internal/config"
	"github.com/phrazzld/petcare-harness/internal/schema"
)

// Dialect captures everything the manager does differently per database
// engine: driver, DSN format, placeholder style, database creation, table
// enumeration, truncation and error classification.
type Dialect interface {
	// Name is the configuration name ("postgres", "mysql", "sqlite").
	Name() string
	// DriverName is the database/sql driver the dialect registers.
	DriverName() string
	// BindType is the sqlx bind type used to rebind "?" placeholders.
	BindType() int
	// GooseDialect is the dialect name goose expects.
	GooseDialect() string
	// DSN builds the connection string for the configured test database.
	DSN(cfg config.DatabaseConfig) string
	// QuoteIdent quotes a table or database name.
	QuoteIdent(name string) string
	// CleanupPlan returns the statements that empty the given tables.
	CleanupPlan(tables []string) CleanupPlan

	ensure(ctx context.Context, cfg config.DatabaseConfig, open Opener, log *slog.Logger) error
	listTablesQuery() string
	classify(err error) error
	isUndefinedTable(err error) bool

	// statementSavepoints reports whether a failed statement aborts the
	// enclosing transaction unless it runs under its own savepoint.
	statementSavepoints() bool
	// lastInsertIDQuery returns the query that reads the id generated by
	// the last insert into the table given as its only argument, or "" when
	// the driver reports it.
	lastInsertIDQuery() string
	// splitOptions returns the lexical rules for splitting schema files.
	splitOptions() schema.SplitOptions
}

var dialects = map[string]Dialect{
	"postgres": postgresDialect{},
	"mysql":    mysqlDialect{},
	"sqlite":   sqliteDialect{},
}

// LookupDialect returns the dialect registered under name.
func LookupDialect(name string) (Dialect, error) {
	d, ok := dialects[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w %q (want one of %s)", ErrUnknownDialect, name, strings.Join(DialectNames(), ", "))
	}
	return d, nil
}

// DialectNames lists the supported dialects in sorted order.
func DialectNames() []string {
	names := make([]string, 0, len(dialects))
	for name := range dialects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CleanupPlan is the statement sequence Cleanup runs: Disable before the
// per-table statements, Enable after them (also when a table fails).
type CleanupPlan struct {
	Disable  []string
	Truncate []string
	Enable   []string
}

// String renders the plan one statement per line, grouped by phase.
func (p CleanupPlan) String() string {
	var b strings.Builder
	for _, phase := range []struct {
		name  string
		stmts []string
	}{
		{"disable", p.Disable},
		{"truncate", p.Truncate},
		{"enable", p.Enable},
	} {
		fmt.Fprintf(&b, "-- %s\n", phase.name)
		for _, stmt := range phase.stmts {
			b.WriteString(stmt)
			b.WriteString(";\n")
		}
	}
	return b.String()
}

// quoteIdent doubles any embedded quote character and wraps name in it.
func quoteIdent(quote, name string) string {
	return quote + strings.ReplaceAll(name, quote, quote+quote) + quote
}
