package testdb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/phrazzld/petcare-harness/internal/config"
	"github.com/phrazzld/petcare-harness/internal/schema"
	"github.com/phrazzld/petcare-harness/internal/store"
)

// sqlitePragmas are applied by the driver to every new connection.
const sqlitePragmas = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

type sqliteDialect struct{}

func (sqliteDialect) Name() string         { return "sqlite" }
func (sqliteDialect) DriverName() string   { return "sqlite" }
func (sqliteDialect) BindType() int        { return sqlx.QUESTION }
func (sqliteDialect) GooseDialect() string { return "sqlite3" }

func (sqliteDialect) splitOptions() schema.SplitOptions { return schema.SplitOptions{} }

func (sqliteDialect) QuoteIdent(name string) string { return quoteIdent(`"`, name) }

// DSN treats cfg.Name as the database file path.
func (sqliteDialect) DSN(cfg config.DatabaseConfig) string {
	return SQLitePath(cfg.Name) + "?" + sqlitePragmas
}

// SQLitePath returns the file used for a sqlite database name, adding a
// ".db" extension when the name has none.
func SQLitePath(name string) string {
	if filepath.Ext(name) == "" {
		return name + ".db"
	}
	return name
}

func (sqliteDialect) ensure(_ context.Context, cfg config.DatabaseConfig, _ Opener, log *slog.Logger) error {
	path := SQLitePath(cfg.Name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &ConnectionError{Op: "ensure", Target: path, Err: err}
	}
	log.Debug("test database directory ready", slog.String("path", path))
	return nil
}

func (sqliteDialect) listTablesQuery() string {
	return "SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name"
}

// CleanupPlan defers foreign key enforcement to commit time; the pragma
// resets itself when the transaction ends.
func (d sqliteDialect) CleanupPlan(tables []string) CleanupPlan {
	plan := CleanupPlan{Disable: []string{"PRAGMA defer_foreign_keys = ON"}}
	for _, table := range tables {
		plan.Truncate = append(plan.Truncate, "DELETE FROM "+d.QuoteIdent(table))
	}
	return plan
}

func (sqliteDialect) classify(err error) error {
	var liteErr *sqlite.Error
	if !errors.As(err, &liteErr) {
		return err
	}
	switch liteErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return fmt.Errorf("%w: %w", store.ErrDuplicate, err)
	case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
		return fmt.Errorf("%w: %w", store.ErrForeignKey, err)
	case sqlite3.SQLITE_CONSTRAINT_CHECK, sqlite3.SQLITE_CONSTRAINT_NOTNULL:
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}
	return err
}

func (sqliteDialect) isUndefinedTable(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no such table")
}

func (sqliteDialect) statementSavepoints() bool { return false }
func (sqliteDialect) lastInsertIDQuery() string { return "" }
