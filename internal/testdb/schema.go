package testdb

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"sync"

	"github.com/pressly/goose/v3"

	"github.com/phrazzld/petcare-harness/internal/ciutil"
	"github.com/phrazzld/petcare-harness/internal/schema"
)

// MigrationTable is the goose version table. Cleanup never truncates it.
const MigrationTable = "schema_migrations"

// gooseMu serialises use of goose's package-level configuration.
var gooseMu sync.Mutex

// InitializeSchema executes every statement of src in order on the session
// connection and commits. On the first failure it rolls back and reports the
// failing statement's ordinal. Schemas written with IF NOT EXISTS can be
// applied repeatedly.
func (m *Manager) InitializeSchema(ctx context.Context, src string) error {
	if m.conn == nil {
		return ErrNotConnected
	}
	if m.explicit {
		return ErrTxInProgress
	}

	stmts, err := schema.SplitWith(src, m.dialect.splitOptions())
	if err != nil {
		return err
	}

	tx, err := m.currentTx(ctx)
	if err != nil {
		return err
	}
	for i, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			if rbErr := m.Rollback(ctx); rbErr != nil {
				m.logger.WarnContext(ctx, "rollback after schema failure failed", slog.String("error", rbErr.Error()))
			}
			return fmt.Errorf("testdb: schema statement %d of %d: %w", i+1, len(stmts), err)
		}
	}
	if err := m.Commit(ctx); err != nil {
		return err
	}

	m.logger.InfoContext(ctx, "schema initialized", slog.Int("statements", len(stmts)))
	return nil
}

// InitializeSchemaFile reads a schema file and applies it with
// InitializeSchema. Relative paths resolve against the project root.
func (m *Manager) InitializeSchemaFile(ctx context.Context, path string) error {
	path, err := ciutil.ResolvePath(path, m.logger)
	if err != nil {
		return err
	}
	src, err := schema.ReadFile(path)
	if err != nil {
		return err
	}
	m.logger.DebugContext(ctx, "loading schema file", slog.String("path", path))
	return m.InitializeSchema(ctx, src)
}

// InitializeEmbeddedSchema applies the schema bundled for the manager's
// dialect.
func (m *Manager) InitializeEmbeddedSchema(ctx context.Context) error {
	src, err := schema.Embedded(m.dialect.Name())
	if err != nil {
		return err
	}
	return m.InitializeSchema(ctx, src)
}

// ApplyMigrations runs the goose migrations found in dir of fsys through the
// pool. Pending implicit work is committed first so the migrations see it.
func (m *Manager) ApplyMigrations(ctx context.Context, fsys fs.FS, dir string) error {
	if m.conn == nil {
		return ErrNotConnected
	}
	if m.explicit {
		return ErrTxInProgress
	}
	if err := m.Commit(ctx); err != nil {
		return err
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetLogger(gooseLogger{log: m.logger})
	goose.SetTableName(MigrationTable)
	goose.SetBaseFS(fsys)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect(m.dialect.GooseDialect()); err != nil {
		return fmt.Errorf("testdb: goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, m.db, dir); err != nil {
		return fmt.Errorf("testdb: apply migrations: %w", err)
	}
	return nil
}

// ApplyEmbeddedMigrations runs the migrations bundled for the manager's
// dialect.
func (m *Manager) ApplyEmbeddedMigrations(ctx context.Context) error {
	fsys, err := schema.Migrations(m.dialect.Name())
	if err != nil {
		return err
	}
	return m.ApplyMigrations(ctx, fsys, ".")
}

// gooseLogger routes goose output through slog.
type gooseLogger struct {
	log *slog.Logger
}

func (l gooseLogger) Printf(format string, v ...any) {
	l.log.Info(strings.TrimSpace(fmt.Sprintf(format, v...)), slog.String("source", "goose"))
}

// Fatalf logs at error level; goose's library entry points report failures
// through their returned errors.
func (l gooseLogger) Fatalf(format string, v ...any) {
	l.log.Error(strings.TrimSpace(fmt.Sprintf(format, v...)), slog.String("source", "goose"))
}
