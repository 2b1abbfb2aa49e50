package testdb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Tables lists the base tables of the test database in name order,
// excluding the migration version table.
func (m *Manager) Tables(ctx context.Context) ([]string, error) {
	tx, err := m.currentTx(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.QueryContext(ctx, m.dialect.listTablesQuery())
	if err != nil {
		return nil, fmt.Errorf("testdb: list tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("testdb: list tables: %w", err)
		}
		if name == MigrationTable {
			continue
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("testdb: list tables: %w", err)
	}
	return tables, nil
}

// Cleanup empties every table with referential checks suspended, then
// commits. A table that disappears mid-run is skipped; other failures are
// collected, the checks are re-enabled regardless, and the work is rolled
// back. Cleanup refuses to run inside an explicit transaction.
func (m *Manager) Cleanup(ctx context.Context) error {
	if m.conn == nil {
		return ErrNotConnected
	}
	if m.explicit {
		return ErrTxInProgress
	}

	tables, err := m.Tables(ctx)
	if err != nil {
		return errors.Join(err, m.Rollback(ctx))
	}
	tx, err := m.currentTx(ctx)
	if err != nil {
		return err
	}

	plan := m.dialect.CleanupPlan(tables)

	var errs []error
	for _, stmt := range plan.Disable {
		if err := m.exec(ctx, tx, stmt); err != nil {
			errs = append(errs, fmt.Errorf("testdb: disable checks: %w", err))
			break
		}
	}
	if len(errs) == 0 {
		for i, stmt := range plan.Truncate {
			err := m.exec(ctx, tx, stmt)
			switch {
			case err == nil:
			case m.dialect.isUndefinedTable(err):
				m.logger.WarnContext(ctx, "table vanished during cleanup", slog.String("table", tables[i]))
			default:
				errs = append(errs, fmt.Errorf("testdb: truncate %s: %w", tables[i], err))
			}
		}
	}
	for _, stmt := range plan.Enable {
		if err := m.exec(ctx, tx, stmt); err != nil {
			errs = append(errs, fmt.Errorf("testdb: enable checks: %w", err))
		}
	}

	if len(errs) > 0 {
		errs = append(errs, m.Rollback(ctx))
		return errors.Join(errs...)
	}
	if err := m.Commit(ctx); err != nil {
		return err
	}

	m.logger.InfoContext(ctx, "test database truncated", slog.Int("tables", len(tables)))
	return nil
}
