package testdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/petcare-harness/internal/platform/logger"
	"github.com/phrazzld/petcare-harness/internal/store"
)

// Savepoint names used to keep one failed statement from aborting the
// enclosing postgres transaction.
const (
	statementSavepoint = "petcare_stmt"
	insertIDSavepoint  = "petcare_insert_id"
)

// Begin opens an explicit transaction on the session connection. Pending
// implicit work is committed first, as START TRANSACTION would. Begin fails
// with ErrTxInProgress while another explicit transaction is open.
func (m *Manager) Begin(ctx context.Context) error {
	if m.conn == nil {
		return ErrNotConnected
	}
	if m.tx != nil {
		if m.explicit {
			return ErrTxInProgress
		}
		if err := m.Commit(ctx); err != nil {
			return err
		}
	}

	tx, err := m.begin(ctx)
	if err != nil {
		return err
	}
	m.tx, m.explicit = tx, true
	m.logger.DebugContext(ctx, "transaction started")
	return nil
}

// Commit makes the current transaction, explicit or implicit, permanent.
// With nothing open it does nothing.
func (m *Manager) Commit(ctx context.Context) error {
	if m.tx == nil {
		return nil
	}
	tx := m.tx
	m.tx, m.explicit = nil, false

	if err := tx.Commit(); err != nil {
		m.logger.ErrorContext(ctx, "failed to commit transaction", slog.String("error", err.Error()))
		return fmt.Errorf("%w: failed to commit transaction: %w", store.ErrTransactionFailed, err)
	}
	m.logger.DebugContext(ctx, "transaction committed")
	return nil
}

// Rollback discards the current transaction, explicit or implicit. With
// nothing open it does nothing.
func (m *Manager) Rollback(ctx context.Context) error {
	if m.tx == nil {
		return nil
	}
	tx := m.tx
	m.tx, m.explicit = nil, false

	// sql.ErrTxDone is expected if the driver already ended the transaction
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		m.logger.ErrorContext(ctx, "failed to roll back transaction", slog.String("error", err.Error()))
		return fmt.Errorf("testdb: rollback: %w", err)
	}
	m.logger.DebugContext(ctx, "transaction rolled back")
	return nil
}

// currentTx returns the open transaction, starting an implicit one if
// needed.
func (m *Manager) currentTx(ctx context.Context) (*sql.Tx, error) {
	if m.conn == nil {
		return nil, ErrNotConnected
	}
	if m.tx != nil {
		return m.tx, nil
	}
	tx, err := m.begin(ctx)
	if err != nil {
		return nil, err
	}
	m.tx, m.explicit = tx, false
	return tx, nil
}

// begin starts a transaction whose lifetime is independent of ctx:
// database/sql would otherwise roll it back as soon as a per-call context is
// cancelled.
func (m *Manager) begin(ctx context.Context) (*sql.Tx, error) {
	tx, err := m.conn.BeginTx(context.WithoutCancel(ctx), nil)
	if err != nil {
		return nil, fmt.Errorf("testdb: begin transaction: %w", err)
	}
	return tx, nil
}

// atomically runs fn under a savepoint when the dialect needs one, undoing
// just fn's effects if it fails.
func (m *Manager) atomically(ctx context.Context, tx *sql.Tx, name string, fn func() error) error {
	if !m.dialect.statementSavepoints() {
		return fn()
	}

	if _, err := tx.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		return fmt.Errorf("testdb: savepoint: %w", err)
	}

	if err := fn(); err != nil {
		recoverCtx := context.WithoutCancel(ctx)
		if _, rbErr := tx.ExecContext(recoverCtx, "ROLLBACK TO SAVEPOINT "+name); rbErr != nil {
			return errors.Join(err, fmt.Errorf("testdb: rollback to savepoint: %w", rbErr))
		}
		if _, relErr := tx.ExecContext(recoverCtx, "RELEASE SAVEPOINT "+name); relErr != nil {
			return errors.Join(err, fmt.Errorf("testdb: release savepoint: %w", relErr))
		}
		return err
	}

	if _, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT "+name); err != nil {
		return fmt.Errorf("testdb: release savepoint: %w", err)
	}
	return nil
}

// exec runs a statement that returns no rows inside tx.
func (m *Manager) exec(ctx context.Context, tx *sql.Tx, stmt string) error {
	return m.atomically(ctx, tx, statementSavepoint, func() error {
		_, err := tx.ExecContext(ctx, stmt)
		return err
	})
}

// Detached runs fn in a separate transaction on the pool and commits it when
// fn returns nil. Its writes are independent of the session transaction:
// they survive a rollback and must be removed explicitly, with another
// Detached call or Cleanup. Statements given to db use the driver's native
// placeholders.
//
// On sqlite a session transaction that has already written holds the write
// lock, so a detached write waits for it and fails after the busy timeout.
func (m *Manager) Detached(ctx context.Context, fn func(ctx context.Context, db store.DBTX) error) error {
	if m.db == nil {
		return ErrNotConnected
	}
	ctx = logger.WithLogger(ctx, m.logger)
	return store.RunInTransaction(ctx, m.db, func(ctx context.Context, tx *sql.Tx) error {
		return fn(ctx, tx)
	})
}
