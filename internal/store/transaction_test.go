package store

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/petcare-harness/internal/platform/logger"
)

const deleteStalePets = "DELETE FROM pets WHERE user_id = ?"

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func TestRunInTransaction_Success(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(deleteStalePets)).
		WithArgs(7).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	err := RunInTransaction(context.Background(), db, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, deleteStalePets, 7)
		return err
	})

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTransaction_FunctionError(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	expectedErr := errors.New("function failed")
	err := RunInTransaction(context.Background(), db, func(ctx context.Context, tx *sql.Tx) error {
		return expectedErr
	})

	assert.Equal(t, expectedErr, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTransaction_BeginTransactionError(t *testing.T) {
	db, mock := newMock(t)

	expectedErr := errors.New("begin transaction failed")
	mock.ExpectBegin().WillReturnError(expectedErr)

	err := RunInTransaction(context.Background(), db, func(ctx context.Context, tx *sql.Tx) error {
		t.Fatal("fn must not run when begin fails")
		return nil
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to begin transaction")
	assert.ErrorIs(t, err, expectedErr)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTransaction_CommitError(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectBegin()
	expectedErr := errors.New("commit failed")
	mock.ExpectCommit().WillReturnError(expectedErr)

	err := RunInTransaction(context.Background(), db, func(ctx context.Context, tx *sql.Tx) error {
		return nil
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to commit transaction")
	assert.ErrorIs(t, err, expectedErr)
	assert.ErrorIs(t, err, ErrTransactionFailed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTransaction_RollbackError(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectBegin()
	functionErr := errors.New("function failed")
	mock.ExpectRollback().WillReturnError(errors.New("rollback failed"))

	err := RunInTransaction(context.Background(), db, func(ctx context.Context, tx *sql.Tx) error {
		return functionErr
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "error rolling back transaction")
	assert.Contains(t, err.Error(), "rollback failed")
	assert.ErrorIs(t, err, functionErr)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTransaction_Panic(t *testing.T) {
	db, mock := newMock(t)
	log, buf := logger.NewTestLogger(t)
	ctx := logger.WithLogger(context.Background(), log)

	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.PanicsWithValue(t, "test panic", func() {
		_ = RunInTransaction(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
			panic("test panic")
		})
	})

	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Contains(t, buf.Messages(), "rolled back transaction after panic")
}

func TestRunInTransaction_PanicWithRollbackError(t *testing.T) {
	db, mock := newMock(t)
	log, buf := logger.NewTestLogger(t)
	ctx := logger.WithLogger(context.Background(), log)

	mock.ExpectBegin()
	mock.ExpectRollback().WillReturnError(errors.New("rollback failed"))

	assert.Panics(t, func() {
		_ = RunInTransaction(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
			panic("test panic")
		})
	})

	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Contains(t, buf.Messages(), "failed to roll back transaction after panic")
}

func TestIntegrityClassification(t *testing.T) {
	dup := NewStoreError("user", "insert", "unique constraint", ErrDuplicate)
	fk := errors.Join(ErrForeignKey, errors.New("pets_user_id_fkey"))

	assert.True(t, IsDuplicateError(dup))
	assert.True(t, IsIntegrityError(dup))
	assert.True(t, IsIntegrityError(fk))
	assert.False(t, IsDuplicateError(fk))
	assert.False(t, IsIntegrityError(ErrTransactionFailed))
	assert.Equal(t, "insert operation on user failed: unique constraint: entity already exists", dup.Error())
}
