package testdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/url"
	"strconv"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/jmoiron/sqlx"

	"github.com/phrazzld/petcare-harness/internal/ciutil"
	"github.com/phrazzld/petcare-harness/internal/config"
	"github.com/phrazzld/petcare-harness/internal/schema"
	"github.com/phrazzld/petcare-harness/internal/store"
)

// PostgreSQL error codes
const (
	uniqueViolationCode     = "23505"
	foreignKeyViolationCode = "23503"
	checkViolationCode      = "23514"
	notNullViolationCode    = "23502"
	undefinedTableCode      = "42P01"
	duplicateDatabaseCode   = "42P04"
)

// maintenanceDatabase always exists on a postgres server and is used to
// create the test database.
const maintenanceDatabase = "postgres"

type postgresDialect struct{}

func (postgresDialect) Name() string         { return "postgres" }
func (postgresDialect) DriverName() string   { return "pgx" }
func (postgresDialect) BindType() int        { return sqlx.DOLLAR }
func (postgresDialect) GooseDialect() string { return "postgres" }

func (postgresDialect) splitOptions() schema.SplitOptions { return schema.SplitOptions{} }

func (postgresDialect) QuoteIdent(name string) string { return quoteIdent(`"`, name) }

func (d postgresDialect) DSN(cfg config.DatabaseConfig) string {
	return d.dsn(cfg, cfg.Name)
}

func (postgresDialect) dsn(cfg config.DatabaseConfig, database string) string {
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.EffectivePort())),
		Path:   "/" + database,
	}
	user := cfg.EffectiveUser()
	switch {
	case cfg.Password != "":
		u.User = url.UserPassword(user, cfg.Password)
	case user != "":
		u.User = url.User(user)
	}

	q := url.Values{}
	if cfg.SSLMode != "" {
		q.Set("sslmode", cfg.SSLMode)
	}
	if cfg.ConnectTimeout > 0 {
		// libpq-style connect_timeout is whole seconds
		q.Set("connect_timeout", strconv.Itoa(int(math.Ceil(cfg.ConnectTimeout.Seconds()))))
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func (d postgresDialect) ensure(ctx context.Context, cfg config.DatabaseConfig, open Opener, log *slog.Logger) error {
	dsn := d.dsn(cfg, maintenanceDatabase)
	db, err := open(d.DriverName(), dsn)
	if err != nil {
		return &ConnectionError{Op: "ensure", Target: ciutil.MaskDSN(dsn), Err: err}
	}
	defer closeDB(db, log)

	if err := ping(ctx, db, cfg.ConnectTimeout); err != nil {
		return &ConnectionError{Op: "ensure", Target: ciutil.MaskDSN(dsn), Err: err}
	}

	var one int
	err = db.QueryRowContext(ctx, "SELECT 1 FROM pg_database WHERE datname = $1", cfg.Name).Scan(&one)
	if err == nil {
		log.Debug("test database exists", slog.String("database", cfg.Name))
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("testdb: probe database %q: %w", cfg.Name, err)
	}

	if _, err := db.ExecContext(ctx, "CREATE DATABASE "+d.QuoteIdent(cfg.Name)); err != nil {
		// another process created it between the probe and the create
		if pgCode(err) == duplicateDatabaseCode {
			return nil
		}
		return fmt.Errorf("testdb: create database %q: %w", cfg.Name, err)
	}
	log.Info("created test database", slog.String("database", cfg.Name))
	return nil
}

func (postgresDialect) listTablesQuery() string {
	return "SELECT table_name FROM information_schema.tables " +
		"WHERE table_schema = current_schema() AND table_type = 'BASE TABLE' ORDER BY table_name"
}

func (d postgresDialect) CleanupPlan(tables []string) CleanupPlan {
	plan := CleanupPlan{}
	for _, table := range tables {
		plan.Truncate = append(plan.Truncate, "TRUNCATE TABLE "+d.QuoteIdent(table)+" RESTART IDENTITY CASCADE")
	}
	return plan
}

func (postgresDialect) classify(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case uniqueViolationCode:
		return fmt.Errorf("%w: %w", store.ErrDuplicate, err)
	case foreignKeyViolationCode:
		return fmt.Errorf("%w (%s): %w", store.ErrForeignKey, pgErr.ConstraintName, err)
	case checkViolationCode:
		return fmt.Errorf("%w: check constraint violation (%s): %w", store.ErrInvalidEntity, pgErr.ConstraintName, err)
	case notNullViolationCode:
		return fmt.Errorf("%w: not null violation (%s): %w", store.ErrInvalidEntity, pgErr.ColumnName, err)
	}
	return err
}

func (postgresDialect) isUndefinedTable(err error) bool {
	return pgCode(err) == undefinedTableCode
}

func (postgresDialect) statementSavepoints() bool { return true }
func (postgresDialect) lastInsertIDQuery() string { return postgresInsertIDQuery }

// postgresInsertIDQuery reads the id the last insert into table $1 drew
// from the table's own serial or identity sequence. Matching lastval()
// rules out a value left over from an earlier insert when this statement
// did not touch the sequence.
const postgresInsertIDQuery = `SELECT currval(s.seq) FROM (
	SELECT pg_get_serial_sequence(a.attrelid::regclass::text, a.attname) AS seq
	FROM pg_attribute a
	WHERE a.attrelid = to_regclass($1) AND a.attnum > 0 AND NOT a.attisdropped
	ORDER BY a.attnum
) s
WHERE s.seq IS NOT NULL AND currval(s.seq) = lastval()
LIMIT 1`

// pgCode returns the SQLSTATE carried by err, or "".
func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
