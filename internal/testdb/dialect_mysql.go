package testdb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/phrazzld/petcare-harness/internal/ciutil"
	"github.com/phrazzld/petcare-harness/internal/config"
	"github.com/phrazzld/petcare-harness/internal/schema"
	"github.com/phrazzld/petcare-harness/internal/store"
)

// MySQL server error numbers
const (
	mysqlDuplicateEntry      = 1062
	mysqlRowIsReferenced     = 1451
	mysqlNoReferencedRow     = 1452
	mysqlRowIsReferencedOld  = 1217
	mysqlNoReferencedRowOld  = 1216
	mysqlBadNull             = 1048
	mysqlDataTruncated       = 1265
	mysqlCheckViolated       = 3819
	mysqlNoSuchTable         = 1146
	mysqlDatabaseCreateExist = 1007
)

type mysqlDialect struct{}

func (mysqlDialect) Name() string         { return "mysql" }
func (mysqlDialect) DriverName() string   { return "mysql" }
func (mysqlDialect) BindType() int        { return sqlx.QUESTION }
func (mysqlDialect) GooseDialect() string { return "mysql" }

func (mysqlDialect) splitOptions() schema.SplitOptions {
	return schema.SplitOptions{BackslashEscapes: true}
}

func (mysqlDialect) QuoteIdent(name string) string { return quoteIdent("`", name) }

func (d mysqlDialect) DSN(cfg config.DatabaseConfig) string {
	return d.config(cfg, cfg.Name).FormatDSN()
}

func (mysqlDialect) config(cfg config.DatabaseConfig, database string) *mysql.Config {
	c := mysql.NewConfig()
	c.User = cfg.EffectiveUser()
	c.Passwd = cfg.Password
	c.Net = "tcp"
	c.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.EffectivePort()))
	c.DBName = database
	c.ParseTime = true
	c.Timeout = cfg.ConnectTimeout
	return c
}

func (d mysqlDialect) ensure(ctx context.Context, cfg config.DatabaseConfig, open Opener, log *slog.Logger) error {
	dsn := d.config(cfg, "").FormatDSN()
	db, err := open(d.DriverName(), dsn)
	if err != nil {
		return &ConnectionError{Op: "ensure", Target: ciutil.MaskDSN(dsn), Err: err}
	}
	defer closeDB(db, log)

	if err := ping(ctx, db, cfg.ConnectTimeout); err != nil {
		return &ConnectionError{Op: "ensure", Target: ciutil.MaskDSN(dsn), Err: err}
	}

	if _, err := db.ExecContext(ctx, "CREATE DATABASE IF NOT EXISTS "+d.QuoteIdent(cfg.Name)); err != nil {
		if mysqlNumber(err) == mysqlDatabaseCreateExist {
			return nil
		}
		return fmt.Errorf("testdb: create database %q: %w", cfg.Name, err)
	}
	log.Debug("test database ensured", slog.String("database", cfg.Name))
	return nil
}

func (mysqlDialect) listTablesQuery() string {
	return "SELECT table_name FROM information_schema.tables " +
		"WHERE table_schema = DATABASE() AND table_type = 'BASE TABLE' ORDER BY table_name"
}

func (d mysqlDialect) CleanupPlan(tables []string) CleanupPlan {
	plan := CleanupPlan{
		Disable: []string{"SET FOREIGN_KEY_CHECKS = 0"},
		Enable:  []string{"SET FOREIGN_KEY_CHECKS = 1"},
	}
	for _, table := range tables {
		plan.Truncate = append(plan.Truncate, "TRUNCATE TABLE "+d.QuoteIdent(table))
	}
	return plan
}

func (mysqlDialect) classify(err error) error {
	switch mysqlNumber(err) {
	case mysqlDuplicateEntry:
		return fmt.Errorf("%w: %w", store.ErrDuplicate, err)
	case mysqlRowIsReferenced, mysqlNoReferencedRow, mysqlRowIsReferencedOld, mysqlNoReferencedRowOld:
		return fmt.Errorf("%w: %w", store.ErrForeignKey, err)
	case mysqlBadNull, mysqlDataTruncated, mysqlCheckViolated:
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}
	return err
}

func (mysqlDialect) isUndefinedTable(err error) bool {
	return mysqlNumber(err) == mysqlNoSuchTable
}

func (mysqlDialect) statementSavepoints() bool { return false }
func (mysqlDialect) lastInsertIDQuery() string { return "" }

// mysqlNumber returns the server error number carried by err, or 0.
func mysqlNumber(err error) uint16 {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number
	}
	return 0
}
