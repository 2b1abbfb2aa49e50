package testdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/petcare-harness/internal/ciutil"
	"github.com/phrazzld/petcare-harness/internal/config"
)

// DefaultConnectTimeout bounds connection attempts when the configuration
// leaves ConnectTimeout unset.
const DefaultConnectTimeout = 5 * time.Second

// Opener opens a database handle for a driver name and DSN. sql.Open is the
// default; tests substitute go-sqlmock.
type Opener func(driverName, dsn string) (*sql.DB, error)

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger the manager reports through.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithOpener replaces sql.Open.
func WithOpener(open Opener) Option {
	return func(m *Manager) {
		if open != nil {
			m.open = open
		}
	}
}

// Manager owns one test database and a single pinned connection to it.
// Autocommit is off: the first statement outside an explicit transaction
// opens an implicit one that lasts until Commit or Rollback.
//
// A Manager is not safe for concurrent use. Parallel tests each need their
// own Manager (or Session).
type Manager struct {
	cfg     config.DatabaseConfig
	dialect Dialect
	open    Opener
	logger  *slog.Logger

	db       *sql.DB
	conn     *sql.Conn
	tx       *sql.Tx
	explicit bool
}

// New returns an unconnected manager for cfg.
func New(cfg config.DatabaseConfig, opts ...Option) (*Manager, error) {
	dialect, err := LookupDialect(cfg.Driver)
	if err != nil {
		return nil, err
	}
	if cfg.Name == "" {
		return nil, errors.New("testdb: database name is required")
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}

	m := &Manager{
		cfg:     cfg,
		dialect: dialect,
		open:    sql.Open,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With(
		slog.String("component", "testdb"),
		slog.String("dialect", dialect.Name()),
		slog.String("database", cfg.Name),
	)
	return m, nil
}

// EnsureDatabase creates the configured database when it does not exist.
// It talks to the server without selecting the test database, so it works
// on a fresh server. It does not retry.
func (m *Manager) EnsureDatabase(ctx context.Context) error {
	return m.dialect.ensure(ctx, m.cfg, m.open, m.logger)
}

// Connect opens the pool, pins the session connection and pings it.
// Calling it on a connected manager does nothing.
func (m *Manager) Connect(ctx context.Context) error {
	if m.conn != nil {
		return nil
	}

	dsn := m.dialect.DSN(m.cfg)
	target := ciutil.MaskDSN(dsn)

	db, err := m.open(m.dialect.DriverName(), dsn)
	if err != nil {
		return &ConnectionError{Op: "connect", Target: target, Err: err}
	}

	connCtx, cancel := context.WithTimeout(ctx, m.cfg.ConnectTimeout)
	defer cancel()

	conn, err := db.Conn(connCtx)
	if err != nil {
		closeDB(db, m.logger)
		return &ConnectionError{Op: "connect", Target: target, Err: err}
	}
	if err := conn.PingContext(connCtx); err != nil {
		_ = conn.Close()
		closeDB(db, m.logger)
		return &ConnectionError{Op: "connect", Target: target, Err: err}
	}

	m.db, m.conn = db, conn
	m.logger.Info("connected to test database", slog.String("target", target))
	return nil
}

// Open is EnsureDatabase followed by Connect.
func (m *Manager) Open(ctx context.Context) error {
	if err := m.EnsureDatabase(ctx); err != nil {
		return err
	}
	return m.Connect(ctx)
}

// Close rolls back anything still open and releases the connection and the
// pool. Closing an unconnected or already closed manager returns nil.
func (m *Manager) Close(ctx context.Context) error {
	if m.db == nil {
		return nil
	}

	var errs []error
	if err := m.Rollback(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := m.conn.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
		errs = append(errs, fmt.Errorf("testdb: release connection: %w", err))
	}
	if err := m.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("testdb: close pool: %w", err))
	}
	m.db, m.conn = nil, nil

	m.logger.Debug("test database connection closed")
	return errors.Join(errs...)
}

// Dialect returns the manager's dialect.
func (m *Manager) Dialect() Dialect { return m.dialect }

// Config returns the configuration the manager was built with.
func (m *Manager) Config() config.DatabaseConfig { return m.cfg }

// DB returns the connection pool, or nil before Connect. Work done through
// the pool runs outside the session connection and its transaction.
func (m *Manager) DB() *sql.DB { return m.db }

// Connected reports whether Connect has succeeded and Close has not run.
func (m *Manager) Connected() bool { return m.conn != nil }

// InTransaction reports whether an explicit transaction is open.
func (m *Manager) InTransaction() bool { return m.tx != nil && m.explicit }

// ping checks a handle, bounded by timeout when it is positive.
func ping(ctx context.Context, db *sql.DB, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return db.PingContext(ctx)
}

func closeDB(db *sql.DB, log *slog.Logger) {
	if err := db.Close(); err != nil {
		log.Warn("failed to close database handle", slog.String("error", err.Error()))
	}
}
