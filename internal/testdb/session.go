package testdb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/phrazzld/petcare-harness/internal/config"
)

// State is a session's position in its lifecycle.
type State int

const (
	// StateReady means the schema is in place and no test transaction is open.
	StateReady State = iota
	// StateInTransaction means a test transaction is open.
	StateInTransaction
	// StateClosed is terminal.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateInTransaction:
		return "in_transaction"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Session is a test session: one manager whose schema was initialised once,
// handing each test a transaction that is always rolled back.
type Session struct {
	id  uuid.UUID
	mgr *Manager
	log *slog.Logger

	mu    sync.Mutex
	state State
}

// OpenSession creates the database if needed, connects and initialises the
// schema: cfg.SchemaPath when set, the embedded schema for the dialect
// otherwise. Any failure is returned and leaves nothing open.
func OpenSession(ctx context.Context, cfg config.DatabaseConfig, opts ...Option) (*Session, error) {
	id := uuid.New()

	mgr, err := New(cfg, opts...)
	if err != nil {
		return nil, err
	}
	mgr.logger = mgr.logger.With(slog.String("session_id", id.String()))

	if err := mgr.Open(ctx); err != nil {
		return nil, err
	}

	if err := initializeSessionSchema(ctx, mgr, cfg.SchemaPath); err != nil {
		if closeErr := mgr.Close(ctx); closeErr != nil {
			mgr.logger.WarnContext(ctx, "failed to close manager after schema error", slog.String("error", closeErr.Error()))
		}
		return nil, err
	}

	mgr.logger.InfoContext(ctx, "test session ready")
	return &Session{id: id, mgr: mgr, log: mgr.logger, state: StateReady}, nil
}

func initializeSessionSchema(ctx context.Context, mgr *Manager, schemaPath string) error {
	if schemaPath == "" {
		return mgr.InitializeEmbeddedSchema(ctx)
	}
	return mgr.InitializeSchemaFile(ctx, schemaPath)
}

// ID returns the session's correlation id.
func (s *Session) ID() uuid.UUID { return s.id }

// Manager returns the session's manager.
func (s *Session) Manager() *Manager { return s.mgr }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// WithTx runs fn inside a fresh transaction and rolls it back afterwards,
// whether fn returns, fails or panics. A panic is re-raised once the
// rollback has run; a rollback failure is joined to fn's error.
func (s *Session) WithTx(ctx context.Context, fn func(ctx context.Context, db *Manager) error) (err error) {
	if err := s.begin(ctx); err != nil {
		return err
	}

	defer func() {
		p := recover()
		rbErr := s.end(ctx)
		if p != nil {
			if rbErr != nil {
				s.log.ErrorContext(ctx, "failed to roll back test transaction after panic",
					slog.String("error", rbErr.Error()), slog.Any("panic", p))
			}
			// ALLOW-PANIC: propagating caught panic from test body
			panic(p)
		}
		if rbErr != nil {
			s.log.ErrorContext(ctx, "failed to roll back test transaction", slog.String("error", rbErr.Error()))
			err = errors.Join(err, rbErr)
		}
	}()

	return fn(ctx, s.mgr)
}

// Run is WithTx for test bodies. It also rolls back when fn stops the test
// with t.FailNow.
func (s *Session) Run(t testing.TB, fn func(t testing.TB, db *Manager)) {
	t.Helper()

	err := s.WithTx(context.Background(), func(_ context.Context, db *Manager) error {
		fn(t, db)
		return nil
	})
	if err != nil {
		t.Fatalf("testdb: %v", err)
	}
}

// Close ends the session: it rolls back an open test transaction, empties
// every table when the configuration asks for it and closes the manager.
// Closing twice is harmless.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return nil
	}

	var errs []error
	if err := s.mgr.Rollback(ctx); err != nil {
		errs = append(errs, err)
	}
	if s.mgr.Config().TruncateOnClose {
		if err := s.mgr.Cleanup(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.mgr.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	s.state = StateClosed

	s.log.InfoContext(ctx, "test session closed")
	return errors.Join(errs...)
}

// begin moves the session from ready to in-transaction.
func (s *Session) begin(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateClosed:
		return ErrSessionClosed
	case StateInTransaction:
		return ErrTxInProgress
	}
	if err := s.mgr.Begin(ctx); err != nil {
		return err
	}
	s.state = StateInTransaction
	return nil
}

// end rolls back the test transaction and returns the session to ready.
func (s *Session) end(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateInTransaction {
		return nil
	}
	s.state = StateReady
	return s.mgr.Rollback(ctx)
}
