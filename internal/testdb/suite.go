package testdb

import (
	"context"

	"github.com/stretchr/testify/suite"

	"github.com/phrazzld/petcare-harness/internal/config"
	"github.com/phrazzld/petcare-harness/internal/platform/logger"
)

// Suite runs a testify suite against one test session. Every test method
// gets its own transaction through s.DB, rolled back in TearDownTest.
//
//	type PetSuite struct{ testdb.Suite }
//
//	func (s *PetSuite) TestInsert() {
//	    _, err := s.DB.Query(s.Ctx, "INSERT INTO users ...")
//	    s.Require().NoError(err)
//	}
//
//	func TestPetSuite(t *testing.T) { suite.Run(t, new(PetSuite)) }
//
// Set Config before suite.Run to pin a database; otherwise ConfigFromEnv
// decides.
type Suite struct {
	suite.Suite

	Config  *config.DatabaseConfig
	Session *Session
	DB      *Manager
	Ctx     context.Context
}

// SetupSuite opens the session.
func (s *Suite) SetupSuite() {
	s.Ctx = context.Background()

	cfg := s.Config
	if cfg == nil {
		resolved := ConfigFromEnv(s.T())
		cfg = &resolved
	}

	sess, err := OpenSession(s.Ctx, *cfg, WithLogger(logger.NewTestOutputLogger(s.T())))
	s.Require().NoError(err, "failed to open test session")
	s.Session = sess
}

// SetupTest begins the test transaction.
func (s *Suite) SetupTest() {
	s.Require().NoError(s.Session.begin(s.Ctx), "failed to begin test transaction")
	s.DB = s.Session.Manager()
}

// TearDownTest rolls the test transaction back.
func (s *Suite) TearDownTest() {
	if err := s.Session.end(s.Ctx); err != nil {
		s.T().Logf("Warning: failed to rollback transaction: %v", err)
	}
	s.DB = nil
}

// TearDownSuite closes the session.
func (s *Suite) TearDownSuite() {
	if s.Session == nil {
		return
	}
	if err := s.Session.Close(s.Ctx); err != nil {
		s.T().Logf("Warning: failed to close test session: %v", err)
	}
}
