package testdb

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/phrazzld/petcare-harness/internal/config"
	"github.com/phrazzld/petcare-harness/internal/testdb/containers"
)

// EnvContainer names an engine ("postgres" or "mysql") to run in a
// throwaway container instead of using the configured server.
const EnvContainer = "TEST_DB_CONTAINER"

// envDriver is the variable that opts in to a configured server.
const envDriver = "TEST_DB_DRIVER"

// SQLiteConfig returns a configuration for a sqlite database inside dir.
func SQLiteConfig(dir string) config.DatabaseConfig {
	return config.DatabaseConfig{
		Driver:          "sqlite",
		Name:            filepath.Join(dir, "petcare_test.db"),
		TruncateOnClose: true,
		ConnectTimeout:  DefaultConnectTimeout,
	}
}

// ConfigFromEnv picks the database a test should use:
//
//  1. TEST_DB_CONTAINER set: a fresh container of that engine, removed when
//     the test ends (the test is skipped when docker is unavailable)
//  2. TEST_DB_DRIVER set: the server described by the environment and .env
//  3. otherwise: a sqlite database in the test's temporary directory
func ConfigFromEnv(t testing.TB) config.DatabaseConfig {
	t.Helper()

	if engine := os.Getenv(EnvContainer); engine != "" {
		return ContainerConfig(t, engine)
	}

	if os.Getenv(envDriver) == "" {
		return SQLiteConfig(t.TempDir())
	}

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("testdb: load configuration: %v", err)
	}
	return cfg.Database
}

// ContainerConfig starts a container for engine and registers its removal
// with t.Cleanup. It skips the test when docker is unavailable or -short is
// set.
func ContainerConfig(t testing.TB, engine string) config.DatabaseConfig {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping container-backed database in short mode")
	}

	db, err := containers.Start(context.Background(), engine)
	if errors.Is(err, containers.ErrDockerUnavailable) {
		t.Skip("Docker not available, skipping container-backed database")
	}
	if err != nil {
		t.Skipf("failed to start %s container: %v", engine, err)
	}
	t.Cleanup(func() {
		if err := db.Terminate(); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})
	return db.Config
}
