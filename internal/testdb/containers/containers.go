// Package containers starts throwaway database servers for integration
// tests with testcontainers-go and describes them as harness configuration.
package containers

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mysql"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/phrazzld/petcare-harness/internal/config"
)

// Images used for each engine.
const (
	PostgresImage = "postgres:16-alpine"
	MySQLImage    = "mysql:8.0"
)

// Container ports the engines listen on.
const (
	PostgresPort nat.Port = "5432/tcp"
	MySQLPort    nat.Port = "3306/tcp"
)

const (
	containerUser     = "petcare"
	containerPassword = "petcare"
	testDatabase      = "petcare_test"
)

// ErrDockerUnavailable is returned when no docker daemon answers.
var ErrDockerUnavailable = errors.New("containers: docker is not available")

// Database is a running database container.
type Database struct {
	// Config points at the container. Its database does not exist yet;
	// the harness creates it like it would on a real server.
	Config config.DatabaseConfig

	container testcontainers.Container
}

// Terminate stops and removes the container.
func (d *Database) Terminate() error {
	return testcontainers.TerminateContainer(d.container)
}

// DockerAvailable reports whether the docker daemon is reachable.
// testcontainers-go panics rather than returning an error when docker is
// missing, so callers probe first.
func DockerAvailable() bool {
	return exec.Command("docker", "info").Run() == nil
}

// Start launches a container for driver ("postgres" or "mysql").
func Start(ctx context.Context, driver string) (*Database, error) {
	switch driver {
	case "postgres":
		return StartPostgres(ctx)
	case "mysql":
		return StartMySQL(ctx)
	}
	return nil, fmt.Errorf("containers: unsupported driver %q", driver)
}

// StartPostgres runs PostgresImage.
func StartPostgres(ctx context.Context) (*Database, error) {
	if !DockerAvailable() {
		return nil, ErrDockerUnavailable
	}

	c, err := postgres.Run(ctx,
		PostgresImage,
		postgres.WithDatabase("postgres"),
		postgres.WithUsername(containerUser),
		postgres.WithPassword(containerPassword),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		return nil, fmt.Errorf("containers: start postgres: %w", err)
	}

	return describe(ctx, c, PostgresPort, config.DatabaseConfig{
		Driver:   "postgres",
		User:     containerUser,
		Password: containerPassword,
		SSLMode:  "disable",
	})
}

// StartMySQL runs MySQLImage with root credentials, which the harness needs
// to create the test database.
func StartMySQL(ctx context.Context) (*Database, error) {
	if !DockerAvailable() {
		return nil, ErrDockerUnavailable
	}

	c, err := mysql.Run(ctx,
		MySQLImage,
		mysql.WithUsername("root"),
		mysql.WithPassword(containerPassword),
	)
	if err != nil {
		return nil, fmt.Errorf("containers: start mysql: %w", err)
	}

	return describe(ctx, c, MySQLPort, config.DatabaseConfig{
		Driver:   "mysql",
		User:     "root",
		Password: containerPassword,
	})
}

func describe(ctx context.Context, c testcontainers.Container, port nat.Port, cfg config.DatabaseConfig) (*Database, error) {
	db := &Database{container: c}

	host, err := c.Host(ctx)
	if err != nil {
		_ = db.Terminate()
		return nil, fmt.Errorf("containers: host: %w", err)
	}
	mapped, err := c.MappedPort(ctx, port)
	if err != nil {
		_ = db.Terminate()
		return nil, fmt.Errorf("containers: port %s: %w", port, err)
	}

	cfg.Host = host
	cfg.Port = mapped.Int()
	cfg.Name = testDatabase
	cfg.TruncateOnClose = true
	cfg.ConnectTimeout = 10 * time.Second
	db.Config = cfg
	return db, nil
}
