//go:build integration

package testdb

import (
	"testing"
)

// These tests start postgres and mysql containers and run the shared
// session checks against them. They are skipped when docker is unavailable
// or -short is set.

func TestPostgresSession(t *testing.T) {
	exerciseSession(t, ContainerConfig(t, "postgres"))
}

func TestMySQLSession(t *testing.T) {
	exerciseSession(t, ContainerConfig(t, "mysql"))
}
