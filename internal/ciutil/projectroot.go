package ciutil

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// GoModFile marks the project root.
const GoModFile = "go.mod"

// maxTraversal bounds the upward directory walk.
const maxTraversal = 16

// ErrProjectRootNotFound is returned when no directory containing go.mod is found.
var ErrProjectRootNotFound = errors.New("unable to find project root")

// FindProjectRoot returns the absolute path to the project root directory.
// It checks several sources in the following order:
//
// 1. PETCARE_PROJECT_ROOT environment variable (explicit override)
// 2. GITHUB_WORKSPACE or CI_PROJECT_DIR when running in CI
// 3. Traversal upward from the working directory looking for go.mod
func FindProjectRoot(logger *slog.Logger) (string, error) {
	for _, env := range []string{EnvProjectRoot, EnvGitHubWorkspace, EnvGitLabDir} {
		dir := os.Getenv(env)
		if dir == "" {
			continue
		}
		if !fileExists(filepath.Join(dir, GoModFile)) {
			return "", fmt.Errorf("%w: %s=%s has no %s", ErrProjectRootNotFound, env, dir, GoModFile)
		}
		if logger != nil {
			logger.Debug("project root from environment", "var", env, "project_root", dir)
		}
		return filepath.Abs(dir)
	}

	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current working directory: %w", err)
	}
	return FindProjectRootFrom(wd)
}

// FindProjectRootFrom walks upward from dir until it finds a go.mod file.
func FindProjectRootFrom(dir string) (string, error) {
	current, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}

	for i := 0; i < maxTraversal; i++ {
		if fileExists(filepath.Join(current, GoModFile)) {
			return current, nil
		}
		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		current = parent
	}

	return "", fmt.Errorf("%w: no %s above %s", ErrProjectRootNotFound, GoModFile, dir)
}

// ResolvePath returns path unchanged when it is absolute or exists relative
// to the working directory; otherwise it is resolved against the project root.
func ResolvePath(path string, logger *slog.Logger) (string, error) {
	if filepath.IsAbs(path) || fileExists(path) {
		return path, nil
	}

	root, err := FindProjectRoot(logger)
	if err != nil {
		return "", err
	}
	return filepath.Join(root, path), nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
