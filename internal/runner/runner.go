// Package runner runs the project's test suite as a child process and
// reports its outcome.
package runner

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/exec"

	"github.com/fatih/color"

	"github.com/phrazzld/petcare-harness/internal/ciutil"
)

// DefaultCommand is the test command run when Options.Command is empty.
var DefaultCommand = []string{"go", "test", "-v", "./..."}

// Options configures Run. Zero values select the defaults.
type Options struct {
	// Dir is the working directory. Empty means the project root.
	Dir string

	// Stdout and Stderr receive the child's output and the banner.
	Stdout io.Writer
	Stderr io.Writer

	Command []string

	// Env is appended to the current environment.
	Env []string

	Logger *slog.Logger
}

// Run executes the test command, streaming its output, and returns the
// exit code: 0 when every test passed, the child's code when it failed,
// and 1 when the command could not be started.
func Run(ctx context.Context, opts Options) int {
	opts = withDefaults(opts)
	log := opts.Logger

	banner := color.New(color.FgCyan, color.Bold)
	passed := color.New(color.FgGreen, color.Bold)
	failed := color.New(color.FgRed, color.Bold)

	_, _ = banner.Fprintln(opts.Stdout, "Starting Pet Care Management Tests...")

	dir := opts.Dir
	if dir == "" {
		root, err := ciutil.FindProjectRoot(log)
		if err != nil {
			log.Error("cannot locate project root", "error", err)
			_, _ = failed.Fprintf(opts.Stderr, "Cannot locate project root: %v\n", err)
			return 1
		}
		dir = root
	}

	cmd := exec.CommandContext(ctx, opts.Command[0], opts.Command[1:]...)
	cmd.Dir = dir
	cmd.Stdout = opts.Stdout
	cmd.Stderr = opts.Stderr
	cmd.Env = append(os.Environ(), opts.Env...)

	log.Debug("running tests", "dir", dir, "command", opts.Command)

	code, err := exitCode(cmd.Run())
	if err != nil {
		log.Error("test command failed to run", "command", opts.Command[0], "error", err)
		_, _ = failed.Fprintf(opts.Stderr, "Failed to run %s: %v\n", opts.Command[0], err)
		return 1
	}

	if code == 0 {
		_, _ = passed.Fprintln(opts.Stdout, "ALL TESTS PASSED!")
	} else {
		_, _ = failed.Fprintln(opts.Stdout, "TESTS FAILED!")
	}
	log.Info("test run finished", "exit_code", code)
	return code
}

// exitCode turns the result of cmd.Run into the child's exit status. It
// returns an error only when the child never ran or was killed.
func exitCode(err error) (int, error) {
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code := exitErr.ExitCode(); code >= 0 {
			return code, nil
		}
	}
	return 1, err
}

func withDefaults(opts Options) Options {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if len(opts.Command) == 0 {
		opts.Command = DefaultCommand
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return opts
}
