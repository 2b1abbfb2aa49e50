package runner

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strconv"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"

	"github.com/phrazzld/petcare-harness/internal/platform/logger"
)

// TestHelperProcess is not a real test. It stands in for the test command
// when re-executed by helperCommand.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	fmt.Fprintln(os.Stdout, "=== RUN   TestSomething")
	fmt.Fprintln(os.Stderr, "some diagnostics")
	code, _ := strconv.Atoi(os.Getenv("HELPER_EXIT_CODE"))
	os.Exit(code)
}

func helperOptions(t *testing.T, exitCode int) (Options, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	log, _ := logger.NewTestLogger(t)
	return Options{
		Dir:     t.TempDir(),
		Stdout:  &stdout,
		Stderr:  &stderr,
		Command: []string{os.Args[0], "-test.run=TestHelperProcess"},
		Env:     []string{"GO_WANT_HELPER_PROCESS=1", "HELPER_EXIT_CODE=" + strconv.Itoa(exitCode)},
		Logger:  log,
	}, &stdout, &stderr
}

func disableColor(t *testing.T) {
	t.Helper()
	original := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = original })
}

func TestRunPassing(t *testing.T) {
	disableColor(t)
	opts, stdout, stderr := helperOptions(t, 0)

	code := Run(context.Background(), opts)

	assert.Equal(t, 0, code)
	assert.Contains(t, stdout.String(), "Starting Pet Care Management Tests...")
	assert.Contains(t, stdout.String(), "=== RUN   TestSomething")
	assert.Contains(t, stdout.String(), "ALL TESTS PASSED!")
	assert.Contains(t, stderr.String(), "some diagnostics")
}

func TestRunPropagatesExitCode(t *testing.T) {
	disableColor(t)
	opts, stdout, _ := helperOptions(t, 3)

	code := Run(context.Background(), opts)

	assert.Equal(t, 3, code)
	assert.Contains(t, stdout.String(), "TESTS FAILED!")
	assert.NotContains(t, stdout.String(), "ALL TESTS PASSED!")
}

func TestRunMissingCommand(t *testing.T) {
	disableColor(t)
	opts, _, stderr := helperOptions(t, 0)
	opts.Command = []string{"petcare-no-such-binary"}

	code := Run(context.Background(), opts)

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "Failed to run petcare-no-such-binary")
}

func TestExitCode(t *testing.T) {
	code, err := exitCode(nil)
	assert.NoError(t, err)
	assert.Equal(t, 0, code)

	code, err = exitCode(assert.AnError)
	assert.Error(t, err)
	assert.Equal(t, 1, code)
}

func TestWithDefaults(t *testing.T) {
	opts := withDefaults(Options{})

	assert.Equal(t, DefaultCommand, opts.Command)
	assert.Equal(t, os.Stdout, opts.Stdout)
	assert.Equal(t, os.Stderr, opts.Stderr)
	assert.NotNil(t, opts.Logger)
}
