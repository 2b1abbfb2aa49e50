// Command runtests runs the pet-care test suite from the project root and
// exits with the suite's status.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/phrazzld/petcare-harness/internal/runner"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := runner.Run(ctx, runner.Options{})
	stop()
	os.Exit(code)
}
