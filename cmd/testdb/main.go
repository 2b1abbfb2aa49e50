// Command testdb manages the isolated database the pet-care test suite
// runs against.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/phrazzld/petcare-harness/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := cli.NewRootCommand().ExecuteContext(ctx)
	if err == nil {
		return
	}

	var exitErr *cli.ExitCodeError
	if errors.As(err, &exitErr) {
		stop()
		os.Exit(exitErr.Code)
	}
	fmt.Fprintln(os.Stderr, "Error:", err)
	stop()
	os.Exit(1)
}
