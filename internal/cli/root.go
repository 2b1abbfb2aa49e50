// Package cli implements the testdb administration command.
package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/phrazzld/petcare-harness/internal/config"
	"github.com/phrazzld/petcare-harness/internal/platform/logger"
	"github.com/phrazzld/petcare-harness/internal/testdb"
)

// RootOptions holds global flags and the state PersistentPreRunE prepares
// for subcommands.
type RootOptions struct {
	EnvFile string

	Config *config.Config
	Logger *slog.Logger
}

// ExitCodeError carries a process exit status out of a command.
type ExitCodeError struct {
	Code int
}

func (e *ExitCodeError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// NewRootCommand creates the root command for the testdb CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "testdb",
		Short: "Manage the isolated pet-care test database",
		Long: `Create, initialise, migrate and empty the database the pet-care test
suite runs against, or run the suite itself.

The target is read from TEST_DB_* environment variables, seeded from the
file given by --env-file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFromEnvFile(opts.EnvFile)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			log, err := logger.SetupWithWriter(cfg.Log, cmd.ErrOrStderr())
			if err != nil {
				return fmt.Errorf("failed to set up logger: %w", err)
			}

			opts.Config = cfg
			opts.Logger = log.With("run_id", uuid.New().String(), "command", cmd.Name())
			opts.Logger.Debug("configuration loaded",
				"driver", cfg.Database.Driver,
				"host", cfg.Database.Host,
				"port", cfg.Database.Port,
				"user", cfg.Database.User,
				"password_set", cfg.Database.Password != "",
				"database", cfg.Database.Name)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", config.DefaultEnvFile, "file to seed environment variables from")

	cmd.AddCommand(NewEnsureCommand(opts))
	cmd.AddCommand(NewInitCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewCleanCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))

	return cmd
}

// withManager opens a manager for the configured database, runs fn and
// closes it, committing what fn left pending.
func withManager(ctx context.Context, opts *RootOptions, fn func(*testdb.Manager) error) error {
	mgr, err := testdb.New(opts.Config.Database, testdb.WithLogger(opts.Logger))
	if err != nil {
		return err
	}
	if err := mgr.Open(ctx); err != nil {
		return err
	}
	defer func() {
		if err := mgr.Close(ctx); err != nil {
			opts.Logger.Warn("failed to close database", "error", err)
		}
	}()

	if err := fn(mgr); err != nil {
		return err
	}
	return mgr.Commit(ctx)
}
