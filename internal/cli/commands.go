package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/phrazzld/petcare-harness/internal/runner"
	"github.com/phrazzld/petcare-harness/internal/testdb"
)

// NewEnsureCommand creates the ensure command.
func NewEnsureCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ensure",
		Short: "Create the test database if it does not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := testdb.New(rootOpts.Config.Database, testdb.WithLogger(rootOpts.Logger))
			if err != nil {
				return err
			}
			if err := mgr.EnsureDatabase(cmd.Context()); err != nil {
				return err
			}
			rootOpts.Logger.Info("test database ready", "database", rootOpts.Config.Database.Name)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "database %s is ready\n", rootOpts.Config.Database.Name)
			return nil
		},
	}
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	var schemaPath string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Apply the schema to the test database",
		Long: `Apply a schema file of semicolon-separated statements to the test
database, creating it first when needed. Without --schema the schema
bundled for the configured driver is used, unless TEST_DB_SCHEMA_PATH
names one.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if schemaPath == "" {
				schemaPath = rootOpts.Config.Database.SchemaPath
			}
			return withManager(cmd.Context(), rootOpts, func(mgr *testdb.Manager) error {
				if schemaPath == "" {
					return mgr.InitializeEmbeddedSchema(cmd.Context())
				}
				return mgr.InitializeSchemaFile(cmd.Context(), schemaPath)
			})
		},
	}

	cmd.Flags().StringVar(&schemaPath, "schema", "", "schema file to apply")

	return cmd
}

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run goose migrations against the test database",
		Long: `Run the goose migrations in --dir against the test database. Without
--dir the migrations bundled for the configured driver are used. Applied
versions are recorded in the ` + testdb.MigrationTable + ` table.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(cmd.Context(), rootOpts, func(mgr *testdb.Manager) error {
				if dir == "" {
					return mgr.ApplyEmbeddedMigrations(cmd.Context())
				}
				return mgr.ApplyMigrations(cmd.Context(), os.DirFS(dir), ".")
			})
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "directory of goose migration files")

	return cmd
}

// NewCleanCommand creates the clean command.
func NewCleanCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Empty every table in the test database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(cmd.Context(), rootOpts, func(mgr *testdb.Manager) error {
				return mgr.Cleanup(cmd.Context())
			})
		},
	}
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the test suite and exit with its status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			code := runner.Run(cmd.Context(), runner.Options{
				Stdout: cmd.OutOrStdout(),
				Stderr: cmd.ErrOrStderr(),
				Logger: rootOpts.Logger,
			})
			if code != 0 {
				return &ExitCodeError{Code: code}
			}
			return nil
		},
	}
}
