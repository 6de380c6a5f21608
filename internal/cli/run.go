package cli

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/pggraphql/internal/pgexec"
	"github.com/roach88/pggraphql/internal/querysql"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string

	// OpenDB allows overriding how the database is opened (for testing).
	// If nil, defaults to pgexec.Open.
	OpenDB func(ctx context.Context, dsn string) (*sql.DB, error)
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <query-file>",
		Short: "Compile a query and execute it against PostgreSQL",
		Long: `Compile a query file and execute the statement against PostgreSQL.

The connection string comes from --db, PGGRAPHQL_DATABASE_URL, or
database.url in pggraphql.yaml. The JSON document is written to stdout.

Example:
  pggraphql run --db postgres://localhost/app --schema-dir ./schema user.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "PostgreSQL connection string")

	return cmd
}

func runQuery(opts *RunOptions, queryFile string, cmd *cobra.Command) error {
	out := opts.printer(cmd)
	logger := opts.Logger(cmd.ErrOrStderr())
	cfg := opts.config()
	if opts.Database != "" {
		cfg.Database.URL = opts.Database
	}

	dsn, err := cfg.DSN()
	if err != nil {
		return out.Fail(ExitCommandError, "", Problem{Code: ErrCodeDatabase, Message: err.Error()})
	}

	s, err := loadSchemaForCommand(out, cfg)
	if err != nil {
		return err
	}

	tree, err := readQueryFile(queryFile)
	if err != nil {
		return out.Fail(ExitCommandError, "", Problem{Code: ErrCodeBadQuery, Message: err.Error(), File: queryFile})
	}

	compiled, err := querysql.NewCompiler(s, querysql.WithLogger(logger)).Compile(tree)
	if err != nil {
		return failQuery(out, err, []string{queryFile})
	}

	// Setup signal handling so Ctrl-C cancels the running statement
	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	open := opts.OpenDB
	if open == nil {
		open = pgexec.Open
	}
	db, err := open(ctx, dsn)
	if err != nil {
		return out.Fail(ExitCommandError, "", Problem{Code: ErrCodeDatabase, Message: err.Error()})
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	doc, err := pgexec.New(db, logger).Run(ctx, compiled)
	if err != nil {
		return out.Fail(ExitCommandError, "", Problem{Code: ErrCodeDatabase, Message: err.Error()})
	}

	return out.Result(doc, func(w io.Writer) error {
		_, err := fmt.Fprintln(w, string(doc))
		return err
	})
}
