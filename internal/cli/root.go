package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/roach88/pggraphql/internal/schema"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigFile string
	SchemaDir  string
	Naming     string

	// Config is the resolved configuration, set before any command runs.
	Config *Config

	// TraceID correlates JSON responses and log lines of one invocation.
	TraceID string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the pggraphql CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "pggraphql",
		Short: "pggraphql - nested queries as one PostgreSQL statement",
		Long: `Compile nested selection trees against a declared schema into a single
parameterized PostgreSQL statement that returns the whole result as JSON.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return opts.resolve(cmd)
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "config file (default: pggraphql.yaml, searched upward)")
	cmd.PersistentFlags().StringVar(&opts.SchemaDir, "schema-dir", "", "directory holding the CUE schema definition")
	cmd.PersistentFlags().StringVar(&opts.Naming, "naming", "", "default-name inflection (inflect|none)")

	// Add subcommands
	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// resolve loads configuration and lets explicitly set flags override it.
func (o *RootOptions) resolve(cmd *cobra.Command) error {
	cfg, _, err := LoadConfig(o.ConfigFile)
	if err != nil {
		return exitf(ExitCommandError, "loading config: %w", err)
	}
	if cmd.Flags().Changed("schema-dir") {
		cfg.SchemaDir = o.SchemaDir
	}
	if cmd.Flags().Changed("naming") {
		cfg.Naming = o.Naming
	}
	if _, ok := schema.InflectorByName(cfg.Naming); !ok {
		return exitf(ExitCommandError, "invalid naming %q: must be inflect or none", cfg.Naming)
	}
	o.Config = cfg

	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("generating trace id: %w", err)
	}
	o.TraceID = id.String()
	return nil
}

// config returns the resolved configuration, or defaults when the command
// runs outside the root command (tests).
func (o *RootOptions) config() *Config {
	if o.Config == nil {
		return &Config{SchemaDir: o.SchemaDir, Naming: o.Naming}
	}
	return o.Config
}

// Logger returns a text logger on w at debug level when verbose, else info.
func (o *RootOptions) Logger(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if o.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	if o.TraceID != "" {
		logger = logger.With("trace_id", o.TraceID)
	}
	return logger
}

// printer builds the result printer for cmd. Diagnostics go to stderr.
func (o *RootOptions) printer(cmd *cobra.Command) *Printer {
	return &Printer{
		JSON:    o.Format == "json",
		Pretty:  o.config().Compile.Pretty,
		Verbose: o.Verbose,
		TraceID: o.TraceID,
		Out:     cmd.OutOrStdout(),
		Diag:    cmd.ErrOrStderr(),
	}
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
