package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/pggraphql/internal/queryir"
	"github.com/roach88/pggraphql/internal/querysql"
	"github.com/roach88/pggraphql/internal/schema"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompiledQuery is one compiled query file.
type CompiledQuery struct {
	File   string `json:"file"`
	SQL    string `json:"sql"`
	Params []any  `json:"params"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <query-file>...",
		Short: "Compile query files to SQL",
		Long: `Compile YAML or JSON query trees against the schema definition.

Each query file holds one selection tree. The output is the parameterized
SQL statement and its bound values, in placeholder order.

Examples:
  pggraphql compile --schema-dir ./schema user.yaml
  pggraphql compile --schema-dir ./schema --format json q1.yaml q2.json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path (JSON)")

	return cmd
}

func runCompile(opts *CompileOptions, files []string, cmd *cobra.Command) error {
	out := opts.printer(cmd)
	cfg := opts.config()

	s, err := loadSchemaForCommand(out, cfg)
	if err != nil {
		return err
	}

	trees := make([]*queryir.Node, len(files))
	for i, file := range files {
		tree, err := readQueryFile(file)
		if err != nil {
			return out.Fail(ExitCommandError, "", Problem{Code: ErrCodeBadQuery, Message: err.Error(), File: file})
		}
		trees[i] = tree
	}

	compiler := querysql.NewCompiler(s, querysql.WithLogger(opts.Logger(out.diag())))
	results, err := querysql.CompileBatch(commandContext(cmd), compiler, trees)
	if err != nil {
		return failQuery(out, err, files)
	}

	compiled := make([]CompiledQuery, len(results))
	for i, res := range results {
		compiled[i] = CompiledQuery{File: files[i], SQL: res.SQL, Params: res.Params}
		if compiled[i].Params == nil {
			compiled[i].Params = []any{}
		}
		out.Debugf("Compiled %s: %d param(s)", files[i], len(res.Params))
	}

	if opts.Output != "" {
		if err := writeCompiledToFile(compiled, opts.Output); err != nil {
			return out.Fail(ExitCommandError, "", Problem{Code: ErrCodeWriteFailed, Message: err.Error(), File: opts.Output})
		}
	}

	return out.Result(compiled, func(w io.Writer) error {
		return printCompiled(w, compiled, opts.Output)
	})
}

// loadSchemaForCommand loads the configured schema directory, reporting
// every load error before failing.
func loadSchemaForCommand(out *Printer, cfg *Config) (*schema.Schema, error) {
	loadResult, loadErrors := LoadSchema(cfg.SchemaDir, cfg.Inflector(), LoadModeCollectAll)
	if len(loadErrors) > 0 {
		problems := make([]Problem, len(loadErrors))
		for i, err := range loadErrors {
			problems[i] = problemOf(err)
		}
		return nil, out.Fail(ExitCommandError, "Schema failed to load", problems...)
	}
	out.Debugf("Loaded %d CUE file(s) from %s", loadResult.FileCount, cfg.SchemaDir)
	return loadResult.Schema, nil
}

// readQueryFile parses a YAML or JSON query tree.
func readQueryFile(path string) (*queryir.Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading query file: %w", err)
	}
	tree, err := queryir.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return tree, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// printCompiled writes each statement under its file name, followed by
// its params as a JSON array.
func printCompiled(w io.Writer, compiled []CompiledQuery, outputFile string) error {
	for _, q := range compiled {
		params, err := json.Marshal(q.Params)
		if err != nil {
			return fmt.Errorf("encoding params: %w", err)
		}
		fmt.Fprintf(w, "-- %s\n%s\n-- params: %s\n\n", q.File, q.SQL, params)
	}
	if outputFile != "" {
		fmt.Fprintf(w, "Wrote %d compiled quer(ies) to %s\n", len(compiled), outputFile)
	}
	return nil
}

// failQuery reports a compiler error under its own code and selection
// path. A single query file is named in the problem.
func failQuery(out *Printer, err error, files []string) error {
	p := problemOf(err)
	if len(files) == 1 {
		p.File = files[0]
	}
	return out.Fail(ExitCommandError, "", p)
}

// writeCompiledToFile writes compiled queries to a file as indented JSON.
func writeCompiledToFile(compiled []CompiledQuery, filename string) error {
	data, err := json.MarshalIndent(compiled, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling compiled queries: %w", err)
	}

	if err := os.WriteFile(filename, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}

	return nil
}

