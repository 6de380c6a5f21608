package cli

import (
	"fmt"
	"io"

	"cuelang.org/go/cue/token"
	"github.com/spf13/cobra"

	"github.com/roach88/pggraphql/internal/schema"
)

// TypeSummary describes one declared type.
type TypeSummary struct {
	Name     string        `json:"name"`
	Table    string        `json:"table"`
	Fields   []string      `json:"fields"`
	Links    []LinkSummary `json:"links,omitempty"`
	SubTypes []string      `json:"subtypes,omitempty"`
}

// LinkSummary describes one link of a type.
type LinkSummary struct {
	Name   string `json:"name"`
	Target string `json:"target"`
	Many   bool   `json:"many"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Roots  []string          `json:"roots,omitempty"`
	Types  []TypeSummary     `json:"types,omitempty"`
	Errors []Problem         `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [schema-dir]",
		Short: "Validate the schema definition",
		Long: `Validate the CUE schema definition without compiling any query.

Reports definition errors with their source positions, and roots or links
that target undeclared types. On success, lists the declared roots, types,
fields, links and subtypes.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := rootOpts.config().SchemaDir
			if len(args) == 1 {
				dir = args[0]
			}
			return runValidate(rootOpts, dir, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, schemaDir string, cmd *cobra.Command) error {
	out := opts.printer(cmd)

	loadResult, loadErrors := LoadSchema(schemaDir, opts.config().Inflector(), LoadModeCollectAll)

	// Handle load errors (directory not found, no files, etc.)
	if loadResult == nil && len(loadErrors) > 0 {
		return out.Fail(ExitCommandError, "", problemOf(loadErrors[0]))
	}

	out.Debugf("Found %d CUE file(s) in %s", loadResult.FileCount, schemaDir)

	var problems []Problem
	for _, err := range loadErrors {
		problems = append(problems, problemOf(err))
	}
	if loadResult.Schema != nil {
		for _, ref := range loadResult.Schema.DanglingReferences() {
			problems = append(problems, Problem{
				Code:    ErrCodeDanglingReference,
				Message: "reference to undeclared type: " + ref,
			})
		}
	}

	if len(problems) > 0 {
		return outputValidationErrors(out, problems)
	}

	return outputValidateSuccess(out, summarize(loadResult.Schema))
}

// positionOf extracts file and line from a token.Pos.
func positionOf(pos token.Pos) (string, int) {
	if pos.IsValid() {
		return pos.Filename(), pos.Line()
	}
	return "", 0
}

// summarize lists the schema's declarations in declaration order.
func summarize(s *schema.Schema) ValidationResult {
	result := ValidationResult{Valid: true, Roots: s.Roots()}
	for _, t := range s.Types() {
		ts := TypeSummary{Name: t.Name, Table: t.Table, Fields: []string{schema.IDField}}
		for _, f := range t.Fields() {
			ts.Fields = append(ts.Fields, f.Name)
		}
		for _, l := range t.Links() {
			ts.Links = append(ts.Links, LinkSummary{Name: l.Name, Target: l.Target, Many: l.Many})
		}
		for _, st := range t.SubTypes() {
			ts.SubTypes = append(ts.SubTypes, st.Name)
		}
		result.Types = append(result.Types, ts)
	}
	return result
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(out *Printer, result ValidationResult) error {
	return out.Result(result, func(w io.Writer) error {
		fmt.Fprintf(w, "✓ Schema valid: %d type(s), %d root(s)\n\n", len(result.Types), len(result.Roots))
		for _, t := range result.Types {
			fmt.Fprintf(w, "  %s (%s): %d field(s), %d link(s)", t.Name, t.Table, len(t.Fields), len(t.Links))
			if len(t.SubTypes) > 0 {
				fmt.Fprintf(w, ", subtypes %v", t.SubTypes)
			}
			fmt.Fprintln(w)
			for _, l := range t.Links {
				arrow := "->"
				if l.Many {
					arrow = "->>"
				}
				fmt.Fprintf(w, "    %s %s %s\n", l.Name, arrow, l.Target)
			}
		}
		return nil
	})
}

// outputValidationErrors reports every problem. JSON output carries them
// in an invalid ValidationResult.
func outputValidationErrors(out *Printer, problems []Problem) error {
	if !out.JSON {
		return out.Fail(ExitFailure, "Validation failed", problems...)
	}
	if err := out.emit(Response{
		Status: "error",
		Data:   ValidationResult{Valid: false, Errors: problems},
		Error:  &problems[0],
	}); err != nil {
		return err
	}
	return exitf(ExitFailure, "validation failed with %d error(s)", len(problems))
}
