package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/pggraphql/internal/qerr"
)

// Process exit codes.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // failed scenarios or an invalid schema definition
	ExitCommandError = 2 // unreadable input, schema load or compile errors, database errors
)

// ExitError carries the process exit code of a command that has already
// reported its failure.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }

func (e *ExitError) Unwrap() error { return e.Err }

// exitf builds an ExitError from a format string; %w wraps a cause.
func exitf(code int, format string, args ...any) *ExitError {
	return &ExitError{Code: code, Err: fmt.Errorf(format, args...)}
}

// ExitCode maps err to a process exit code. Compiler errors that reach
// main without being reported count as command errors.
func ExitCode(err error) int {
	var exitErr *ExitError
	switch {
	case err == nil:
		return ExitSuccess
	case errors.As(err, &exitErr):
		return exitErr.Code
	case qerr.CodeOf(err) != "":
		return ExitCommandError
	default:
		return ExitFailure
	}
}

// Problem is one reported failure. Query errors locate it by dotted
// selection path, schema errors by source file and line.
type Problem struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Path    string `json:"path,omitempty"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
}

// problemOf classifies err. Load errors keep their position and compiler
// errors keep their code and selection path.
func problemOf(err error) Problem {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		p := Problem{Code: loadErr.Code, Message: loadErr.Message}
		p.File, p.Line = positionOf(loadErr.Pos)
		return p
	}
	var qe *qerr.Error
	if errors.As(err, &qe) {
		return Problem{Code: string(qe.Code), Message: qe.Message, Path: qe.Path}
	}
	return Problem{Code: ErrCodeGeneric, Message: err.Error()}
}

func (p Problem) String() string {
	s := p.Code + ": " + p.Message
	if p.Path != "" {
		s += " (at " + p.Path + ")"
	}
	switch {
	case p.Line > 0:
		s = fmt.Sprintf("%s:%d: %s", p.File, p.Line, s)
	case p.File != "":
		s = p.File + ": " + s
	}
	return s
}

// Response is the JSON document every command writes. Error holds the
// first problem; commands reporting several list them all in Data.
type Response struct {
	Status  string   `json:"status"`
	Data    any      `json:"data,omitempty"`
	Error   *Problem `json:"error,omitempty"`
	TraceID string   `json:"trace_id,omitempty"`
}

// Printer writes command results to Out, as one JSON document per command
// or as text. Diagnostics go to Diag so they never interleave with JSON.
type Printer struct {
	JSON    bool
	Pretty  bool
	Verbose bool
	TraceID string
	Out     io.Writer
	Diag    io.Writer
}

func (p *Printer) emit(resp Response) error {
	resp.TraceID = p.TraceID
	enc := json.NewEncoder(p.Out)
	if p.Pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(resp)
}

// Result prints data as an ok document in JSON mode, else through text.
func (p *Printer) Result(data any, text func(w io.Writer) error) error {
	if p.JSON {
		return p.emit(Response{Status: "ok", Data: data})
	}
	return text(p.Out)
}

// Fail reports problems under headline and returns the ExitError for
// code. The headline is text-only.
func (p *Printer) Fail(code int, headline string, problems ...Problem) error {
	if len(problems) == 0 {
		problems = []Problem{{Code: ErrCodeGeneric, Message: headline}}
	}
	first := problems[0]
	if p.JSON {
		resp := Response{Status: "error", Error: &first}
		if len(problems) > 1 {
			resp.Data = problems
		}
		if err := p.emit(resp); err != nil {
			return err
		}
	} else {
		p.list(headline, problems)
	}
	if len(problems) > 1 {
		return exitf(code, "%s: %d problem(s), first %s", headline, len(problems), first)
	}
	return exitf(code, "%s", first)
}

func (p *Printer) list(headline string, problems []Problem) {
	if headline != "" {
		fmt.Fprintf(p.Out, "✗ %s\n\n", headline)
	}
	for _, pr := range problems {
		fmt.Fprintf(p.Out, "  %s\n", pr)
	}
}

// Debugf writes one diagnostic line when verbose output is on.
func (p *Printer) Debugf(format string, args ...any) {
	if p.Verbose {
		fmt.Fprintf(p.diag(), format+"\n", args...)
	}
}

func (p *Printer) diag() io.Writer {
	if p.Diag != nil {
		return p.Diag
	}
	return p.Out
}
