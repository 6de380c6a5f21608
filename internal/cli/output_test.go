package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"testing"

	"cuelang.org/go/cue/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pggraphql/internal/qerr"
)

func TestProblemOf(t *testing.T) {
	file := token.NewFile("schema/user.cue", -1, 100)
	file.SetLinesForContent([]byte("type: user: {\n  fields: 1\n}\n"))
	pos := file.Pos(16, token.NoRelPos)

	tests := []struct {
		name string
		err  error
		want Problem
	}{
		{
			name: "compiler error keeps code and path",
			err:  qerr.At(qerr.New(qerr.CodeUnknownField, "unknown field %q", "nickname"), "user.nickname"),
			want: Problem{Code: "UNKNOWN_FIELD", Message: `unknown field "nickname"`, Path: "user.nickname"},
		},
		{
			name: "wrapped compiler error",
			err:  fmt.Errorf("query 2: %w", qerr.At(qerr.New(qerr.CodeMissingID, "id is required"), "user")),
			want: Problem{Code: "MISSING_ID", Message: "id is required", Path: "user"},
		},
		{
			name: "load error keeps position",
			err:  &LoadError{Code: ErrCodeInvalidField, Message: "fields must be a list", Pos: pos},
			want: Problem{Code: ErrCodeInvalidField, Message: "fields must be a list", File: "schema/user.cue", Line: 2},
		},
		{
			name: "plain error",
			err:  errors.New("disk full"),
			want: Problem{Code: ErrCodeGeneric, Message: "disk full"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, problemOf(tt.err))
		})
	}
}

func TestProblem_String(t *testing.T) {
	tests := []struct {
		p    Problem
		want string
	}{
		{Problem{Code: "UNKNOWN_LINK", Message: `unknown link "pets"`, Path: "user.pets"}, `UNKNOWN_LINK: unknown link "pets" (at user.pets)`},
		{Problem{Code: ErrCodeInvalidLink, Message: "kind is required", File: "user.cue", Line: 4}, "user.cue:4: E103: kind is required"},
		{Problem{Code: ErrCodeBadQuery, Message: "reading query file", File: "q.yaml"}, "q.yaml: E008: reading query file"},
		{Problem{Code: ErrCodeDatabase, Message: "connection refused"}, "E009: connection refused"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.p.String())
		})
	}
}

func TestPrinter_ResultJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	p := &Printer{JSON: true, Out: buf, TraceID: "0192-trace"}

	compiled := []CompiledQuery{{File: "user.yaml", SQL: "SELECT 1 WHERE id = ?", Params: []any{7}}}
	require.NoError(t, p.Result(compiled, func(io.Writer) error {
		t.Fatal("text renderer must not run in JSON mode")
		return nil
	}))

	var resp struct {
		Status  string          `json:"status"`
		Data    []CompiledQuery `json:"data"`
		TraceID string          `json:"trace_id"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "0192-trace", resp.TraceID)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, []any{float64(7)}, resp.Data[0].Params)
}

func TestPrinter_ResultText(t *testing.T) {
	buf := &bytes.Buffer{}
	p := &Printer{Out: buf}

	compiled := []CompiledQuery{
		{File: "a.yaml", SQL: "SELECT ?", Params: []any{"x", nil}},
		{File: "b.yaml", SQL: "SELECT 2", Params: []any{}},
	}
	require.NoError(t, p.Result(compiled, func(w io.Writer) error {
		return printCompiled(w, compiled, "out.json")
	}))

	out := buf.String()
	assert.Contains(t, out, "-- a.yaml\nSELECT ?\n-- params: [\"x\",null]\n")
	assert.Contains(t, out, "-- b.yaml\nSELECT 2\n-- params: []\n")
	assert.Contains(t, out, "Wrote 2 compiled quer(ies) to out.json")
}

func TestPrinter_Pretty(t *testing.T) {
	buf := &bytes.Buffer{}
	p := &Printer{JSON: true, Pretty: true, Out: buf}

	require.NoError(t, p.Result(map[string]int{"count": 1}, nil))
	assert.Contains(t, buf.String(), "\n  \"status\": \"ok\"")
}

func TestPrinter_Fail(t *testing.T) {
	unknownField := Problem{Code: "UNKNOWN_FIELD", Message: `unknown field "nickname"`, Path: "user.nickname"}
	badLink := Problem{Code: ErrCodeInvalidLink, Message: "kind is required", File: "user.cue", Line: 4}

	tests := []struct {
		name      string
		json      bool
		headline  string
		problems  []Problem
		wantOut   []string
		wantErr   string
		wantCount int
	}{
		{
			name:     "single problem text",
			problems: []Problem{unknownField},
			wantOut:  []string{`  UNKNOWN_FIELD: unknown field "nickname" (at user.nickname)`},
			wantErr:  `UNKNOWN_FIELD: unknown field "nickname" (at user.nickname)`,
		},
		{
			name:     "several problems text",
			headline: "Schema failed to load",
			problems: []Problem{badLink, unknownField},
			wantOut:  []string{"✗ Schema failed to load", "  user.cue:4: E103: kind is required", "(at user.nickname)"},
			wantErr:  "Schema failed to load: 2 problem(s), first user.cue:4: E103: kind is required",
		},
		{
			name:      "several problems json",
			json:      true,
			headline:  "Schema failed to load",
			problems:  []Problem{badLink, unknownField},
			wantErr:   "2 problem(s)",
			wantCount: 2,
		},
		{
			name:     "headline only",
			headline: "nothing to do",
			wantOut:  []string{"✗ nothing to do", "E001: nothing to do"},
			wantErr:  "E001: nothing to do",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			p := &Printer{JSON: tt.json, Out: buf}

			err := p.Fail(ExitCommandError, tt.headline, tt.problems...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, ExitCode(err))
			assert.Contains(t, err.Error(), tt.wantErr)
			for _, want := range tt.wantOut {
				assert.Contains(t, buf.String(), want)
			}

			if tt.json {
				var resp struct {
					Status string    `json:"status"`
					Error  *Problem  `json:"error"`
					Data   []Problem `json:"data"`
				}
				require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
				assert.Equal(t, "error", resp.Status)
				require.NotNil(t, resp.Error)
				assert.Equal(t, tt.problems[0], *resp.Error)
				assert.Len(t, resp.Data, tt.wantCount)
			}
		})
	}
}

func TestPrinter_Debugf(t *testing.T) {
	tests := []struct {
		name     string
		verbose  bool
		diag     bool
		wantOut  string
		wantDiag string
	}{
		{"quiet", false, true, "", ""},
		{"verbose to diag", true, true, "", "Compiled user.yaml: 2 param(s)\n"},
		{"verbose without diag falls back to out", true, false, "Compiled user.yaml: 2 param(s)\n", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := &bytes.Buffer{}
			diag := &bytes.Buffer{}
			p := &Printer{JSON: true, Verbose: tt.verbose, Out: out}
			if tt.diag {
				p.Diag = diag
			}

			p.Debugf("Compiled %s: %d param(s)", "user.yaml", 2)
			assert.Equal(t, tt.wantOut, out.String())
			assert.Equal(t, tt.wantDiag, diag.String())
		})
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"exit error", exitf(ExitFailure, "%d scenario(s) failed", 2), ExitFailure},
		{"wrapped exit error", fmt.Errorf("run: %w", exitf(ExitCommandError, "loading config: %w", errors.New("boom"))), ExitCommandError},
		{"unreported compiler error", qerr.New(qerr.CodeUnknownType, "unknown type"), ExitCommandError},
		{"plain error", errors.New("flag provided but not defined"), ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestExitf_Wraps(t *testing.T) {
	cause := errors.New("boom")
	err := exitf(ExitCommandError, "loading config: %w", cause)

	assert.Equal(t, "loading config: boom", err.Error())
	assert.ErrorIs(t, err, cause)
}
