package compiler

import (
	stderrors "errors"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/pggraphql/internal/qerr"
)

// DefinitionError reports a malformed schema definition at the CUE value
// that caused it. Option names the offending option, for example
// "link.kind" or "fields.as"; CUE evaluation errors use "cue".
// It unwraps to an INVALID_SCHEMA error.
type DefinitionError struct {
	Option  string
	Message string
	Pos     token.Pos
}

func (e *DefinitionError) Error() string {
	msg := e.Option + ": " + e.Message
	if e.Pos.IsValid() {
		return e.Pos.String() + ": " + msg
	}
	return msg
}

func (e *DefinitionError) Unwrap() error {
	return &qerr.Error{Code: qerr.CodeInvalidSchema, Message: e.Error()}
}

// invalid reports a bad value for option at v.
func invalid(v cue.Value, option, format string, args ...any) *DefinitionError {
	return &DefinitionError{Option: option, Message: fmt.Sprintf(format, args...), Pos: v.Pos()}
}

// fromCUE converts a CUE evaluation error into one DefinitionError per
// reported problem, joined. Messages are prefixed with the CUE path.
func fromCUE(err error) error {
	if err == nil {
		return nil
	}
	list := errors.Errors(err)
	if len(list) == 0 {
		return qerr.New(qerr.CodeInvalidSchema, "%v", err)
	}
	out := make([]error, 0, len(list))
	for _, e := range list {
		format, args := e.Msg()
		msg := fmt.Sprintf(format, args...)
		if path := e.Path(); len(path) > 0 {
			msg = strings.Join(path, ".") + ": " + msg
		}
		pos := e.Position()
		if !pos.IsValid() {
			if in := e.InputPositions(); len(in) > 0 {
				pos = in[0]
			}
		}
		out = append(out, &DefinitionError{Option: "cue", Message: msg, Pos: pos})
	}
	return stderrors.Join(out...)
}
