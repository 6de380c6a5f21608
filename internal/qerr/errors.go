// Package qerr defines the structured errors raised while building a schema
// or compiling a query tree.
//
// Every failure carries a Code naming its category. A compile call either
// returns a complete statement or one of these errors; there is no partial
// output.
package qerr

import (
	"errors"
	"fmt"
)

// Code categorizes compile and schema errors.
type Code string

const (
	// CodeUnknownType indicates a selection that resolves to no registered type.
	CodeUnknownType Code = "UNKNOWN_TYPE"

	// CodeNotARootType indicates a top-level selection of a type that is not a root.
	CodeNotARootType Code = "NOT_A_ROOT_TYPE"

	// CodeUnknownField indicates a scalar request for an undeclared field.
	CodeUnknownField Code = "UNKNOWN_FIELD"

	// CodeUnknownLink indicates a nested request for an undeclared link.
	CodeUnknownLink Code = "UNKNOWN_LINK"

	// CodeMissingForeignKey indicates a traversed link without a join condition.
	CodeMissingForeignKey Code = "MISSING_FOREIGN_KEY"

	// CodeMissingID indicates a root selection without id on a type that requires one.
	CodeMissingID Code = "MISSING_ID"

	// CodeInvalidIDSelector indicates an id key with a null value or an empty array.
	CodeInvalidIDSelector Code = "INVALID_ID_SELECTOR"

	// CodeDuplicateFieldDeclaration indicates an explicit declaration of the implicit id field.
	CodeDuplicateFieldDeclaration Code = "DUPLICATE_FIELD_DECLARATION"

	// CodePlaceholderMismatch indicates a fragment whose placeholder count
	// differs from its bound value count.
	CodePlaceholderMismatch Code = "PLACEHOLDER_MISMATCH"

	// CodeUnresolvedTableReference indicates a closest-table token naming a
	// table that has not been visited.
	CodeUnresolvedTableReference Code = "UNRESOLVED_TABLE_REFERENCE"

	// CodeInvalidSelection indicates a malformed query tree.
	CodeInvalidSelection Code = "INVALID_SELECTION"

	// CodeInvalidFragment indicates a fragment that cannot be resolved, such
	// as an unknown token modifier.
	CodeInvalidFragment Code = "INVALID_FRAGMENT"

	// CodeInvalidSchema indicates a schema definition that cannot be loaded.
	CodeInvalidSchema Code = "INVALID_SCHEMA"
)

// Sentinels for errors.Is. An *Error matches a sentinel with the same Code.
var (
	ErrUnknownType               = &Error{Code: CodeUnknownType}
	ErrNotARootType              = &Error{Code: CodeNotARootType}
	ErrUnknownField              = &Error{Code: CodeUnknownField}
	ErrUnknownLink               = &Error{Code: CodeUnknownLink}
	ErrMissingForeignKey         = &Error{Code: CodeMissingForeignKey}
	ErrMissingID                 = &Error{Code: CodeMissingID}
	ErrInvalidIDSelector         = &Error{Code: CodeInvalidIDSelector}
	ErrDuplicateFieldDeclaration = &Error{Code: CodeDuplicateFieldDeclaration}
	ErrPlaceholderMismatch       = &Error{Code: CodePlaceholderMismatch}
	ErrUnresolvedTableReference  = &Error{Code: CodeUnresolvedTableReference}
	ErrInvalidSelection          = &Error{Code: CodeInvalidSelection}
	ErrInvalidFragment           = &Error{Code: CodeInvalidFragment}
	ErrInvalidSchema             = &Error{Code: CodeInvalidSchema}
)

// Error is a structured compile or schema error.
type Error struct {
	// Code identifies the error category.
	Code Code

	// Message is a human-readable description.
	Message string

	// Path is the dotted selection path at the failure site, if any.
	Path string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s (at %s)", e.Code, e.Message, e.Path)
	}
	if e.Message == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is reports whether target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// New creates an Error with a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// At returns a copy of e with Path set, unless e already carries a path.
// The innermost path wins so nested failures report their own location.
func At(err error, path string) error {
	var e *Error
	if !errors.As(err, &e) || e.Path != "" {
		return err
	}
	cp := *e
	cp.Path = path
	return &cp
}

// Has returns true if err is or wraps an *Error with the given code.
func Has(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// CodeOf returns the Code of the first *Error in err's chain, or "" if none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
