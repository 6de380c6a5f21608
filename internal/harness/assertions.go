package harness

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/pggraphql/internal/qerr"
)

// AssertionError is returned when an assertion fails.
// It includes the compiled SQL to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
	SQL      string // Compiled SQL for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	if e.SQL != "" {
		fmt.Fprintf(&buf, "\nSQL:\n  %s\n", e.SQL)
	}

	return buf.String()
}

// EvaluateAssertions checks every assertion and returns the failure messages.
// Assertions on SQL or params fail outright when compilation failed.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(result, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertion[%d]: %v", i, err))
		}
	}
	return errs
}

func evaluate(result *Result, a Assertion) error {
	if a.Type != AssertError && result.Err != nil {
		return &AssertionError{
			Type:     a.Type,
			Expected: "successful compilation",
			Actual:   result.Err.Error(),
		}
	}

	switch a.Type {
	case AssertSQLContains:
		return assertSQLContains(result, a)
	case AssertSQLNotContains:
		return assertSQLNotContains(result, a)
	case AssertParams:
		return assertParams(result, a)
	case AssertError:
		return assertError(result, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func assertSQLContains(result *Result, a Assertion) error {
	if strings.Contains(result.SQL, a.Text) {
		return nil
	}
	return &AssertionError{
		Type:     AssertSQLContains,
		Expected: fmt.Sprintf("SQL containing %q", a.Text),
		Actual:   "not found",
		SQL:      result.SQL,
	}
}

func assertSQLNotContains(result *Result, a Assertion) error {
	if !strings.Contains(result.SQL, a.Text) {
		return nil
	}
	return &AssertionError{
		Type:     AssertSQLNotContains,
		Expected: fmt.Sprintf("SQL without %q", a.Text),
		Actual:   "found",
		SQL:      result.SQL,
	}
}

// assertParams compares by JSON encoding so that YAML ints match int64
// values bound from CUE.
func assertParams(result *Result, a Assertion) error {
	want, err := json.Marshal(a.Params)
	if err != nil {
		return fmt.Errorf("encode expected params: %w", err)
	}
	params := result.Params
	if params == nil {
		params = []any{}
	}
	got, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("encode params: %w", err)
	}
	if string(want) == string(got) {
		return nil
	}
	return &AssertionError{
		Type:     AssertParams,
		Expected: string(want),
		Actual:   string(got),
		SQL:      result.SQL,
	}
}

func assertError(result *Result, a Assertion) error {
	if result.Err == nil {
		return &AssertionError{
			Type:     AssertError,
			Expected: a.Code,
			Actual:   "compiled successfully",
			SQL:      result.SQL,
		}
	}
	if got := result.ErrorCode(); string(got) != a.Code {
		return &AssertionError{
			Type:     AssertError,
			Expected: a.Code,
			Actual:   result.Err.Error(),
		}
	}
	if a.Path == "" {
		return nil
	}
	if got := errorPath(result.Err); got != a.Path {
		return &AssertionError{
			Type:     AssertError,
			Expected: fmt.Sprintf("%s at %s", a.Code, a.Path),
			Actual:   fmt.Sprintf("%s at %s", a.Code, got),
		}
	}
	return nil
}

func errorPath(err error) string {
	var e *qerr.Error
	if errors.As(err, &e) {
		return e.Path
	}
	return ""
}
