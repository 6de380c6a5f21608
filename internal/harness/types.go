package harness

import "github.com/roach88/pggraphql/internal/qerr"

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall scenario success.
	// True if all assertions hold.
	Pass bool `json:"pass"`

	// SQL is the compiled statement, empty when compilation failed.
	SQL string `json:"sql,omitempty"`

	// Params are the bound values in placeholder order.
	Params []any `json:"params,omitempty"`

	// Err is the compilation error, if any. Error assertions inspect it.
	Err error `json:"-"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// ErrorCode returns the code of the compilation error, or "".
func (r *Result) ErrorCode() qerr.Code {
	return qerr.CodeOf(r.Err)
}
