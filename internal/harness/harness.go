package harness

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/pggraphql/internal/compiler"
	"github.com/roach88/pggraphql/internal/querysql"
	"github.com/roach88/pggraphql/internal/schema"
)

// Harness compiles scenarios. The zero value discards logs.
type Harness struct {
	logger *slog.Logger
}

// New creates a Harness logging compilation events to logger.
func New(logger *slog.Logger) *Harness {
	return &Harness{logger: logger}
}

// Run executes a test scenario with a silent logger.
func Run(scenario *Scenario) (*Result, error) {
	return (&Harness{}).Run(scenario)
}

// Run executes a test scenario and returns the result.
//
// Execution flow:
// 1. Load the CUE schema with the scenario's naming
// 2. Compile the query tree
// 3. Evaluate assertions against the SQL, params or compile error
//
// A returned error means the scenario could not be executed (bad schema).
// A compile failure is recorded in Result.Err for error assertions.
func (h *Harness) Run(scenario *Scenario) (*Result, error) {
	logger := h.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	inflector, ok := schema.InflectorByName(scenario.Naming)
	if !ok {
		return nil, fmt.Errorf("unknown naming %q", scenario.Naming)
	}
	s, err := compiler.Load(scenario.Schema, schema.WithInflector(inflector))
	if err != nil {
		return nil, fmt.Errorf("failed to load schema: %w", err)
	}

	result := NewResult()
	compiled, err := querysql.NewCompiler(s, querysql.WithLogger(logger)).Compile(scenario.Query)
	if err != nil {
		result.Err = err
	} else {
		result.SQL = compiled.SQL
		result.Params = compiled.Params
	}

	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(errMsg)
	}
	logger.Debug("scenario executed", "name", scenario.Name, "pass", result.Pass)

	return result, nil
}
