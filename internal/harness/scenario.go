package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/pggraphql/internal/queryir"
	"github.com/roach88/pggraphql/internal/schema"
)

// Scenario defines a compilation conformance case: one query tree compiled
// against one schema definition, with assertions on the generated SQL.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Schema is a CUE schema file or directory.
	// Relative paths are resolved against the scenario file location.
	Schema string `yaml:"schema"`

	// Naming selects the default-naming inflector ("inflect" or "none").
	Naming string `yaml:"naming,omitempty"`

	// Query is the selection tree to compile. Key order is preserved.
	Query *queryir.Node `yaml:"query"`

	// Assertions validate the compiled SQL, its params or the error.
	// Supported types: sql_contains, sql_not_contains, params, error
	Assertions []Assertion `yaml:"assertions"`
}

// Assertion validates one aspect of a compilation result.
type Assertion struct {
	// Type specifies the assertion type:
	// - "sql_contains": SQL contains Text
	// - "sql_not_contains": SQL does not contain Text
	// - "params": bound values equal Params, in order
	// - "error": compilation fails with Code (and Path, when set)
	Type string `yaml:"type"`

	// Text is the expected SQL substring.
	Text string `yaml:"text,omitempty"`

	// Params are the expected bound values. Compared by their JSON encoding.
	Params []any `yaml:"params,omitempty"`

	// Code is the expected error code (used by error).
	Code string `yaml:"code,omitempty"`

	// Path is the expected selection path of the error (used by error).
	Path string `yaml:"path,omitempty"`
}

// Assertion type constants.
const (
	AssertSQLContains    = "sql_contains"
	AssertSQLNotContains = "sql_not_contains"
	AssertParams         = "params"
	AssertError          = "error"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Resolve the schema path relative to the scenario BEFORE validation
	if scenario.Schema != "" && !filepath.IsAbs(scenario.Schema) {
		scenario.Schema = filepath.Join(filepath.Dir(path), scenario.Schema)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Schema == "" {
		return fmt.Errorf("schema is required")
	}
	if _, err := os.Stat(s.Schema); os.IsNotExist(err) {
		return fmt.Errorf("schema not found: %s", s.Schema)
	}

	if _, ok := schema.InflectorByName(s.Naming); !ok {
		return fmt.Errorf("unknown naming %q: must be inflect or none", s.Naming)
	}

	if s.Query.Len() == 0 {
		return fmt.Errorf("query is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertSQLContains, AssertSQLNotContains:
		if a.Text == "" {
			return fmt.Errorf("assertions[%d]: text is required for %s", index, a.Type)
		}
	case AssertParams:
		if a.Params == nil {
			return fmt.Errorf("assertions[%d]: params list is required for params (use [] for none)", index)
		}
	case AssertError:
		if a.Code == "" {
			return fmt.Errorf("assertions[%d]: code is required for error", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
