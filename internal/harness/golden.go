package harness

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// Snapshot renders a result for golden comparison: the SQL on its first
// line, then the JSON-encoded params, or the error code and path when
// compilation failed.
func Snapshot(result *Result) ([]byte, error) {
	var buf strings.Builder
	if result.Err != nil {
		fmt.Fprintf(&buf, "-- error: %s", result.ErrorCode())
		if path := errorPath(result.Err); path != "" {
			fmt.Fprintf(&buf, " at %s", path)
		}
		buf.WriteString("\n")
		return []byte(buf.String()), nil
	}

	params := result.Params
	if params == nil {
		params = []any{}
	}
	encoded, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("encode params: %w", err)
	}
	fmt.Fprintf(&buf, "%s\n-- params: %s\n", result.SQL, encoded)
	return []byte(buf.String()), nil
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the given result against a golden file.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := Snapshot(result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)

	return nil
}
