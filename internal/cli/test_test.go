package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const passingScenario = `name: user_address
description: "has_one link compiles to a single-row subquery"
schema: ../schema
query:
  user:
    id: 1
    address: {}
assertions:
  - type: sql_contains
    text: "FROM addresses AS addresses2"
  - type: params
    params: [1]
`

const failingScenario = `name: user_wrong
description: "expects SQL the compiler never produces"
schema: ../schema
query:
  user:
    id: 1
assertions:
  - type: sql_contains
    text: "FROM accounts"
`

const errorScenario = `name: unknown_field
description: "unknown fields are rejected with their path"
schema: ../schema
query:
  user:
    id: 1
    nickname:
assertions:
  - type: error
    code: UNKNOWN_FIELD
    path: user.nickname
`

// setupScenarios lays out root/schema and root/scenarios with the given
// scenario files and returns the scenarios directory.
func setupScenarios(t *testing.T, scenarios map[string]string) string {
	t.Helper()
	root := t.TempDir()
	writeTestFile(t, root, "schema/schema.cue", testSchema)
	for name, content := range scenarios {
		writeTestFile(t, root, filepath.Join("scenarios", name), content)
	}
	return filepath.Join(root, "scenarios")
}

func TestTestCommand_AllPass(t *testing.T) {
	dir := setupScenarios(t, map[string]string{
		"user_address.yaml":  passingScenario,
		"unknown_field.yaml": errorScenario,
	})

	buf := &bytes.Buffer{}
	cmd := NewTestCommand(testOptions("text", ""))
	cmd.SetOut(buf)
	cmd.SetArgs([]string{dir})

	require.NoError(t, cmd.Execute())

	output := buf.String()
	assert.Contains(t, output, "✓ user_address")
	assert.Contains(t, output, "✓ unknown_field")
	assert.Contains(t, output, "Test Summary: 2 passed, 0 failed, 2 total")
	assert.Contains(t, output, "✓ All scenarios passed")
}

func TestTestCommand_Failure(t *testing.T) {
	dir := setupScenarios(t, map[string]string{
		"user_address.yaml": passingScenario,
		"user_wrong.yaml":   failingScenario,
	})

	buf := &bytes.Buffer{}
	cmd := NewTestCommand(testOptions("text", ""))
	cmd.SetOut(buf)
	cmd.SetArgs([]string{dir})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, ExitCode(err))

	output := buf.String()
	assert.Contains(t, output, "✗ user_wrong")
	assert.Contains(t, output, "FROM accounts")
	assert.Contains(t, output, "Test Summary: 1 passed, 1 failed, 2 total")
}

func TestTestCommand_JSONOutput(t *testing.T) {
	dir := setupScenarios(t, map[string]string{
		"user_wrong.yaml": failingScenario,
	})

	buf := &bytes.Buffer{}
	cmd := NewTestCommand(testOptions("json", ""))
	cmd.SetOut(buf)
	cmd.SetArgs([]string{dir})

	require.Error(t, cmd.Execute())

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
		Error  *Problem   `json:"error"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, 1, resp.Data.Failed)
	assert.Equal(t, 1, resp.Data.Total)
	require.Len(t, resp.Data.Scenarios, 1)
	assert.False(t, resp.Data.Scenarios[0].Pass)
	assert.NotEmpty(t, resp.Data.Scenarios[0].Errors)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeTestFailed, resp.Error.Code)
}

func TestTestCommand_Filter(t *testing.T) {
	dir := setupScenarios(t, map[string]string{
		"user_address.yaml": passingScenario,
		"user_wrong.yaml":   failingScenario,
	})

	buf := &bytes.Buffer{}
	cmd := NewTestCommand(testOptions("text", ""))
	cmd.SetOut(buf)
	cmd.SetArgs([]string{dir, "--filter", "*_address"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "1 total")
	assert.NotContains(t, buf.String(), "user_wrong")
}

func TestTestCommand_UpdateAndCompareGolden(t *testing.T) {
	dir := setupScenarios(t, map[string]string{
		"user_address.yaml": passingScenario,
	})
	goldenPath := filepath.Join(dir, "golden", "user_address.golden")

	buf := &bytes.Buffer{}
	cmd := NewTestCommand(testOptions("text", ""))
	cmd.SetOut(buf)
	cmd.SetArgs([]string{dir, "--update"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "(golden updated)")

	golden, err := os.ReadFile(goldenPath)
	require.NoError(t, err)
	assert.Contains(t, string(golden), "FROM addresses AS addresses2")
	assert.Contains(t, string(golden), "-- params: [1]\n")

	// Matching golden passes
	buf.Reset()
	cmd = NewTestCommand(testOptions("text", ""))
	cmd.SetOut(buf)
	cmd.SetArgs([]string{dir})
	require.NoError(t, cmd.Execute())

	// Stale golden fails
	require.NoError(t, os.WriteFile(goldenPath, []byte("SELECT 1\n-- params: []\n"), 0644))
	buf.Reset()
	cmd = NewTestCommand(testOptions("text", ""))
	cmd.SetOut(buf)
	cmd.SetArgs([]string{dir})
	err = cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, buf.String(), "does not match golden file")
}

func TestTestCommand_InvalidScenario(t *testing.T) {
	dir := setupScenarios(t, map[string]string{
		"broken.yaml": "name: broken\n",
	})

	buf := &bytes.Buffer{}
	cmd := NewTestCommand(testOptions("text", ""))
	cmd.SetOut(buf)
	cmd.SetArgs([]string{dir})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, buf.String(), "✗ broken.yaml")
	assert.Contains(t, buf.String(), "failed to load scenario")
}

func TestTestCommand_EmptyDirectory(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewTestCommand(testOptions("text", ""))
	cmd.SetOut(buf)
	cmd.SetArgs([]string{t.TempDir()})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "No scenarios found.")
}

func TestTestCommand_MissingDirectory(t *testing.T) {
	cmd := NewTestCommand(testOptions("text", ""))
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"/nonexistent/scenarios"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, ExitCode(err))
	assert.Contains(t, err.Error(), "scenarios directory not found")
}

func TestGoldenFilePath(t *testing.T) {
	assert.Equal(t,
		filepath.Join("scenarios", "golden", "user.golden"),
		goldenFilePath(filepath.Join("scenarios", "user.yaml")))
}
