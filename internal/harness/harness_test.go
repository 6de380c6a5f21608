package harness

import (
	"bytes"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pggraphql/internal/qerr"
	"github.com/roach88/pggraphql/internal/queryir"
)

var schemaDir = filepath.Join("testdata", "schema")

func userQuery(entries ...queryir.Entry) *queryir.Node {
	return queryir.NewNode(queryir.O("user", queryir.NewNode(entries...)))
}

func TestRun_Passing(t *testing.T) {
	scenario := &Scenario{
		Name:   "passing",
		Schema: schemaDir,
		Query:  userQuery(queryir.O("id", 1), queryir.O("email", nil)),
		Assertions: []Assertion{
			{Type: AssertSQLContains, Text: "SELECT users1.id, users1.email FROM users AS users1"},
			{Type: AssertSQLNotContains, Text: "LEFT JOIN"},
			{Type: AssertParams, Params: []any{1}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Empty(t, result.Errors)
	assert.Equal(t, []any{1}, result.Params)
	assert.NoError(t, result.Err)
}

func TestRun_FailingAssertions(t *testing.T) {
	scenario := &Scenario{
		Name:   "failing",
		Schema: schemaDir,
		Query:  userQuery(queryir.O("id", 1)),
		Assertions: []Assertion{
			{Type: AssertSQLContains, Text: "FROM accounts"},
			{Type: AssertSQLNotContains, Text: "FROM users"},
			{Type: AssertParams, Params: []any{2}},
			{Type: AssertError, Code: string(qerr.CodeUnknownField)},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 4)
	assert.Contains(t, result.Errors[0], "assertion[0]")
	assert.Contains(t, result.Errors[0], `SQL containing "FROM accounts"`)
	assert.Contains(t, result.Errors[2], "Expected: [2]")
	assert.Contains(t, result.Errors[2], "Actual: [1]")
	assert.Contains(t, result.Errors[3], "compiled successfully")
}

func TestRun_ExpectedError(t *testing.T) {
	scenario := &Scenario{
		Name:   "expected_error",
		Schema: schemaDir,
		Query:  userQuery(queryir.O("id", 1), queryir.O("address", queryir.NewNode(queryir.O("zip", nil)))),
		Assertions: []Assertion{
			{Type: AssertError, Code: string(qerr.CodeUnknownField), Path: "user.address.zip"},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, qerr.CodeUnknownField, result.ErrorCode())
	assert.Empty(t, result.SQL)
}

func TestRun_ErrorMismatch(t *testing.T) {
	scenario := &Scenario{
		Name:   "error_mismatch",
		Schema: schemaDir,
		Query:  userQuery(queryir.O("email", nil)),
		Assertions: []Assertion{
			{Type: AssertError, Code: string(qerr.CodeMissingID), Path: "user.email"},
			{Type: AssertSQLContains, Text: "users"},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "MISSING_ID at user.email")
	assert.Contains(t, result.Errors[0], "MISSING_ID at user")
	assert.Contains(t, result.Errors[1], "successful compilation")
}

func TestRun_BadSchema(t *testing.T) {
	scenario := &Scenario{
		Name:   "bad_schema",
		Schema: filepath.Join("testdata", "missing"),
		Query:  userQuery(queryir.O("id", 1)),
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load schema")
}

func TestRun_Naming(t *testing.T) {
	scenario := &Scenario{
		Name:   "identity_naming",
		Schema: schemaDir,
		Naming: "none",
		Query:  userQuery(queryir.O("id", 1)),
		Assertions: []Assertion{
			{Type: AssertSQLContains, Text: "FROM user AS user1"},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestHarness_Logs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	scenario := &Scenario{
		Name:       "logged",
		Schema:     schemaDir,
		Query:      userQuery(queryir.O("id", 1)),
		Assertions: []Assertion{{Type: AssertParams, Params: []any{1}}},
	}

	_, err := New(logger).Run(scenario)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "query compiled")
	assert.Contains(t, buf.String(), "scenario executed")
	assert.Contains(t, buf.String(), "name=logged")
}

func TestLoadAndRun_ScenarioFiles(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, file := range files {
		t.Run(filepath.Base(file), func(t *testing.T) {
			scenario, err := LoadScenario(file)
			require.NoError(t, err)

			result, err := Run(scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}
