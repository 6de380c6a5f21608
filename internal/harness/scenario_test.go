package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pggraphql/internal/queryir"
)

// createTestSchema writes a minimal CUE schema file for testing.
func createTestSchema(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "schema.cue")
	content := "root: [\"user\"]\ntype: user: {fields: [\"email\"]}\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func writeScenario(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "test.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	dir := t.TempDir()
	createTestSchema(t, dir)

	path := writeScenario(t, dir, `
name: test_scenario
description: "Test scenario for validation"
schema: schema.cue
query:
  user:
    id: 1
    email:
assertions:
  - type: params
    params: [1]
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, filepath.Join(dir, "schema.cue"), scenario.Schema, "schema resolves relative to the scenario")
	assert.Equal(t, []string{"user"}, scenario.Query.Keys())
	require.Len(t, scenario.Assertions, 1)
	assert.Equal(t, []any{1}, scenario.Assertions[0].Params)
}

func TestLoadScenario_QueryKeepsOrder(t *testing.T) {
	dir := t.TempDir()
	createTestSchema(t, dir)

	path := writeScenario(t, dir, `
name: ordered
description: "order"
schema: schema.cue
query:
  user:
    id: 1
    zeta:
    alpha:
    mid:
assertions:
  - type: error
    code: UNKNOWN_FIELD
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)
	body, _ := scenario.Query.Get("user")
	user, ok := body.(*queryir.Node)
	require.True(t, ok)
	assert.Equal(t, []string{"id", "zeta", "alpha", "mid"}, user.Keys())
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("/nonexistent/scenario.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_UnknownField(t *testing.T) {
	dir := t.TempDir()
	createTestSchema(t, dir)

	path := writeScenario(t, dir, `
name: typo
description: "has a typo"
schema: schema.cue
query:
  user: {id: 1}
assertion:
  - type: params
    params: [1]
`)

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadScenario_Validation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing name",
			content: "description: d\nschema: schema.cue\nquery: {user: {id: 1}}\nassertions: [{type: params, params: [1]}]\n",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			content: "name: n\nschema: schema.cue\nquery: {user: {id: 1}}\nassertions: [{type: params, params: [1]}]\n",
			wantErr: "description is required",
		},
		{
			name:    "missing schema",
			content: "name: n\ndescription: d\nquery: {user: {id: 1}}\nassertions: [{type: params, params: [1]}]\n",
			wantErr: "schema is required",
		},
		{
			name:    "schema not found",
			content: "name: n\ndescription: d\nschema: nope.cue\nquery: {user: {id: 1}}\nassertions: [{type: params, params: [1]}]\n",
			wantErr: "schema not found",
		},
		{
			name:    "bad naming",
			content: "name: n\ndescription: d\nschema: schema.cue\nnaming: latin\nquery: {user: {id: 1}}\nassertions: [{type: params, params: [1]}]\n",
			wantErr: "unknown naming",
		},
		{
			name:    "missing query",
			content: "name: n\ndescription: d\nschema: schema.cue\nassertions: [{type: params, params: [1]}]\n",
			wantErr: "query is required",
		},
		{
			name:    "missing assertions",
			content: "name: n\ndescription: d\nschema: schema.cue\nquery: {user: {id: 1}}\n",
			wantErr: "assertions list is required",
		},
		{
			name:    "sql_contains without text",
			content: "name: n\ndescription: d\nschema: schema.cue\nquery: {user: {id: 1}}\nassertions: [{type: sql_contains}]\n",
			wantErr: "text is required for sql_contains",
		},
		{
			name:    "params without list",
			content: "name: n\ndescription: d\nschema: schema.cue\nquery: {user: {id: 1}}\nassertions: [{type: params}]\n",
			wantErr: "params list is required",
		},
		{
			name:    "error without code",
			content: "name: n\ndescription: d\nschema: schema.cue\nquery: {user: {id: 1}}\nassertions: [{type: error}]\n",
			wantErr: "code is required for error",
		},
		{
			name:    "unknown assertion",
			content: "name: n\ndescription: d\nschema: schema.cue\nquery: {user: {id: 1}}\nassertions: [{type: final_state}]\n",
			wantErr: `unknown assertion type "final_state"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			createTestSchema(t, dir)
			path := writeScenario(t, dir, tt.content)

			_, err := LoadScenario(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
