package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateValidSchema(t *testing.T) {
	schemaDir := writeSchemaDir(t)

	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(testOptions("text", "unused"))
	cmd.SetOut(buf)
	cmd.SetArgs([]string{schemaDir})

	require.NoError(t, cmd.Execute())

	output := buf.String()
	assert.Contains(t, output, "✓ Schema valid: 3 type(s), 1 root(s)")
	assert.Contains(t, output, "user (users): 2 field(s), 2 link(s)")
	assert.Contains(t, output, "address -> address")
	assert.Contains(t, output, "orders ->> order")
}

func TestValidateUsesConfiguredDirectory(t *testing.T) {
	schemaDir := writeSchemaDir(t)

	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(testOptions("text", schemaDir))
	cmd.SetOut(buf)
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "✓ Schema valid")
}

func TestValidateValidSchemaJSON(t *testing.T) {
	schemaDir := writeSchemaDir(t)

	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(testOptions("json", schemaDir))
	cmd.SetOut(buf)
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.Equal(t, []string{"user"}, resp.Data.Roots)
	require.Len(t, resp.Data.Types, 3)

	user := resp.Data.Types[0]
	assert.Equal(t, "user", user.Name)
	assert.Equal(t, "users", user.Table)
	assert.Equal(t, []string{"id", "email"}, user.Fields)
	assert.Equal(t, []LinkSummary{
		{Name: "address", Target: "address"},
		{Name: "orders", Target: "order", Many: true},
	}, user.Links)
}

func TestValidateSubTypes(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "schema.cue", `package schema

root: ["person"]

type: person: {
	subtype: student: {}
}
`)

	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(testOptions("text", dir))
	cmd.SetOut(buf)
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "person (people): 1 field(s), 0 link(s), subtypes [student]")
}

func TestValidateDanglingReference(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "schema.cue", `package schema

root: ["user", "ghost"]

type: user: {
	link: company: {kind: "belongs_to", type: "org"}
}
`)

	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(testOptions("text", dir))
	cmd.SetOut(buf)
	cmd.SetArgs([]string{})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, ExitCode(err))

	output := buf.String()
	assert.Contains(t, output, "✗ Validation failed")
	assert.Contains(t, output, "E110: reference to undeclared type: link user.company -> org")
	assert.Contains(t, output, "E110: reference to undeclared type: root ghost -> ghost")
}

func TestValidateDefinitionErrorsJSON(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "schema.cue", `package schema

type: user: {
	fields: ["email", "email"]
	link: x: {kind: "sideways"}
}
`)

	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(testOptions("json", dir))
	cmd.SetOut(buf)
	cmd.SetArgs([]string{})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, ExitCode(err))

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.Data.Valid)
	require.NotEmpty(t, resp.Data.Errors)

	var codes []string
	for _, e := range resp.Data.Errors {
		codes = append(codes, e.Code)
	}
	assert.Contains(t, codes, ErrCodeInvalidLink)
}

func TestValidateNonExistentDirectory(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(testOptions("text", "."))
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"/nonexistent/schema"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, ExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeNotFound)
}

func TestValidateCUESyntaxError(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "schema.cue", "package schema\n\ntype: user: {\n")

	cmd := NewValidateCommand(testOptions("text", dir))
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, ExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeLoadFailed)
}
