package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const testSchema = `package schema

root: ["user"]

type: user: {
	fields: ["email"]
	link: address: {kind: "has_one"}
	link: orders: {kind: "many"}
}

type: address: {}

type: order: {}
`

// writeTestFile writes content to dir/name, creating parent directories.
func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// writeSchemaDir creates a schema directory holding testSchema.
func writeSchemaDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeTestFile(t, dir, "schema.cue", testSchema)
	return dir
}

func testOptions(format, schemaDir string) *RootOptions {
	return &RootOptions{Format: format, SchemaDir: schemaDir, Naming: "inflect"}
}
