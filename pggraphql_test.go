package pggraphql_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pggraphql"
)

func buildSchema(t *testing.T) *pggraphql.Schema {
	t.Helper()
	b := pggraphql.NewBuilder()
	b.Root("user")
	b.Type("user", pggraphql.TypeOptions{}).
		Field(pggraphql.Fields("email")...).
		HasOne("address", pggraphql.LinkOptions{}).
		Many("orders", pggraphql.LinkOptions{Filter: pggraphql.P("{orders}.status = ?", "paid")})
	b.Type("address", pggraphql.TypeOptions{})
	b.Type("order", pggraphql.TypeOptions{})
	s, err := b.Build()
	require.NoError(t, err)
	return s
}

func TestCompile(t *testing.T) {
	s := buildSchema(t)

	res, err := pggraphql.Compile(s, pggraphql.NewNode(
		pggraphql.O("user", pggraphql.NewNode(
			pggraphql.O("id", 1),
			pggraphql.O("email", nil),
			pggraphql.O("orders", pggraphql.NewNode()),
		)),
	))
	require.NoError(t, err)

	assert.Contains(t, res.SQL, "SELECT 'user'::text AS key")
	assert.Contains(t, res.SQL, "coalesce(json_agg(x.*), '[]'::json)")
	assert.Contains(t, res.SQL, "orders2.user_id = users1.id")
	assert.Equal(t, []any{"paid", 1}, res.Params)
}

func TestCompile_ParsedQuery(t *testing.T) {
	s := buildSchema(t)
	tree, err := pggraphql.Parse([]byte("user:\n  id: 3\n  address: {}\n"))
	require.NoError(t, err)

	res, err := pggraphql.NewCompiler(s).Compile(tree)
	require.NoError(t, err)
	assert.Contains(t, pggraphql.Rebind(res.SQL), "WHERE users1.id = $1 LIMIT 1")
	assert.Equal(t, []any{3}, res.Params)
}

func TestCodeOf(t *testing.T) {
	s := buildSchema(t)

	_, err := pggraphql.Compile(s, pggraphql.NewNode(
		pggraphql.O("account", pggraphql.NewNode(pggraphql.O("id", 1))),
	))
	require.Error(t, err)
	assert.Equal(t, pggraphql.Code("UNKNOWN_TYPE"), pggraphql.CodeOf(err))

	_, err = pggraphql.Compile(s, pggraphql.NewNode(
		pggraphql.O("user", pggraphql.NewNode(pggraphql.O("id", 1), pggraphql.O("nickname", nil))),
	))
	require.Error(t, err)
	assert.Equal(t, pggraphql.Code("UNKNOWN_FIELD"), pggraphql.CodeOf(err))

	assert.Equal(t, pggraphql.Code(""), pggraphql.CodeOf(os.ErrNotExist))
}

func TestLoadSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.cue")
	require.NoError(t, os.WriteFile(path, []byte(`
root: ["user"]
type: user: {
	fields: ["email"]
	link: address: {kind: "has_one"}
}
type: address: {}
`), 0644))

	s, err := pggraphql.LoadSchema(path)
	require.NoError(t, err)

	user, ok := s.Type("user")
	require.True(t, ok)
	assert.Equal(t, "users", user.Table)
}
