package querysql

import (
	"regexp"
	"strings"
)

// rootRow is one row of the root union: the selection key and its
// subquery value.
func rootRow(key, sub string) string {
	return "SELECT " + quoteLiteral(key) + "::text AS key, (" + sub + ") AS value"
}

// wrapRoot folds the root union into a single JSON object. Roots whose
// subquery yields no row are emitted as null.
func wrapRoot(union string) string {
	return "SELECT ('{' || string_agg(to_json(t1.key) || ':' || coalesce(to_json(t1.value), 'null'), ',') || '}')::json AS res FROM (" +
		union + ") AS t1"
}

// plainIdentifier matches identifiers PostgreSQL accepts unquoted without
// case folding.
var plainIdentifier = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// quoteIdent returns s as a column label, double-quoted unless it is a
// plain lowercase identifier.
func quoteIdent(s string) string {
	if plainIdentifier.MatchString(s) {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// quoteLiteral returns s as a single-quoted SQL string literal.
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
