// Package fragment models units of SQL text supplied by schema authors and
// resolves them into final SQL.
//
// A Fragment is one of:
//
//	Literal        plain SQL text, no bound values
//	Parameterized  SQL text with ? placeholders and the values bound to them
//	Computed       a function of the compile context returning another Fragment
//	Tag            a canonical join tag, expanded by the compiler before resolution
//
// Fragment text may contain symbolic table tokens, {table} or
// {table:modifier}, which the Resolver rewrites into concrete aliases:
//
//	{users}          users<level>
//	{users:-1}       users<level-1>    (also {users:parent})
//	{users:root}     users1
//	{users:closest}  most recently visited level of users, skipping the current one
//
// Fragment is a sealed interface; only the types in this package implement it.
package fragment

import (
	"github.com/roach88/pggraphql/internal/queryir"
)

// Fragment is a unit of SQL text, optionally carrying bound values.
type Fragment interface {
	fragment() // Sealed
}

// Literal is plain SQL text with no bound values.
type Literal string

func (Literal) fragment() {}

// Parameterized is SQL text with positional ? placeholders and the values
// bound to them, in placeholder order.
type Parameterized struct {
	SQL  string
	Args []any
}

func (Parameterized) fragment() {}

// P is shorthand for a Parameterized fragment.
// Example: P("{users}.created_at > ?", since)
func P(sql string, args ...any) Parameterized {
	return Parameterized{SQL: sql, Args: args}
}

// Context is what a Computed fragment sees at resolution time.
type Context struct {
	// Level is the recursion level the fragment is resolved at.
	Level int

	// Node is the merged selection node being compiled, including
	// context-sigil entries. Nil when no selection is in scope.
	Node *queryir.Node
}

// Computed derives a fragment from the compile context. A nil result
// resolves to empty text.
type Computed func(ctx Context) Fragment

func (Computed) fragment() {}

// Tag is a canonical join tag. The compiler expands tags into concrete join
// conditions; resolving a Tag directly is an error.
type Tag string

func (Tag) fragment() {}

// Canonical join tags.
const (
	BelongsTo Tag = "belongs_to"
	HasOne    Tag = "has_one"
	Many      Tag = "many"
	SubType   Tag = "subtype"
)

// IsEmpty reports whether f is nil or empty literal text.
func IsEmpty(f Fragment) bool {
	switch v := f.(type) {
	case nil:
		return true
	case Literal:
		return v == ""
	case Parameterized:
		return v.SQL == "" && len(v.Args) == 0
	case Computed:
		return v == nil
	case Tag:
		return v == ""
	default:
		return false
	}
}
