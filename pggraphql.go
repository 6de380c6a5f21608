// Package pggraphql compiles a nested selection tree into one parameterized
// PostgreSQL statement whose single row, single column result is the whole
// answer as a JSON document.
//
// A schema is declared in Go with a Builder or in CUE with LoadSchema:
//
//	b := pggraphql.NewBuilder()
//	b.Root("user")
//	b.Type("user", pggraphql.TypeOptions{}).
//		Field(pggraphql.Fields("email")...).
//		HasOne("address", pggraphql.LinkOptions{})
//	b.Type("address", pggraphql.TypeOptions{})
//	s, err := b.Build()
//
//	res, err := pggraphql.Compile(s, pggraphql.NewNode(
//		pggraphql.O("user", pggraphql.NewNode(
//			pggraphql.O("id", 1),
//			pggraphql.O("email", nil),
//			pggraphql.O("address", pggraphql.NewNode()),
//		)),
//	))
//
// res.SQL uses ? placeholders bound by res.Params in order. Rebind rewrites
// them to $1..$n for drivers that need ordinal parameters.
package pggraphql

import (
	"github.com/roach88/pggraphql/internal/compiler"
	"github.com/roach88/pggraphql/internal/fragment"
	"github.com/roach88/pggraphql/internal/qerr"
	"github.com/roach88/pggraphql/internal/queryir"
	"github.com/roach88/pggraphql/internal/querysql"
	"github.com/roach88/pggraphql/internal/schema"
)

type (
	Schema         = schema.Schema
	Builder        = schema.Builder
	TypeOptions    = schema.TypeOptions
	LinkOptions    = schema.LinkOptions
	SubTypeOptions = schema.SubTypeOptions
	Field          = schema.Field
	Inflector      = schema.Inflector
	Option         = schema.Option

	Node  = queryir.Node
	Entry = queryir.Entry

	Fragment      = fragment.Fragment
	Literal       = fragment.Literal
	Parameterized = fragment.Parameterized
	Computed      = fragment.Computed
	Context       = fragment.Context

	Result   = querysql.Result
	Compiler = querysql.Compiler

	Error = qerr.Error
	Code  = qerr.Code
)

// Canonical join tags for LinkOptions.FK.
const (
	BelongsTo = fragment.BelongsTo
	HasOne    = fragment.HasOne
	Many      = fragment.Many
	SubType   = fragment.SubType
)

// NullPK modes for TypeOptions.NullPK.
const (
	NullPKNone   = schema.NullPKNone
	NullPKSingle = schema.NullPKSingle
	NullPKArray  = schema.NullPKArray
)

var (
	NewBuilder    = schema.NewBuilder
	WithInflector = schema.WithInflector
	Fields        = schema.Fields

	NewNode = queryir.NewNode
	O       = queryir.O
	Parse   = queryir.Parse

	P      = fragment.P
	Rebind = fragment.Rebind

	NewCompiler = querysql.NewCompiler
	WithLogger  = querysql.WithLogger
)

// Compile compiles tree against s into a single SQL statement.
func Compile(s *Schema, tree *Node) (*Result, error) {
	return querysql.Compile(s, tree)
}

// LoadSchema loads a CUE schema definition from a directory or a single file.
func LoadSchema(path string, opts ...Option) (*Schema, error) {
	return compiler.Load(path, opts...)
}

// CodeOf returns the error code carried by err, or "" when err is not a
// compile or schema error.
func CodeOf(err error) Code {
	return qerr.CodeOf(err)
}
