package querysql

import (
	"log/slog"
	"strings"

	"github.com/roach88/pggraphql/internal/alias"
	"github.com/roach88/pggraphql/internal/fragment"
	"github.com/roach88/pggraphql/internal/queryir"
	"github.com/roach88/pggraphql/internal/schema"
)

// Result is a compiled query: one SQL statement with positional ?
// placeholders and the values bound to them, in placeholder order.
type Result struct {
	SQL    string
	Params []any
}

// Compiler compiles query trees against one schema into PostgreSQL.
//
// CRITICAL: caller-supplied values never reach the SQL text. Ids and
// fragment values are bound as parameters; selection keys appear only as
// quoted literals or quoted identifiers.
//
// A Compiler is safe for concurrent use. Each Compile call owns its alias
// registry and parameter list.
type Compiler struct {
	schema *schema.Schema
	logger *slog.Logger
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithLogger sets the logger used for compile diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *Compiler) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewCompiler creates a Compiler for s.
func NewCompiler(s *schema.Schema, opts ...Option) *Compiler {
	c := &Compiler{
		schema: s,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Schema returns the schema the compiler was built for.
func (c *Compiler) Schema() *schema.Schema {
	return c.schema
}

// Compile converts a query tree into one SQL statement returning a single
// JSON object keyed by root selection name.
//
// Semantics:
//
//	SELECT ('{' || string_agg(<key>:<value>, ',') || '}')::json AS res
//	FROM (SELECT '<root>'::text AS key, (<root subquery>) AS value
//	      UNION ALL ...) AS t1
//
// Either a complete Result or a *qerr.Error is returned, never both.
func (c *Compiler) Compile(tree *queryir.Node) (*Result, error) {
	if err := queryir.Validate(tree); err != nil {
		return nil, err
	}

	run := &compilation{
		schema:   c.schema,
		resolver: fragment.NewResolver(alias.New()),
		logger:   c.logger,
	}

	var rows []string
	var params []any
	for _, e := range tree.Entries() {
		sub, subParams, err := run.root(e.Key, e.Value.(*queryir.Node))
		if err != nil {
			return nil, err
		}
		rows = append(rows, rootRow(e.Key, sub))
		params = append(params, subParams...)
	}

	sql := wrapRoot(strings.Join(rows, " UNION ALL "))
	c.logger.Info("query compiled",
		"roots", tree.Keys(),
		"params", len(params))
	return &Result{SQL: sql, Params: params}, nil
}

// Compile is shorthand for NewCompiler(s).Compile(tree).
func Compile(s *schema.Schema, tree *queryir.Node) (*Result, error) {
	return NewCompiler(s).Compile(tree)
}
