package querysql

import (
	"strings"

	"github.com/roach88/pggraphql/internal/alias"
	"github.com/roach88/pggraphql/internal/fragment"
	"github.com/roach88/pggraphql/internal/queryir"
	"github.com/roach88/pggraphql/internal/schema"
)

// columns emits the projection of sel in selection order. Context entries
// are skipped; nested entries become correlated subqueries.
func (r *compilation) columns(sel *selection, ctx fragment.Context, merged *queryir.Node) (clause, error) {
	var c clause
	var cols []string
	for _, e := range merged.Entries() {
		if queryir.IsContext(e.Key) {
			continue
		}
		var col clause
		var err error
		if child, ok := e.Value.(*queryir.Node); ok {
			col, err = r.linkColumn(sel, ctx, e.Key, child)
		} else {
			col, err = r.fieldColumn(sel, ctx, e.Key)
		}
		if err != nil {
			return clause{}, err
		}
		cols = append(cols, col.sql)
		c.params = append(c.params, col.params...)
	}
	c.sql = strings.Join(cols, ", ")
	return c, nil
}

// linkColumn emits "(<subquery>) AS key", wrapped in the link guard when
// one is declared. The guard is resolved at the parent's level.
func (r *compilation) linkColumn(sel *selection, ctx fragment.Context, key string, body *queryir.Node) (clause, error) {
	link, _ := sel.typ.Link(queryir.StripAlias(key))

	var guard clause
	if !fragment.IsEmpty(link.Guard) {
		sql, err := r.resolver.Resolve(link.Guard, ctx, &guard.params)
		if err != nil {
			return clause{}, err
		}
		guard.sql = sql
	}

	sub, params, err := r.nested(sel, key, body)
	if err != nil {
		return clause{}, err
	}

	expr := "(" + sub + ")"
	if guard.sql != "" {
		empty := "null"
		if link.Many {
			empty = emptyMany
		}
		expr = "CASE WHEN " + guard.sql + " THEN " + expr + " ELSE " + empty + " END"
	}
	return clause{
		sql:    expr + " AS " + quoteIdent(key),
		params: append(guard.params, params...),
	}, nil
}

// fieldColumn emits a field expression with its output alias.
func (r *compilation) fieldColumn(sel *selection, ctx fragment.Context, key string) (clause, error) {
	f, _ := sel.typ.Field(queryir.StripAlias(key))
	ref, column := columnRef(sel, f.Name)

	var ex clause
	ex.sql = ref
	if f.Expr != nil {
		sql, err := r.resolver.Resolve(f.Expr(ref, ctx.Node), ctx, &ex.params)
		if err != nil {
			return clause{}, err
		}
		if sql != "" {
			ex.sql = sql
		}
	}

	var guard clause
	if !fragment.IsEmpty(f.Guard) {
		sql, err := r.resolver.Resolve(f.Guard, ctx, &guard.params)
		if err != nil {
			return clause{}, err
		}
		guard.sql = sql
	}

	out := ex.sql
	if guard.sql != "" {
		out = "CASE WHEN " + guard.sql + " THEN " + ex.sql + " ELSE null END"
	}

	label := f.As
	if key != f.Name {
		label = key
	}
	if label == "" && out != ref {
		// An unaliased field keeps its name once the expression differs
		// from the bare column.
		label = f.Name
	}
	plain := f.Expr == nil && guard.sql == ""
	switch {
	case label == "":
		// Unaliased field.
	case plain && label == column:
	default:
		out += " AS " + quoteIdent(label)
	}

	return clause{sql: out, params: append(guard.params, ex.params...)}, nil
}

// columnRef qualifies a field name with its table alias. A name of the
// form prefix__column addresses the subtype named prefix, or else the
// table named prefix, at the current level.
func columnRef(sel *selection, name string) (ref, column string) {
	prefix, col, found := strings.Cut(name, schema.SubTypeSeparator)
	if !found || prefix == "" || col == "" {
		return alias.Name(sel.typ.Table, sel.level) + "." + name, name
	}
	table := prefix
	if st, ok := sel.typ.SubType(prefix); ok {
		table = st.Table
	}
	return alias.Name(table, sel.level) + "." + col, col
}
