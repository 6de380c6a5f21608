package querysql

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/pggraphql/internal/alias"
	"github.com/roach88/pggraphql/internal/fragment"
	"github.com/roach88/pggraphql/internal/qerr"
	"github.com/roach88/pggraphql/internal/queryir"
	"github.com/roach88/pggraphql/internal/schema"
)

const (
	singleWrap = "to_json(x.*)"
	manyWrap   = "to_json(coalesce(json_agg(x.*), '[]'::json))"

	// emptyMany replaces a guarded array link whose guard is false.
	emptyMany = "to_json('[]'::json)"
)

// compilation is the state of one Compile call.
type compilation struct {
	schema   *schema.Schema
	resolver *fragment.Resolver
	logger   *slog.Logger
}

// selection is one node of the query tree being compiled.
type selection struct {
	key   string // output key, alias suffix included
	path  string // dotted path from the root, for errors
	level int

	typ  *schema.Type
	body *queryir.Node

	// Set for nested selections.
	link   *schema.Link
	parent *selection
}

// clause is SQL text with the values bound inside it.
type clause struct {
	sql    string
	params []any
}

// root compiles a top-level selection at level 1.
func (r *compilation) root(key string, body *queryir.Node) (string, []any, error) {
	typ, err := r.schema.ResolveRoot(queryir.StripAlias(key))
	if err != nil {
		return "", nil, qerr.At(err, key)
	}
	return r.compile(&selection{key: key, path: key, level: 1, typ: typ, body: body})
}

// nested compiles a link request below parent at the next level.
func (r *compilation) nested(parent *selection, key string, body *queryir.Node) (string, []any, error) {
	path := parent.path + "." + key
	link, ok := parent.typ.Link(queryir.StripAlias(key))
	if !ok {
		return "", nil, qerr.At(qerr.New(qerr.CodeUnknownLink,
			"unknown link %q on type %q", queryir.StripAlias(key), parent.typ.Name), path)
	}
	typ, ok := r.schema.Type(link.Target)
	if !ok {
		return "", nil, qerr.At(qerr.New(qerr.CodeUnknownType,
			"link %q targets unknown type %q", link.Name, link.Target), path)
	}
	return r.compile(&selection{
		key:    key,
		path:   path,
		level:  parent.level + 1,
		typ:    typ,
		body:   body,
		link:   link,
		parent: parent,
	})
}

// compile emits the subquery for sel:
//
//	SELECT <wrap> FROM (SELECT <columns> FROM <relation> <joins>
//	  [WHERE ...] [ORDER BY ...] [LIMIT 1]) AS x
//
// Clauses are resolved FROM, WHERE, columns, ORDER BY so that every table
// token sees the aliases of its own level registered first. Bound values
// are then concatenated in text order.
func (r *compilation) compile(sel *selection) (string, []any, error) {
	id, hasID := sel.body.Get(schema.IDField)
	if hasID {
		if err := checkIDSelector(id); err != nil {
			return "", nil, qerr.At(err, sel.path+"."+schema.IDField)
		}
	}
	if sel.link != nil && fragment.IsEmpty(sel.link.FK) {
		return "", nil, qerr.At(qerr.New(qerr.CodeMissingForeignKey,
			"link %q on type %q has no fk", sel.link.Name, sel.parent.typ.Name), sel.path)
	}

	merged := mergeSelection(sel.typ, sel.body)
	if err := checkEntries(sel, merged); err != nil {
		return "", nil, err
	}

	many := isMany(sel, id, hasID)
	if sel.level == 1 && !hasID && sel.typ.NullPK == schema.NullPKNone {
		return "", nil, qerr.At(qerr.New(qerr.CodeMissingID,
			"root type %q requires an id", sel.typ.Name), sel.path)
	}

	ctx := fragment.Context{Level: sel.level, Node: merged}

	from, err := r.from(sel, ctx)
	if err != nil {
		return "", nil, qerr.At(err, sel.path)
	}
	wheres, err := r.where(sel, ctx, id, hasID)
	if err != nil {
		return "", nil, qerr.At(err, sel.path)
	}
	cols, err := r.columns(sel, ctx, merged)
	if err != nil {
		return "", nil, qerr.At(err, sel.path)
	}
	order, err := r.orderBy(sel, ctx)
	if err != nil {
		return "", nil, qerr.At(err, sel.path)
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	if many {
		b.WriteString(manyWrap)
	} else {
		b.WriteString(singleWrap)
	}
	b.WriteString(" FROM (SELECT ")
	b.WriteString(cols.sql)
	b.WriteString(" FROM ")
	b.WriteString(from.sql)
	if wheres.sql != "" {
		b.WriteString(" WHERE ")
		b.WriteString(wheres.sql)
	}
	if order.sql != "" {
		b.WriteString(" ORDER BY ")
		b.WriteString(order.sql)
	}
	if !many {
		b.WriteString(" LIMIT 1")
	}
	b.WriteString(") AS x")

	params := make([]any, 0, len(cols.params)+len(from.params)+len(wheres.params)+len(order.params))
	params = append(params, cols.params...)
	params = append(params, from.params...)
	params = append(params, wheres.params...)
	params = append(params, order.params...)

	r.logger.Debug("selection compiled",
		"path", sel.path,
		"type", sel.typ.Name,
		"level", sel.level,
		"many", many,
		"params", len(params))
	return b.String(), params, nil
}

// checkIDSelector rejects null ids, empty id arrays and nested ids.
func checkIDSelector(id any) error {
	switch v := id.(type) {
	case nil:
		return qerr.New(qerr.CodeInvalidIDSelector, "id selector must not be null")
	case []any:
		if len(v) == 0 {
			return qerr.New(qerr.CodeInvalidIDSelector, "id selector array must not be empty")
		}
		for _, item := range v {
			if item == nil || queryir.IsNested(item) {
				return qerr.New(qerr.CodeInvalidIDSelector, "id selector array must hold scalars")
			}
		}
	case *queryir.Node:
		return qerr.New(qerr.CodeInvalidIDSelector, "id selector must be a scalar or an array")
	}
	return nil
}

// mergeSelection prepends the synthetic id (and type) requests to body.
// Caller entries keep their values; synthetic entries keep first position.
func mergeSelection(t *schema.Type, body *queryir.Node) *queryir.Node {
	merged := queryir.NewNode(queryir.O(schema.IDField, nil))
	if t.HasSubTypes() {
		merged.Set(schema.TypeField, nil)
	}
	for _, e := range body.Entries() {
		merged.Set(e.Key, e.Value)
	}
	return merged
}

// checkEntries verifies every requested name before any SQL is emitted.
func checkEntries(sel *selection, merged *queryir.Node) error {
	for _, e := range merged.Entries() {
		if queryir.IsContext(e.Key) {
			continue
		}
		name := queryir.StripAlias(e.Key)
		if queryir.IsNested(e.Value) {
			if _, ok := sel.typ.Link(name); !ok {
				return qerr.At(qerr.New(qerr.CodeUnknownLink,
					"unknown link %q on type %q", name, sel.typ.Name), sel.path+"."+e.Key)
			}
			continue
		}
		if _, ok := sel.typ.Field(name); !ok {
			return qerr.At(qerr.New(qerr.CodeUnknownField,
				"unknown field %q on type %q", name, sel.typ.Name), sel.path+"."+e.Key)
		}
	}
	return nil
}

// isMany decides the cardinality of sel.
func isMany(sel *selection, id any, hasID bool) bool {
	if sel.link != nil && sel.link.Many {
		return true
	}
	if sel.level != 1 {
		return false
	}
	if hasID {
		_, isArray := id.([]any)
		return isArray
	}
	return sel.typ.NullPK == schema.NullPKArray
}

// from resolves the base relation and the subtype joins.
func (r *compilation) from(sel *selection, ctx fragment.Context) (clause, error) {
	var c clause
	t := sel.typ

	rel, err := r.relation(t.Table, t.TableQuery, ctx, &c.params)
	if err != nil {
		return clause{}, err
	}
	var b strings.Builder
	b.WriteString(rel)

	for _, st := range t.SubTypes() {
		rel, err := r.relation(st.Table, st.TableQuery, ctx, &c.params)
		if err != nil {
			return clause{}, err
		}
		fk := st.FK
		if tag, ok := fk.(fragment.Tag); ok {
			if tag != fragment.SubType {
				return clause{}, qerr.New(qerr.CodeInvalidFragment,
					"subtype %q: join tag %q is not valid for subtypes", st.Name, string(tag))
			}
			fk = fragment.Literal(fmt.Sprintf("{%s}.id = {%s}.id AND {%s}.type = %s",
				st.Table, t.Table, t.Table, quoteLiteral(st.Name)))
		}
		on, err := r.resolver.Resolve(fk, ctx, &c.params)
		if err != nil {
			return clause{}, err
		}
		b.WriteString(" LEFT JOIN ")
		b.WriteString(rel)
		b.WriteString(" ON (")
		b.WriteString(on)
		b.WriteString(")")
	}

	c.sql = b.String()
	return c, nil
}

// relation returns "<table> AS <alias>" or "(<table query>) AS <alias>".
func (r *compilation) relation(table string, query fragment.Fragment, ctx fragment.Context, params *[]any) (string, error) {
	var body string
	if !fragment.IsEmpty(query) {
		sql, err := r.resolver.Resolve(query, ctx, params)
		if err != nil {
			return "", err
		}
		body = "(" + sql + ")"
	} else {
		body = table
	}
	name, err := r.resolver.Aliases().Resolve(table, ctx.Level, alias.Current)
	if err != nil {
		return "", err
	}
	return body + " AS " + name, nil
}

// where assembles the WHERE conditions in fixed order: primary key, type
// filter, join condition, link filter.
func (r *compilation) where(sel *selection, ctx fragment.Context, id any, hasID bool) (clause, error) {
	var c clause
	var conds []string
	add := func(f fragment.Fragment, wrap bool) error {
		if fragment.IsEmpty(f) {
			return nil
		}
		sql, err := r.resolver.Resolve(f, ctx, &c.params)
		if err != nil {
			return err
		}
		if sql == "" {
			return nil
		}
		if wrap {
			sql = "(" + sql + ")"
		}
		conds = append(conds, sql)
		return nil
	}

	if hasID {
		if err := add(sel.typ.PK(id, sel.level), false); err != nil {
			return clause{}, err
		}
	}
	if err := add(sel.typ.Filter, true); err != nil {
		return clause{}, err
	}
	if sel.link != nil {
		fk, err := joinCondition(sel)
		if err != nil {
			return clause{}, err
		}
		n := len(conds)
		if err := add(fk, true); err != nil {
			return clause{}, err
		}
		if len(conds) == n {
			return clause{}, qerr.New(qerr.CodeMissingForeignKey,
				"link %q on type %q: fk resolved to empty text", sel.link.Name, sel.parent.typ.Name)
		}
		if err := add(sel.link.Filter, true); err != nil {
			return clause{}, err
		}
	}

	c.sql = strings.Join(conds, " AND ")
	return c, nil
}

// joinCondition expands canonical join tags. T is the target table at the
// current level, P the owner at the parent level: the owning subtype's
// table for flattened links, else the parent type's table.
//
//	belongs_to   {T}.id = {P:-1}.<link>_id
//	has_one      {T}.<owner>_id = {P:-1}.id
//	many         {T}.<owner>_id = {P:-1}.id
func joinCondition(sel *selection) (fragment.Fragment, error) {
	tag, ok := sel.link.FK.(fragment.Tag)
	if !ok {
		return sel.link.FK, nil
	}

	target := sel.typ.Table
	owner := sel.parent.typ.Name
	ownerTable := sel.parent.typ.Table
	if sub := sel.link.SubType; sub != "" {
		st, ok := sel.parent.typ.SubType(sub)
		if !ok {
			return nil, qerr.New(qerr.CodeInvalidSchema,
				"link %q: owning subtype %q not declared", sel.link.Name, sub)
		}
		owner = st.Name
		ownerTable = st.Table
	}

	switch tag {
	case fragment.BelongsTo:
		return fragment.Literal(fmt.Sprintf("{%s}.id = {%s:-1}.%s_id", target, ownerTable, sel.link.BareName())), nil
	case fragment.HasOne, fragment.Many:
		return fragment.Literal(fmt.Sprintf("{%s}.%s_id = {%s:-1}.id", target, owner, ownerTable)), nil
	default:
		return nil, qerr.New(qerr.CodeInvalidFragment,
			"link %q: join tag %q is not valid for links", sel.link.Name, string(tag))
	}
}

// orderBy resolves the link's order, falling back to the type's.
func (r *compilation) orderBy(sel *selection, ctx fragment.Context) (clause, error) {
	f := sel.typ.OrderBy
	if sel.link != nil && !fragment.IsEmpty(sel.link.OrderBy) {
		f = sel.link.OrderBy
	}
	var c clause
	sql, err := r.resolver.Resolve(f, ctx, &c.params)
	if err != nil {
		return clause{}, err
	}
	c.sql = sql
	return c, nil
}
