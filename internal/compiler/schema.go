// Package compiler turns CUE schema definitions into a *schema.Schema.
//
// A definition file declares roots and types:
//
//	root: ["user", "people"]
//
//	type: user: {
//		fields: ["email", {name: "full_name", as: "name"}]
//		filter: "{users}.deleted_at IS NULL"
//		link: address: {kind: "has_one"}
//		link: orders: {kind: "many", order_by: "{orders}.created_at DESC"}
//	}
//
//	type: person: {
//		null_pk: "array"
//		pk:      "{people}.uuid"
//		subtype: student: {
//			link: school: {kind: "belongs_to"}
//		}
//	}
//
// Fragments are strings (literal SQL) or {sql: string, args: [...]}
// (parameterized SQL). In a field expr, $col stands for the qualified
// column reference.
package compiler

import (
	"fmt"
	"regexp"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/pggraphql/internal/fragment"
	"github.com/roach88/pggraphql/internal/queryir"
	"github.com/roach88/pggraphql/internal/schema"
)

// ColumnToken is replaced by the qualified column reference in field
// expressions.
const ColumnToken = "$col"

var columnToken = regexp.MustCompile(regexp.QuoteMeta(ColumnToken) + `\b`)

// CompileString compiles CUE source text into a Schema.
func CompileString(src string, opts ...schema.Option) (*schema.Schema, error) {
	v := cuecontext.New().CompileString(src)
	return CompileSchema(v, opts...)
}

// CompileSchema compiles a CUE value holding root and type declarations.
// Uses the CUE SDK's Go API directly.
func CompileSchema(v cue.Value, opts ...schema.Option) (*schema.Schema, error) {
	if err := v.Validate(); err != nil {
		return nil, fromCUE(err)
	}

	b := schema.NewBuilder(opts...)

	rootVal := v.LookupPath(cue.ParsePath("root"))
	if rootVal.Exists() {
		if err := parseRoots(b, rootVal); err != nil {
			return nil, err
		}
	}

	typeVal := v.LookupPath(cue.ParsePath("type"))
	if !typeVal.Exists() {
		return nil, invalid(v, "type", "at least one type is required")
	}
	iter, err := typeVal.Fields()
	if err != nil {
		return nil, fromCUE(err)
	}
	for iter.Next() {
		if err := parseType(b, iter.Selector().Unquoted(), iter.Value()); err != nil {
			return nil, err
		}
	}

	s, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("build schema: %w", err)
	}
	return s, nil
}

// parseRoots accepts a list of root names, or a struct mapping root names
// to type names.
func parseRoots(b *schema.Builder, v cue.Value) error {
	if v.Kind() == cue.StructKind {
		iter, err := v.Fields()
		if err != nil {
			return fromCUE(err)
		}
		for iter.Next() {
			typeName, err := iter.Value().String()
			if err != nil {
				return invalid(iter.Value(), "root", "root type must be a string")
			}
			b.RootAs(iter.Selector().Unquoted(), typeName)
		}
		return nil
	}

	iter, err := v.List()
	if err != nil {
		return invalid(v, "root", "root must be a list of names or a struct of name: type")
	}
	for iter.Next() {
		name, err := iter.Value().String()
		if err != nil {
			return invalid(iter.Value(), "root", "root name must be a string")
		}
		b.Root(name)
	}
	return nil
}

func parseType(b *schema.Builder, name string, v cue.Value) error {
	var opts schema.TypeOptions
	var err error

	if opts.Table, err = optionalString(v, "table"); err != nil {
		return err
	}
	if opts.TableQuery, err = optionalFragment(v, "table_query"); err != nil {
		return err
	}
	if opts.Filter, err = optionalFragment(v, "filter"); err != nil {
		return err
	}
	if opts.OrderBy, err = optionalFragment(v, "order_by"); err != nil {
		return err
	}
	if opts.NullPK, err = parseNullPK(v); err != nil {
		return err
	}
	if opts.PK, err = parsePK(v); err != nil {
		return err
	}
	if opts.Fields, err = parseFields(v); err != nil {
		return err
	}

	tb := b.Type(name, opts)

	linkVal := v.LookupPath(cue.ParsePath("link"))
	if linkVal.Exists() {
		iter, err := linkVal.Fields()
		if err != nil {
			return fromCUE(err)
		}
		for iter.Next() {
			if err := parseLink(typeLinker{tb}, iter.Selector().Unquoted(), iter.Value()); err != nil {
				return err
			}
		}
	}

	subVal := v.LookupPath(cue.ParsePath("subtype"))
	if subVal.Exists() {
		iter, err := subVal.Fields()
		if err != nil {
			return fromCUE(err)
		}
		for iter.Next() {
			if err := parseSubType(tb, iter.Selector().Unquoted(), iter.Value()); err != nil {
				return err
			}
		}
	}
	return nil
}

func parseNullPK(v cue.Value) (schema.NullPK, error) {
	pv := v.LookupPath(cue.ParsePath("null_pk"))
	if !pv.Exists() {
		return schema.NullPKNone, nil
	}
	switch pv.Kind() {
	case cue.BoolKind:
		if b, _ := pv.Bool(); b {
			return schema.NullPKSingle, nil
		}
		return schema.NullPKNone, nil
	case cue.StringKind:
		if s, _ := pv.String(); s == "array" {
			return schema.NullPKArray, nil
		}
	}
	return schema.NullPKNone, invalid(pv, "null_pk", `must be true, false or "array"`)
}

// parsePK reads the key expression matched by id selectors, for example
// "{users}.uuid". Values are always bound, so the expression itself must
// not contain placeholders.
func parsePK(v cue.Value) (schema.PKFunc, error) {
	key, err := optionalString(v, "pk")
	if err != nil || key == "" {
		return nil, err
	}
	if n := fragment.CountPlaceholders(key); n > 0 {
		return nil, invalid(v.LookupPath(cue.ParsePath("pk")), "pk", "pk is a key expression and must not contain placeholders, found %d", n)
	}
	return schema.KeyPK(key), nil
}

// parseFields accepts bare names or {name, as, expr, guard} structs.
func parseFields(v cue.Value) ([]schema.Field, error) {
	fv := v.LookupPath(cue.ParsePath("fields"))
	if !fv.Exists() {
		return nil, nil
	}
	iter, err := fv.List()
	if err != nil {
		return nil, invalid(fv, "fields", "fields must be a list")
	}

	var fields []schema.Field
	for iter.Next() {
		item := iter.Value()
		if name, err := item.String(); err == nil {
			fields = append(fields, schema.Field{Name: name, As: name})
			continue
		}
		if item.Kind() != cue.StructKind {
			return nil, invalid(item, "fields", "field must be a name or a struct")
		}

		var f schema.Field
		if f.Name, err = optionalString(item, "name"); err != nil {
			return nil, err
		}
		if f.Name == "" {
			return nil, invalid(item, "fields.name", "field name is required")
		}
		if av := item.LookupPath(cue.ParsePath("as")); av.Exists() {
			if av.Kind() == cue.NullKind {
				f.Unaliased = true
			} else if f.As, err = av.String(); err != nil {
				return nil, invalid(av, "fields.as", "as must be a string or null")
			}
		}
		expr, err := optionalFragment(item, "expr")
		if err != nil {
			return nil, err
		}
		if expr != nil {
			f.Expr = columnExpr(expr)
		}
		if f.Guard, err = optionalFragment(item, "guard"); err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	return fields, nil
}

// columnExpr substitutes the column reference into an expression template.
// Only the whole token is replaced: $collation stays as written.
func columnExpr(tmpl fragment.Fragment) schema.ExprFunc {
	return func(column string, _ *queryir.Node) fragment.Fragment {
		switch t := tmpl.(type) {
		case fragment.Literal:
			return fragment.Literal(columnToken.ReplaceAllLiteralString(string(t), column))
		case fragment.Parameterized:
			return fragment.P(columnToken.ReplaceAllLiteralString(t.SQL, column), t.Args...)
		default:
			return tmpl
		}
	}
}

// linker is the link vocabulary shared by types and subtypes.
type linker interface {
	one(name string, opts schema.LinkOptions)
	many(name string, opts schema.LinkOptions)
	hasOne(name string, opts schema.LinkOptions)
	belongsTo(name string, opts schema.LinkOptions)
}

type typeLinker struct{ tb *schema.TypeBuilder }

func (l typeLinker) one(n string, o schema.LinkOptions)       { l.tb.One(n, o) }
func (l typeLinker) many(n string, o schema.LinkOptions)      { l.tb.Many(n, o) }
func (l typeLinker) hasOne(n string, o schema.LinkOptions)    { l.tb.HasOne(n, o) }
func (l typeLinker) belongsTo(n string, o schema.LinkOptions) { l.tb.BelongsTo(n, o) }

type subTypeLinker struct{ sb *schema.SubTypeBuilder }

func (l subTypeLinker) one(n string, o schema.LinkOptions)       { l.sb.One(n, o) }
func (l subTypeLinker) many(n string, o schema.LinkOptions)      { l.sb.Many(n, o) }
func (l subTypeLinker) hasOne(n string, o schema.LinkOptions)    { l.sb.HasOne(n, o) }
func (l subTypeLinker) belongsTo(n string, o schema.LinkOptions) { l.sb.BelongsTo(n, o) }

func parseLink(l linker, name string, v cue.Value) error {
	kind, err := optionalString(v, "kind")
	if err != nil {
		return err
	}

	var opts schema.LinkOptions
	if opts.Type, err = optionalString(v, "type"); err != nil {
		return err
	}
	if opts.FK, err = optionalFK(v); err != nil {
		return err
	}
	if opts.Filter, err = optionalFragment(v, "filter"); err != nil {
		return err
	}
	if opts.OrderBy, err = optionalFragment(v, "order_by"); err != nil {
		return err
	}
	if opts.Guard, err = optionalFragment(v, "guard"); err != nil {
		return err
	}

	switch kind {
	case "one":
		l.one(name, opts)
	case "many":
		l.many(name, opts)
	case "has_one":
		l.hasOne(name, opts)
	case "belongs_to":
		l.belongsTo(name, opts)
	default:
		return invalid(v, "link.kind", "link %q: kind must be one, many, has_one or belongs_to, got %q", name, kind)
	}
	return nil
}

func parseSubType(tb *schema.TypeBuilder, name string, v cue.Value) error {
	var opts schema.SubTypeOptions
	var err error
	if opts.Table, err = optionalString(v, "table"); err != nil {
		return err
	}
	if opts.TableQuery, err = optionalFragment(v, "table_query"); err != nil {
		return err
	}
	if opts.FK, err = optionalFK(v); err != nil {
		return err
	}

	sb := tb.SubType(name, opts)

	linkVal := v.LookupPath(cue.ParsePath("link"))
	if !linkVal.Exists() {
		return nil
	}
	iter, err := linkVal.Fields()
	if err != nil {
		return fromCUE(err)
	}
	for iter.Next() {
		if err := parseLink(subTypeLinker{sb}, iter.Selector().Unquoted(), iter.Value()); err != nil {
			return err
		}
	}
	return nil
}

// optionalFK reads fk, mapping canonical tag names to fragment.Tag.
func optionalFK(v cue.Value) (fragment.Fragment, error) {
	f, err := optionalFragment(v, "fk")
	if err != nil {
		return nil, err
	}
	if lit, ok := f.(fragment.Literal); ok {
		switch tag := fragment.Tag(lit); tag {
		case fragment.BelongsTo, fragment.HasOne, fragment.Many, fragment.SubType:
			return tag, nil
		}
	}
	return f, nil
}

func optionalString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", nil
	}
	s, err := fv.String()
	if err != nil {
		return "", invalid(fv, field, "must be a string")
	}
	return s, nil
}

// optionalFragment reads a string as a Literal or {sql, args} as a
// Parameterized fragment. A missing field is nil.
func optionalFragment(v cue.Value, field string) (fragment.Fragment, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return nil, nil
	}
	if s, err := fv.String(); err == nil {
		return fragment.Literal(s), nil
	}
	if fv.Kind() != cue.StructKind {
		return nil, invalid(fv, field, "must be a string or {sql, args}")
	}

	sql, err := optionalString(fv, "sql")
	if err != nil {
		return nil, err
	}
	var args []any
	if av := fv.LookupPath(cue.ParsePath("args")); av.Exists() {
		iter, err := av.List()
		if err != nil {
			return nil, invalid(av, field+".args", "args must be a list")
		}
		for iter.Next() {
			arg, err := scalar(iter.Value())
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
		}
	}
	return fragment.P(sql, args...), nil
}

// scalar converts a concrete CUE scalar into a bind value.
func scalar(v cue.Value) (any, error) {
	switch v.Kind() {
	case cue.NullKind:
		return nil, nil
	case cue.BoolKind:
		return v.Bool()
	case cue.IntKind:
		return v.Int64()
	case cue.FloatKind:
		return v.Float64()
	case cue.StringKind:
		return v.String()
	default:
		return nil, invalid(v, "args", "unsupported argument kind: %v", v.Kind())
	}
}
