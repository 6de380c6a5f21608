// Package schema holds the immutable description of queryable types:
// their backing relations, fields, links and subtypes, and which of them
// may be selected at the top level of a query.
//
// A Schema is built once through a Builder and is read-only afterwards, so
// one Schema may be shared by concurrent compilations. Cross-references
// (link targets, root types) are resolved by name at compile time, so
// declaration order does not matter.
package schema

import (
	"slices"
	"sort"

	"github.com/roach88/pggraphql/internal/fragment"
	"github.com/roach88/pggraphql/internal/qerr"
	"github.com/roach88/pggraphql/internal/queryir"
)

// Synthetic field names present on every type.
const (
	IDField   = "id"
	TypeField = "type"
)

// SubTypeSeparator joins a subtype name to a link or column name in
// flattened names such as "student__school".
const SubTypeSeparator = "__"

// NullPK is the policy for root selections that omit id.
type NullPK int

const (
	// NullPKNone requires an id at the root.
	NullPKNone NullPK = iota
	// NullPKSingle makes id optional; the result is a single row.
	NullPKSingle
	// NullPKArray makes id optional; the result is an array.
	NullPKArray
)

// String returns the policy spelling used in schema files.
func (p NullPK) String() string {
	switch p {
	case NullPKSingle:
		return "true"
	case NullPKArray:
		return "array"
	default:
		return "none"
	}
}

// ExprFunc computes the selected SQL expression of a field from its
// qualified column reference and the merged selection node.
type ExprFunc func(column string, node *queryir.Node) fragment.Fragment

// PKFunc builds the primary-key predicate for an id selector at a level.
// It receives either a scalar or a non-empty []any. A nil or empty result
// adds no predicate.
type PKFunc func(id any, level int) fragment.Fragment

// Field describes one selectable column.
type Field struct {
	// Name is the selection name. A name of the form prefix__column
	// addresses column on the subtype (or table) named prefix.
	Name string

	// As is the output alias. Empty defaults to Name unless Unaliased.
	As string

	// Unaliased suppresses the output alias.
	Unaliased bool

	// Expr computes the selected expression. Nil selects the column.
	Expr ExprFunc

	// Guard, when set, yields null unless the condition holds.
	Guard fragment.Fragment
}

// Fields builds plain field descriptors from names.
// Example: Fields("email", "name")
func Fields(names ...string) []Field {
	out := make([]Field, len(names))
	for i, n := range names {
		out[i] = Field{Name: n, As: n}
	}
	return out
}

// Link describes a relationship from a type to another type, compiled
// into a correlated subquery.
type Link struct {
	// Name is the selection name. Links declared on a subtype are named
	// <subtype>__<link>.
	Name string

	// Target is the name of the linked type.
	Target string

	// Many marks an array-valued link.
	Many bool

	// FK is the join condition: a canonical fragment.Tag or any other
	// fragment resolved at the link's level.
	FK fragment.Fragment

	// Filter is ANDed into the link's WHERE clause, parenthesized.
	Filter fragment.Fragment

	// OrderBy overrides the target type's OrderBy.
	OrderBy fragment.Fragment

	// Guard gates the whole subquery; false yields null or an empty array.
	Guard fragment.Fragment

	// SubType names the owning subtype of a flattened link, or "".
	SubType string
}

// BareName returns the link name without its subtype prefix.
func (l *Link) BareName() string {
	if l.SubType == "" {
		return l.Name
	}
	return l.Name[len(l.SubType)+len(SubTypeSeparator):]
}

// SubType is a polymorphic variant of a type, left-joined into every
// query against its owner.
type SubType struct {
	Name       string
	Table      string
	TableQuery fragment.Fragment
	FK         fragment.Fragment
}

// Type is a queryable entity.
type Type struct {
	Name string

	// Table backs the type and names its aliases. When TableQuery is set
	// the derived table is aliased after Table.
	Table      string
	TableQuery fragment.Fragment

	Filter  fragment.Fragment
	OrderBy fragment.Fragment
	PK      PKFunc
	NullPK  NullPK

	fields    []Field
	links     map[string]*Link
	linkOrder []string
	subtypes  []*SubType
}

// Fields returns the declared fields, excluding the synthetic ones.
func (t *Type) Fields() []Field {
	return slices.Clone(t.fields)
}

// Field returns the field named name, including the synthetic id and,
// when the type has subtypes, type fields.
func (t *Type) Field(name string) (Field, bool) {
	if name == IDField || (name == TypeField && t.HasSubTypes()) {
		return Field{Name: name, As: name}, true
	}
	for _, f := range t.fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Link returns the link named name.
func (t *Type) Link(name string) (*Link, bool) {
	l, ok := t.links[name]
	return l, ok
}

// Links returns the links in declaration order.
func (t *Type) Links() []*Link {
	out := make([]*Link, len(t.linkOrder))
	for i, n := range t.linkOrder {
		out[i] = t.links[n]
	}
	return out
}

// SubTypes returns the subtypes in declaration order.
func (t *Type) SubTypes() []*SubType {
	return slices.Clone(t.subtypes)
}

// SubType returns the subtype named name.
func (t *Type) SubType(name string) (*SubType, bool) {
	for _, st := range t.subtypes {
		if st.Name == name {
			return st, true
		}
	}
	return nil, false
}

// HasSubTypes reports whether the type declares any subtype.
func (t *Type) HasSubTypes() bool {
	return len(t.subtypes) > 0
}

// Schema is an immutable registry of types and root declarations.
type Schema struct {
	types     map[string]*Type
	typeOrder []string
	roots     map[string]string
	rootOrder []string
}

// Type returns the type named name.
func (s *Schema) Type(name string) (*Type, bool) {
	t, ok := s.types[name]
	return t, ok
}

// Types returns all types in declaration order.
func (s *Schema) Types() []*Type {
	out := make([]*Type, len(s.typeOrder))
	for i, n := range s.typeOrder {
		out[i] = s.types[n]
	}
	return out
}

// Roots returns the root selection names in declaration order.
func (s *Schema) Roots() []string {
	return slices.Clone(s.rootOrder)
}

// RootType returns the type name a root selection name maps to.
func (s *Schema) RootType(name string) (string, bool) {
	t, ok := s.roots[name]
	return t, ok
}

// IsRootType reports whether any root maps to the type named typeName.
func (s *Schema) IsRootType(typeName string) bool {
	for _, t := range s.roots {
		if t == typeName {
			return true
		}
	}
	return false
}

// ResolveRoot finds the type selected by a top-level selection name.
//
// A declared root resolves to its type. Otherwise a type with that name
// resolves when some root maps to it, and fails with NOT_A_ROOT_TYPE when
// none does. Anything else is UNKNOWN_TYPE.
func (s *Schema) ResolveRoot(name string) (*Type, error) {
	if typeName, ok := s.roots[name]; ok {
		if t, ok := s.types[typeName]; ok {
			return t, nil
		}
		return nil, qerr.New(qerr.CodeUnknownType, "root %q maps to unknown type %q", name, typeName)
	}
	if t, ok := s.types[name]; ok {
		if s.IsRootType(name) {
			return t, nil
		}
		return nil, qerr.New(qerr.CodeNotARootType, "type %q is not a root type", name)
	}
	return nil, qerr.New(qerr.CodeUnknownType, "unknown type %q", name)
}

// DanglingReferences lists root and link targets that name no type.
// Such references are legal until a query traverses them.
func (s *Schema) DanglingReferences() []string {
	var out []string
	for _, r := range s.rootOrder {
		if _, ok := s.types[s.roots[r]]; !ok {
			out = append(out, "root "+r+" -> "+s.roots[r])
		}
	}
	for _, t := range s.Types() {
		for _, l := range t.Links() {
			if _, ok := s.types[l.Target]; !ok {
				out = append(out, "link "+t.Name+"."+l.Name+" -> "+l.Target)
			}
		}
	}
	sort.Strings(out)
	return out
}
