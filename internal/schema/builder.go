package schema

import (
	"errors"
	"regexp"
	"strings"

	"github.com/roach88/pggraphql/internal/fragment"
	"github.com/roach88/pggraphql/internal/qerr"
)

// identifierPattern restricts table names, which appear unquoted in SQL
// and inside {table} tokens.
var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// TypeOptions configures a type. Zero values select the defaults.
type TypeOptions struct {
	// Table defaults to the plural of the type name.
	Table string

	// TableQuery replaces the table with a derived-table fragment.
	TableQuery fragment.Fragment

	// Fields must not include the synthetic id (or type) fields.
	Fields []Field

	Filter  fragment.Fragment
	OrderBy fragment.Fragment

	// PK defaults to {table}.id = ? for scalars and {table}.id IN (...)
	// for arrays.
	PK PKFunc

	NullPK NullPK
}

// LinkOptions configures a link.
type LinkOptions struct {
	// Type defaults to the singular of the link name.
	Type string

	// FK defaults to the canonical tag of the declaring method, or to no
	// join condition for One.
	FK fragment.Fragment

	Filter  fragment.Fragment
	OrderBy fragment.Fragment
	Guard   fragment.Fragment
}

// SubTypeOptions configures a subtype.
type SubTypeOptions struct {
	// Table defaults to the plural of the subtype name.
	Table      string
	TableQuery fragment.Fragment

	// FK defaults to fragment.SubType.
	FK fragment.Fragment
}

// Option configures a Builder.
type Option func(*Builder)

// WithInflector sets the name-mapping strategy for default names.
func WithInflector(i Inflector) Option {
	return func(b *Builder) {
		if i != nil {
			b.inflector = i
		}
	}
}

// Builder accumulates declarations and produces an immutable Schema.
// Declaration errors are collected and reported together by Build.
//
// Example:
//
//	b := schema.NewBuilder()
//	b.Root("user")
//	b.Type("user", schema.TypeOptions{Fields: schema.Fields("email")}).
//		HasOne("address", schema.LinkOptions{}).
//		Many("orders", schema.LinkOptions{})
//	b.Type("address", schema.TypeOptions{})
//	b.Type("order", schema.TypeOptions{})
//	s, err := b.Build()
type Builder struct {
	inflector Inflector
	types     map[string]*Type
	typeOrder []string
	roots     map[string]string
	rootOrder []string
	errs      []error
}

// NewBuilder creates an empty Builder using English inflection by default.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		inflector: EnglishInflector{},
		types:     make(map[string]*Type),
		roots:     make(map[string]string),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Inflector returns the builder's name-mapping strategy.
func (b *Builder) Inflector() Inflector {
	return b.inflector
}

// Root declares root selection names. Each maps to the type named by its
// singular form (people selects person).
func (b *Builder) Root(names ...string) *Builder {
	for _, n := range names {
		b.RootAs(n, b.inflector.Singularize(n))
	}
	return b
}

// RootAs declares a root selection name that selects typeName.
func (b *Builder) RootAs(name, typeName string) *Builder {
	if name == "" || typeName == "" {
		b.fail(qerr.New(qerr.CodeInvalidSchema, "root declaration needs a name and a type"))
		return b
	}
	if _, dup := b.roots[name]; dup {
		b.fail(qerr.New(qerr.CodeInvalidSchema, "root %q declared twice", name))
		return b
	}
	b.roots[name] = typeName
	b.rootOrder = append(b.rootOrder, name)
	return b
}

// Type declares a type and returns a builder for its links and subtypes.
func (b *Builder) Type(name string, opts TypeOptions) *TypeBuilder {
	t := &Type{
		Name:       name,
		Table:      opts.Table,
		TableQuery: opts.TableQuery,
		Filter:     opts.Filter,
		OrderBy:    opts.OrderBy,
		PK:         opts.PK,
		NullPK:     opts.NullPK,
		links:      make(map[string]*Link),
	}
	tb := &TypeBuilder{b: b, t: t}

	switch {
	case name == "":
		b.fail(qerr.New(qerr.CodeInvalidSchema, "type name must not be empty"))
		return tb
	case b.types[name] != nil:
		b.fail(qerr.New(qerr.CodeInvalidSchema, "type %q declared twice", name))
		return tb
	}
	if t.Table == "" {
		t.Table = b.inflector.Pluralize(name)
	}
	b.types[name] = t
	b.typeOrder = append(b.typeOrder, name)
	tb.Field(opts.Fields...)
	return tb
}

// Build validates the declarations and returns the Schema, or every
// declaration error joined. The Builder must not be used afterwards.
func (b *Builder) Build() (*Schema, error) {
	errs := append([]error(nil), b.errs...)
	for _, name := range b.typeOrder {
		errs = append(errs, finalizeType(b.types[name])...)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	s := &Schema{
		types:     make(map[string]*Type, len(b.types)),
		typeOrder: append([]string(nil), b.typeOrder...),
		roots:     make(map[string]string, len(b.roots)),
		rootOrder: append([]string(nil), b.rootOrder...),
	}
	for k, v := range b.types {
		s.types[k] = v
	}
	for k, v := range b.roots {
		s.roots[k] = v
	}
	return s, nil
}

func (b *Builder) fail(err error) {
	b.errs = append(b.errs, err)
}

// finalizeType applies defaults and checks invariants that depend on the
// complete declaration.
func finalizeType(t *Type) []error {
	var errs []error
	if !identifierPattern.MatchString(t.Table) {
		errs = append(errs, qerr.New(qerr.CodeInvalidSchema, "type %q: table %q is not a plain identifier", t.Name, t.Table))
	}

	seen := make(map[string]bool, len(t.fields))
	for i := range t.fields {
		f := &t.fields[i]
		switch {
		case f.Name == "":
			errs = append(errs, qerr.New(qerr.CodeInvalidSchema, "type %q: field without name", t.Name))
			continue
		case f.Name == IDField:
			errs = append(errs, qerr.New(qerr.CodeDuplicateFieldDeclaration, "type %q: field %q is implicit and must not be declared", t.Name, IDField))
		case f.Name == TypeField && t.HasSubTypes():
			errs = append(errs, qerr.New(qerr.CodeDuplicateFieldDeclaration, "type %q: field %q is implicit for types with subtypes", t.Name, TypeField))
		case seen[f.Name]:
			errs = append(errs, qerr.New(qerr.CodeDuplicateFieldDeclaration, "type %q: field %q declared twice", t.Name, f.Name))
		}
		seen[f.Name] = true
		if f.As == "" && !f.Unaliased {
			f.As = f.Name
		}
	}

	for _, st := range t.subtypes {
		if !identifierPattern.MatchString(st.Table) {
			errs = append(errs, qerr.New(qerr.CodeInvalidSchema, "subtype %q of %q: table %q is not a plain identifier", st.Name, t.Name, st.Table))
		}
	}

	if t.PK == nil {
		t.PK = defaultPK(t.Table)
	}
	return errs
}

// defaultPK matches the id column of the type's table at the current level.
func defaultPK(table string) PKFunc {
	return KeyPK("{" + table + "}.id")
}

// KeyPK matches the key expression col: col = ? for a scalar id and
// col IN (?, ...) for an array. An empty array yields no predicate.
func KeyPK(col string) PKFunc {
	return func(id any, _ int) fragment.Fragment {
		if ids, ok := id.([]any); ok {
			if len(ids) == 0 {
				return nil
			}
			return fragment.P(col+" IN ("+placeholders(len(ids))+")", ids...)
		}
		return fragment.P(col+" = ?", id)
	}
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// TypeBuilder declares links, fields and subtypes on one type.
type TypeBuilder struct {
	b *Builder
	t *Type
}

// Name returns the type name.
func (tb *TypeBuilder) Name() string {
	return tb.t.Name
}

// Field appends field declarations.
func (tb *TypeBuilder) Field(fields ...Field) *TypeBuilder {
	tb.t.fields = append(tb.t.fields, fields...)
	return tb
}

// One declares a single-row link. Without an explicit FK the link cannot
// be traversed.
func (tb *TypeBuilder) One(name string, opts LinkOptions) *TypeBuilder {
	tb.addLink(name, "", false, opts, nil)
	return tb
}

// Many declares an array link. FK defaults to fragment.Many.
func (tb *TypeBuilder) Many(name string, opts LinkOptions) *TypeBuilder {
	tb.addLink(name, "", true, opts, fragment.Many)
	return tb
}

// HasOne declares a single-row link whose target holds <owner>_id.
func (tb *TypeBuilder) HasOne(name string, opts LinkOptions) *TypeBuilder {
	tb.addLink(name, "", false, opts, fragment.HasOne)
	return tb
}

// BelongsTo declares a single-row link whose owner holds <link>_id.
func (tb *TypeBuilder) BelongsTo(name string, opts LinkOptions) *TypeBuilder {
	tb.addLink(name, "", false, opts, fragment.BelongsTo)
	return tb
}

// SubType declares a subtype and returns a builder for its links.
func (tb *TypeBuilder) SubType(name string, opts SubTypeOptions) *SubTypeBuilder {
	st := &SubType{
		Name:       name,
		Table:      opts.Table,
		TableQuery: opts.TableQuery,
		FK:         opts.FK,
	}
	stb := &SubTypeBuilder{tb: tb, st: st}
	if name == "" {
		tb.b.fail(qerr.New(qerr.CodeInvalidSchema, "type %q: subtype name must not be empty", tb.t.Name))
		return stb
	}
	if _, dup := tb.t.SubType(name); dup {
		tb.b.fail(qerr.New(qerr.CodeInvalidSchema, "type %q: subtype %q declared twice", tb.t.Name, name))
		return stb
	}
	if st.Table == "" {
		st.Table = tb.b.inflector.Pluralize(name)
	}
	if fragment.IsEmpty(st.FK) {
		st.FK = fragment.SubType
	}
	tb.t.subtypes = append(tb.t.subtypes, st)
	return stb
}

func (tb *TypeBuilder) addLink(name, subtype string, many bool, opts LinkOptions, defaultFK fragment.Fragment) {
	bare := name
	if subtype != "" {
		name = subtype + SubTypeSeparator + name
	}
	if bare == "" {
		tb.b.fail(qerr.New(qerr.CodeInvalidSchema, "type %q: link name must not be empty", tb.t.Name))
		return
	}
	if _, dup := tb.t.links[name]; dup {
		tb.b.fail(qerr.New(qerr.CodeInvalidSchema, "type %q: link %q declared twice", tb.t.Name, name))
		return
	}

	l := &Link{
		Name:    name,
		Target:  opts.Type,
		Many:    many,
		FK:      opts.FK,
		Filter:  opts.Filter,
		OrderBy: opts.OrderBy,
		Guard:   opts.Guard,
		SubType: subtype,
	}
	switch {
	case l.Target != "":
	case subtype != "":
		// Subtype links name their target type verbatim.
		l.Target = bare
	default:
		l.Target = tb.b.inflector.Singularize(bare)
	}
	if fragment.IsEmpty(l.FK) {
		l.FK = defaultFK
	}
	tb.t.links[name] = l
	tb.t.linkOrder = append(tb.t.linkOrder, name)
}

// SubTypeBuilder declares links on a subtype. They are registered on the
// owning type under <subtype>__<link> and join relative to the subtype's
// alias.
type SubTypeBuilder struct {
	tb *TypeBuilder
	st *SubType
}

// Owner returns the builder of the owning type.
func (sb *SubTypeBuilder) Owner() *TypeBuilder {
	return sb.tb
}

// One declares a flattened single-row link.
func (sb *SubTypeBuilder) One(name string, opts LinkOptions) *SubTypeBuilder {
	sb.tb.addLink(name, sb.st.Name, false, opts, nil)
	return sb
}

// Many declares a flattened array link.
func (sb *SubTypeBuilder) Many(name string, opts LinkOptions) *SubTypeBuilder {
	sb.tb.addLink(name, sb.st.Name, true, opts, fragment.Many)
	return sb
}

// HasOne declares a flattened link whose target holds <subtype>_id.
func (sb *SubTypeBuilder) HasOne(name string, opts LinkOptions) *SubTypeBuilder {
	sb.tb.addLink(name, sb.st.Name, false, opts, fragment.HasOne)
	return sb
}

// BelongsTo declares a flattened link whose subtype row holds <link>_id.
func (sb *SubTypeBuilder) BelongsTo(name string, opts LinkOptions) *SubTypeBuilder {
	sb.tb.addLink(name, sb.st.Name, false, opts, fragment.BelongsTo)
	return sb
}
