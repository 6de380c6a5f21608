package fragment

import (
	"strings"

	"github.com/roach88/pggraphql/internal/alias"
	"github.com/roach88/pggraphql/internal/qerr"
)

// Resolver turns fragments into final SQL text for one compilation.
//
// Resolution of a fragment:
//  1. Computed fragments are evaluated against the Context, and their
//     result is resolved in turn. A nil result yields empty text.
//  2. The number of ? placeholders in the text must equal the number of
//     bound values (zero for a Literal). Bound values are appended to the
//     caller's parameter list in placeholder order.
//  3. Table tokens are rewritten left to right through the alias registry.
//     Each rewrite may record a level, so token order matters for later
//     {table:closest} references.
//
// A Resolver is bound to one alias registry and is not safe for
// concurrent use.
type Resolver struct {
	aliases *alias.Registry
}

// NewResolver creates a Resolver over the given alias registry.
func NewResolver(aliases *alias.Registry) *Resolver {
	return &Resolver{aliases: aliases}
}

// Aliases returns the registry backing this resolver.
func (r *Resolver) Aliases() *alias.Registry {
	return r.aliases
}

// Resolve resolves f at ctx.Level, appending bound values to params.
func (r *Resolver) Resolve(f Fragment, ctx Context, params *[]any) (string, error) {
	switch v := f.(type) {
	case nil:
		return "", nil
	case Literal:
		if n := CountPlaceholders(string(v)); n != 0 {
			return "", qerr.New(qerr.CodePlaceholderMismatch,
				"literal fragment %q has %d placeholder(s) and no bound values", string(v), n)
		}
		return r.Substitute(string(v), ctx.Level)
	case Parameterized:
		if n := CountPlaceholders(v.SQL); n != len(v.Args) {
			return "", qerr.New(qerr.CodePlaceholderMismatch,
				"fragment %q has %d placeholder(s) but %d bound value(s)", v.SQL, n, len(v.Args))
		}
		sql, err := r.Substitute(v.SQL, ctx.Level)
		if err != nil {
			return "", err
		}
		*params = append(*params, v.Args...)
		return sql, nil
	case Computed:
		if v == nil {
			return "", nil
		}
		return r.Resolve(v(ctx), ctx, params)
	case Tag:
		return "", qerr.New(qerr.CodeInvalidFragment, "join tag %q must be expanded before resolution", string(v))
	default:
		return "", qerr.New(qerr.CodeInvalidFragment, "unsupported fragment type %T", f)
	}
}

// Substitute rewrites every {table} and {table:modifier} token in sql into
// its alias at level. Quoted text and comments are copied unchanged.
func (r *Resolver) Substitute(sql string, level int) (string, error) {
	if !strings.Contains(sql, "{") {
		return sql, nil
	}

	var b strings.Builder
	b.Grow(len(sql))
	for _, seg := range split(sql) {
		if seg.quoted {
			b.WriteString(seg.text)
			continue
		}
		text := seg.text
		i := 0
		for i < len(text) {
			tok, ok := scanToken(text, i)
			if !ok {
				b.WriteByte(text[i])
				i++
				continue
			}
			mod, ok := alias.ParseModifier(tok.modifier)
			if !ok {
				return "", qerr.New(qerr.CodeInvalidFragment,
					"unknown table modifier %q in {%s:%s}", tok.modifier, tok.table, tok.modifier)
			}
			name, err := r.aliases.Resolve(tok.table, level, mod)
			if err != nil {
				return "", err
			}
			b.WriteString(name)
			i = tok.end
		}
	}
	return b.String(), nil
}
