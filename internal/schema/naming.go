package schema

import (
	"github.com/go-openapi/inflect"
)

// Inflector maps between singular and plural names. It supplies the
// default table of a type (plural of the type name) and the default target
// of a link or root (singular of the link or root name).
//
// Implementations must be deterministic.
type Inflector interface {
	Pluralize(name string) string
	Singularize(name string) string
}

// EnglishInflector applies English inflection rules.
// Example: person <-> people, address <-> addresses
type EnglishInflector struct{}

// Pluralize returns the plural of name.
func (EnglishInflector) Pluralize(name string) string {
	return inflect.Pluralize(name)
}

// Singularize returns the singular of name. A name that is already
// singular is returned unchanged: the suffix rules alone would turn
// "address" into "addres", so a candidate is accepted only when it
// pluralizes back to the plural of name.
func (EnglishInflector) Singularize(name string) string {
	s := inflect.Singularize(name)
	if s == name || inflect.Pluralize(s) != inflect.Pluralize(name) {
		return name
	}
	return s
}

// IdentityInflector returns names unchanged, so every default name equals
// the declared name.
type IdentityInflector struct{}

// Pluralize returns name.
func (IdentityInflector) Pluralize(name string) string { return name }

// Singularize returns name.
func (IdentityInflector) Singularize(name string) string { return name }

// InflectorByName returns the inflector registered under name:
// "inflect" (or "") for English rules, "none" for identity.
func InflectorByName(name string) (Inflector, bool) {
	switch name {
	case "", "inflect":
		return EnglishInflector{}, true
	case "none":
		return IdentityInflector{}, true
	default:
		return nil, false
	}
}
