// Package alias assigns per-level table aliases during a single compilation.
//
// Every table occurrence is aliased as <table><level>. The registry records,
// per table, the ordered set of levels at which the table has been
// instantiated so that later fragments can refer to the closest enclosing
// occurrence.
package alias

import (
	"slices"
	"strconv"

	"github.com/roach88/pggraphql/internal/qerr"
)

// Modifier selects which occurrence of a table a reference resolves to.
type Modifier int

const (
	// Current resolves to the table at the current level.
	Current Modifier = iota
	// Parent resolves to the table one level up. It does not consult or
	// update recorded levels.
	Parent
	// Root resolves to the table at level 1.
	Root
	// Closest resolves to the most recently recorded level of the table,
	// skipping the current level.
	Closest
)

// String returns the token spelling of the modifier.
func (m Modifier) String() string {
	switch m {
	case Parent:
		return "-1"
	case Root:
		return "root"
	case Closest:
		return "closest"
	default:
		return "current"
	}
}

// ParseModifier parses the modifier part of a {table:modifier} token.
// An empty string is Current; "-1" and "parent" are both Parent.
func ParseModifier(s string) (Modifier, bool) {
	switch s {
	case "", "current":
		return Current, true
	case "-1", "parent":
		return Parent, true
	case "root":
		return Root, true
	case "closest":
		return Closest, true
	default:
		return Current, false
	}
}

// Registry tracks the levels visited per table. A Registry belongs to one
// compilation and is not safe for concurrent use.
type Registry struct {
	levels map[string][]int
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{levels: make(map[string][]int)}
}

// Resolve returns the alias for table at level under the given modifier.
//
// Every modifier except Parent records level for table as a side effect,
// after the alias has been computed.
func (r *Registry) Resolve(table string, level int, mod Modifier) (string, error) {
	var target int
	switch mod {
	case Parent:
		return Name(table, level-1), nil
	case Root:
		target = 1
	case Closest:
		visited := r.levels[table]
		if len(visited) == 0 {
			return "", qerr.New(qerr.CodeUnresolvedTableReference, "table %q not visited", table)
		}
		target = visited[len(visited)-1]
		// Assumes the enclosing occurrence is exactly one level up.
		if target == level {
			target--
		}
	default:
		target = level
	}
	r.record(table, level)
	return Name(table, target), nil
}

// Levels returns the levels recorded for table in insertion order.
func (r *Registry) Levels(table string) []int {
	return slices.Clone(r.levels[table])
}

func (r *Registry) record(table string, level int) {
	if slices.Contains(r.levels[table], level) {
		return
	}
	r.levels[table] = append(r.levels[table], level)
}

// Name formats the alias of table at level.
func Name(table string, level int) string {
	return table + strconv.Itoa(level)
}
