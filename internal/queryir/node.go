package queryir

import (
	"slices"
	"strings"
)

const (
	// ContextSigil prefixes context-only entries.
	ContextSigil = "$"

	// AliasSigil separates a selection name from its output alias suffix.
	AliasSigil = "@"
)

// Entry is one key/value pair of a selection node.
type Entry struct {
	Key   string
	Value any
}

// O is shorthand for an Entry.
// Example: NewNode(O("id", 1), O("email", nil))
func O(key string, value any) Entry {
	return Entry{Key: key, Value: value}
}

// Node is an ordered selection mapping. Keys are unique; setting an
// existing key replaces its value in place.
//
// A nil *Node behaves as an empty node for all read methods.
type Node struct {
	entries []Entry
}

// NewNode creates a node from entries in order. A repeated key keeps its
// first position and takes the last value.
func NewNode(entries ...Entry) *Node {
	n := &Node{entries: make([]Entry, 0, len(entries))}
	for _, e := range entries {
		n.Set(e.Key, e.Value)
	}
	return n
}

// Len returns the number of entries.
func (n *Node) Len() int {
	if n == nil {
		return 0
	}
	return len(n.entries)
}

// Entries returns a copy of the entries in order.
func (n *Node) Entries() []Entry {
	if n == nil {
		return nil
	}
	return slices.Clone(n.entries)
}

// Keys returns the keys in order.
func (n *Node) Keys() []string {
	if n == nil {
		return nil
	}
	keys := make([]string, len(n.entries))
	for i, e := range n.entries {
		keys[i] = e.Key
	}
	return keys
}

// Get returns the value stored under key.
func (n *Node) Get(key string) (any, bool) {
	if i := n.index(key); i >= 0 {
		return n.entries[i].Value, true
	}
	return nil, false
}

// Has reports whether key is present, even with a nil value.
func (n *Node) Has(key string) bool {
	return n.index(key) >= 0
}

// Set stores value under key, replacing an existing value in place or
// appending a new entry.
func (n *Node) Set(key string, value any) {
	if i := n.index(key); i >= 0 {
		n.entries[i].Value = value
		return
	}
	n.entries = append(n.entries, Entry{Key: key, Value: value})
}

// Clone returns a shallow copy of n. Nested nodes are shared.
func (n *Node) Clone() *Node {
	if n == nil {
		return &Node{}
	}
	return &Node{entries: slices.Clone(n.entries)}
}

func (n *Node) index(key string) int {
	if n == nil {
		return -1
	}
	for i, e := range n.entries {
		if e.Key == key {
			return i
		}
	}
	return -1
}

// IsContext reports whether key is a context-only entry.
func IsContext(key string) bool {
	return strings.HasPrefix(key, ContextSigil)
}

// StripAlias returns key without its alias suffix.
// Example: StripAlias("address@billing") == "address"
func StripAlias(key string) string {
	if i := strings.Index(key, AliasSigil); i >= 0 {
		return key[:i]
	}
	return key
}

// IsNested reports whether v is a nested selection.
func IsNested(v any) bool {
	_, ok := v.(*Node)
	return ok
}
