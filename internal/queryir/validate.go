package queryir

import (
	"github.com/roach88/pggraphql/internal/qerr"
)

// Validate checks the shape of a top-level query tree before compilation.
//
// Shape rules:
//  1. The tree has at least one entry
//  2. Every top-level entry is a nested selection (a mapping)
//  3. No top-level entry is a context entry
//  4. Keys are non-empty and alias suffixes are non-empty when present
//
// Schema-level checks (unknown fields, missing ids) belong to the compiler.
// Validate is a pure function with no side effects.
func Validate(tree *Node) error {
	if tree.Len() == 0 {
		return qerr.New(qerr.CodeInvalidSelection, "query has no root selections")
	}
	for _, e := range tree.entries {
		if IsContext(e.Key) {
			return qerr.At(qerr.New(qerr.CodeInvalidSelection, "context entry %q not allowed at top level", e.Key), e.Key)
		}
		if err := checkKey(e.Key, e.Key); err != nil {
			return err
		}
		child, ok := e.Value.(*Node)
		if !ok || child == nil {
			return qerr.At(qerr.New(qerr.CodeInvalidSelection, "root selection %q must be a mapping", e.Key), e.Key)
		}
		if err := validateKeys(child, e.Key); err != nil {
			return err
		}
	}
	return nil
}

// validateKeys walks nested selections checking key syntax.
func validateKeys(n *Node, path string) error {
	for _, e := range n.entries {
		if err := checkKey(e.Key, path); err != nil {
			return err
		}
		if child, ok := e.Value.(*Node); ok && child != nil {
			if err := validateKeys(child, path+"."+e.Key); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkKey(key, path string) error {
	name := StripAlias(key)
	if name == "" {
		return qerr.At(qerr.New(qerr.CodeInvalidSelection, "empty selection name %q", key), path)
	}
	if name != key && len(key) == len(name)+len(AliasSigil) {
		return qerr.At(qerr.New(qerr.CodeInvalidSelection, "empty alias suffix in %q", key), path)
	}
	return nil
}
