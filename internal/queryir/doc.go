// Package queryir provides the ordered selection tree that callers hand to
// the query compiler.
//
// A query tree is a mapping from a selection name to a selection body:
//
//	user:
//	  id: 1
//	  email: null
//	  address:
//	    id: null
//
// Selection order is significant. It determines column order in the
// generated SQL and the order in which bound values appear in the
// parameter list, so the tree is an ordered list of entries rather than a
// Go map.
//
// VALUES:
//
// An entry value is one of:
//   - nil                    plain field request (or an id with no selector)
//   - scalar                 string, bool, int, int64, float64
//   - []any                  id selector arrays
//   - *Node                  nested link, root or subtype request
//
// SIGILS:
//
// Two key sigils carry meaning for the compiler:
//
//	$name          context entry, never treated as field or link; visible
//	               to computed fragments through the selection node
//	name@suffix    alias suffix, stripped for lookup but kept as the
//	               output key, so one link can be requested twice
//
// PARSING:
//
// Parse reads YAML or JSON documents. Keys are normalized to Unicode NFC so
// that visually identical names from different editors compare equal.
// Node also implements yaml.Unmarshaler, so a query can be embedded as a
// field in other YAML documents, and json.Marshaler with order preserved.
package queryir
