package queryir

import (
	"bytes"
	"encoding/json"
	"fmt"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/roach88/pggraphql/internal/qerr"
)

// Parse reads a query tree from a YAML or JSON document.
// The document must be a single mapping.
func Parse(data []byte) (*Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, qerr.New(qerr.CodeInvalidSelection, "parse query: %v", err)
	}
	if doc.Kind == 0 {
		return nil, qerr.New(qerr.CodeInvalidSelection, "empty query document")
	}
	root := &doc
	if root.Kind == yaml.DocumentNode {
		if len(root.Content) == 0 {
			return nil, qerr.New(qerr.CodeInvalidSelection, "empty query document")
		}
		root = root.Content[0]
	}
	n := &Node{}
	if err := n.UnmarshalYAML(root); err != nil {
		return nil, err
	}
	return n, nil
}

// UnmarshalYAML decodes a YAML mapping into n, preserving key order.
func (n *Node) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.AliasNode {
		value = value.Alias
	}
	if value.Kind != yaml.MappingNode {
		return qerr.New(qerr.CodeInvalidSelection, "line %d: selection must be a mapping", value.Line)
	}

	n.entries = make([]Entry, 0, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		k, v := value.Content[i], value.Content[i+1]
		if k.Kind != yaml.ScalarNode {
			return qerr.New(qerr.CodeInvalidSelection, "line %d: selection key must be a scalar", k.Line)
		}
		key := norm.NFC.String(k.Value)
		if key == "" {
			return qerr.New(qerr.CodeInvalidSelection, "line %d: empty selection key", k.Line)
		}
		if n.Has(key) {
			return qerr.New(qerr.CodeInvalidSelection, "line %d: duplicate selection key %q", k.Line, key)
		}
		val, err := decodeValue(v)
		if err != nil {
			return err
		}
		n.entries = append(n.entries, Entry{Key: key, Value: val})
	}
	return nil
}

func decodeValue(v *yaml.Node) (any, error) {
	if v.Kind == yaml.AliasNode {
		v = v.Alias
	}
	switch v.Kind {
	case yaml.MappingNode:
		child := &Node{}
		if err := child.UnmarshalYAML(v); err != nil {
			return nil, err
		}
		return child, nil
	case yaml.SequenceNode:
		items := make([]any, 0, len(v.Content))
		for _, c := range v.Content {
			item, err := decodeValue(c)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
		return items, nil
	case yaml.ScalarNode:
		var out any
		if err := v.Decode(&out); err != nil {
			return nil, qerr.New(qerr.CodeInvalidSelection, "line %d: %v", v.Line, err)
		}
		return out, nil
	default:
		return nil, qerr.New(qerr.CodeInvalidSelection, "line %d: unsupported value", v.Line)
	}
}

// MarshalJSON encodes n as a JSON object with entries in order.
func (n *Node) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range n.Entries() {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(e.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(e.Value)
		if err != nil {
			return nil, fmt.Errorf("marshal %q: %w", e.Key, err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
