// Package document implements the one external collaborator the spec
// requires a contract for but not an implementation of: turning a YAML
// pipeline file into an ordered, nested tree of scalars, sequences, and
// mappings. Mapping key order is preserved, matching the original's
// custom OrderedLoader, using yaml.v3's native yaml.Node tree rather
// than a hand-rolled ordered-map decoder.
package document

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Kind distinguishes the three document node shapes.
type Kind int

const (
	Scalar Kind = iota
	Sequence
	Mapping
)

// Node is one node of the parsed document tree.
type Node struct {
	Kind  Kind
	Value any // populated for Scalar: string, bool, float64, or nil
	Items []Node
	Keys  []string // populated for Mapping, in source order
	Map   map[string]Node
	Line  int
}

// Get returns the value under key in a Mapping node.
func (n Node) Get(key string) (Node, bool) {
	v, ok := n.Map[key]
	return v, ok
}

// String returns the scalar's string form ("" for non-scalars).
func (n Node) String() string {
	if n.Kind != Scalar {
		return ""
	}
	if s, ok := n.Value.(string); ok {
		return s
	}
	return fmt.Sprint(n.Value)
}

// ToValue converts a Node into a plain Go value (string, bool, float64,
// nil, []any, or map[string]any) — the generic shape JSON Schema
// validation and task handlers operate on once a node has been located
// by tag.
func ToValue(n Node) any {
	switch n.Kind {
	case Scalar:
		return n.Value
	case Sequence:
		out := make([]any, 0, len(n.Items))
		for _, item := range n.Items {
			out = append(out, ToValue(item))
		}
		return out
	case Mapping:
		out := make(map[string]any, len(n.Keys))
		for _, k := range n.Keys {
			out[k] = ToValue(n.Map[k])
		}
		return out
	default:
		return nil
	}
}

// Load parses top-level pipeline YAML: a sequence of task nodes.
func Load(data []byte) ([]Node, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("document: parse: %w", err)
	}
	if len(root.Content) == 0 {
		return nil, nil
	}
	top, err := convert(root.Content[0])
	if err != nil {
		return nil, err
	}
	if top.Kind != Sequence {
		return nil, fmt.Errorf("document: top level must be a sequence (line %d)", top.Line)
	}
	return top.Items, nil
}

func convert(n *yaml.Node) (Node, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		return convert(n.Content[0])
	case yaml.AliasNode:
		return convert(n.Alias)
	case yaml.SequenceNode:
		items := make([]Node, 0, len(n.Content))
		for _, c := range n.Content {
			cn, err := convert(c)
			if err != nil {
				return Node{}, err
			}
			items = append(items, cn)
		}
		return Node{Kind: Sequence, Items: items, Line: n.Line}, nil
	case yaml.MappingNode:
		out := Node{Kind: Mapping, Map: map[string]Node{}, Line: n.Line}
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i]
			val := n.Content[i+1]
			vn, err := convert(val)
			if err != nil {
				return Node{}, err
			}
			out.Keys = append(out.Keys, key.Value)
			out.Map[key.Value] = vn
		}
		return out, nil
	case yaml.ScalarNode:
		return Node{Kind: Scalar, Value: scalarValue(n), Line: n.Line}, nil
	default:
		return Node{}, fmt.Errorf("document: unsupported node kind at line %d", n.Line)
	}
}

func scalarValue(n *yaml.Node) any {
	switch n.Tag {
	case "!!bool":
		b, err := strconv.ParseBool(n.Value)
		if err != nil {
			return n.Value
		}
		return b
	case "!!int", "!!float":
		f, err := strconv.ParseFloat(n.Value, 64)
		if err != nil {
			return n.Value
		}
		return f
	case "!!null":
		return nil
	default:
		return n.Value
	}
}
