package deref

import (
	"sort"
)

// Node is a raw parsed value interpreted once as a schema node.
type Node interface {
	isNode()
}

// Reference stands for the node its expression points to. Sibling keys are
// ignored.
type Reference struct {
	Ref string
}

// Composite is a mapping; Keys is sorted so walks are deterministic.
type Composite struct {
	Keys   []string
	Values map[string]Node
}

type Sequence []Node

type Scalar struct {
	Value any
}

func (Reference) isNode() {}
func (Composite) isNode() {}
func (Sequence) isNode()  {}
func (Scalar) isNode()    {}

// Interpret classifies raw and its descendants. A mapping whose "$ref" is a
// string is a Reference; any other mapping is a Composite.
func Interpret(raw any) Node {
	switch v := raw.(type) {
	case map[string]any:
		if expr, ok := v["$ref"].(string); ok {
			return Reference{Ref: expr}
		}
		c := Composite{
			Keys:   make([]string, 0, len(v)),
			Values: make(map[string]Node, len(v)),
		}
		for k, child := range v {
			c.Keys = append(c.Keys, k)
			c.Values[k] = Interpret(child)
		}
		sort.Strings(c.Keys)
		return c
	case []any:
		seq := make(Sequence, len(v))
		for i, child := range v {
			seq[i] = Interpret(child)
		}
		return seq
	default:
		return Scalar{Value: v}
	}
}
