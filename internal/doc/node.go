// Package doc holds the in-memory tree parsed from the backing YAML
// document, plus the parser/serializer and write-back type inference.
package doc

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Kind discriminates the three node variants.
type Kind int

const (
	KindScalar Kind = iota
	KindSequence
	KindMapping
)

// Node is one element of the document tree. Exactly one variant is
// populated, selected by Kind. A variant is never changed in place —
// replacing a scalar with a mapping replaces the Node, not its fields.
type Node struct {
	Kind Kind

	// Scalar payload: one of string, int64, float64, bool.
	Value any
	// Multiline marks string scalars whose content spans more than one
	// physical line (trailing newlines excluded). Rendering hint only:
	// it selects literal block style on serialization.
	Multiline bool

	// Sequence children, addressed 0..len-1 with no gaps.
	Items []*Node

	// Mapping children. Insertion order is preserved and keys are unique.
	Fields *orderedmap.OrderedMap[string, *Node]
}

// NewScalar wraps a typed scalar value. For strings the multiline hint
// is computed from the content's physical line count.
func NewScalar(value any) *Node {
	n := &Node{Kind: KindScalar, Value: value}
	if s, ok := value.(string); ok {
		n.Multiline = strings.Contains(strings.TrimRight(s, "\n"), "\n")
	}
	return n
}

// NewSequence returns an empty sequence node.
func NewSequence() *Node {
	return &Node{Kind: KindSequence}
}

// NewMapping returns an empty mapping node.
func NewMapping() *Node {
	return &Node{Kind: KindMapping, Fields: orderedmap.New[string, *Node]()}
}

// IsDir reports whether the node is exposed as a directory.
func (n *Node) IsDir() bool {
	return n.Kind != KindScalar
}

// Len returns the child count for structured nodes, 0 for scalars.
func (n *Node) Len() int {
	switch n.Kind {
	case KindSequence:
		return len(n.Items)
	case KindMapping:
		return n.Fields.Len()
	}
	return 0
}

// ScalarText renders a scalar's literal value with no quoting.
func (n *Node) ScalarText() string {
	switch v := n.Value.(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return formatFloat(v)
	}
	return fmt.Sprintf("%v", n.Value)
}

// MarshalJSON emits the subtree as JSON. Mapping key order is preserved
// by the ordered map's own marshaler.
func (n *Node) MarshalJSON() ([]byte, error) {
	switch n.Kind {
	case KindMapping:
		return json.Marshal(n.Fields)
	case KindSequence:
		if n.Items == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(n.Items)
	default:
		return json.Marshal(n.Value)
	}
}

// Equal reports structural equality of two subtrees. Formatting hints
// are ignored; values, kinds, key order, and element order are not.
func (n *Node) Equal(o *Node) bool {
	if n == nil || o == nil {
		return n == o
	}
	if n.Kind != o.Kind {
		return false
	}
	switch n.Kind {
	case KindScalar:
		return n.Value == o.Value
	case KindSequence:
		if len(n.Items) != len(o.Items) {
			return false
		}
		for i := range n.Items {
			if !n.Items[i].Equal(o.Items[i]) {
				return false
			}
		}
		return true
	default:
		if n.Fields.Len() != o.Fields.Len() {
			return false
		}
		op := o.Fields.Oldest()
		for np := n.Fields.Oldest(); np != nil; np = np.Next() {
			if op == nil || np.Key != op.Key || !np.Value.Equal(op.Value) {
				return false
			}
			op = op.Next()
		}
		return true
	}
}

// formatFloat keeps a decimal point so the value re-parses as a float.
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eENI") {
		s += ".0"
	}
	return s
}
