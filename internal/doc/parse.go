package doc

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrFormat reports a document that does not parse as YAML.
var ErrFormat = errors.New("malformed document")

// Parse converts YAML text into a document tree. An empty document (or
// a document whose sole content is null) becomes an empty mapping so
// the filesystem root always exists. Alias nodes are dereferenced on
// load; anchors are not preserved across a round trip.
func Parse(text []byte) (*Node, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(text, &root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if root.Kind == 0 || len(root.Content) == 0 {
		return NewMapping(), nil
	}
	top := root.Content[0]
	if top.Kind == yaml.ScalarNode && top.Tag == "!!null" {
		return NewMapping(), nil
	}
	return fromYAML(top)
}

// Serialize is the inverse of Parse up to the verbatim preservation
// rules: multiline strings keep literal block style, everything else
// is emitted plain or quoted as the encoder requires.
func Serialize(root *Node) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(toYAML(root)); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return buf.Bytes(), nil
}

func fromYAML(y *yaml.Node) (*Node, error) {
	switch y.Kind {
	case yaml.AliasNode:
		return fromYAML(y.Alias)
	case yaml.MappingNode:
		n := NewMapping()
		for i := 0; i+1 < len(y.Content); i += 2 {
			key := y.Content[i].Value
			if _, dup := n.Fields.Get(key); dup {
				return nil, fmt.Errorf("%w: duplicate key %q at line %d", ErrFormat, key, y.Content[i].Line)
			}
			child, err := fromYAML(y.Content[i+1])
			if err != nil {
				return nil, err
			}
			n.Fields.Set(key, child)
		}
		return n, nil
	case yaml.SequenceNode:
		n := NewSequence()
		for _, c := range y.Content {
			child, err := fromYAML(c)
			if err != nil {
				return nil, err
			}
			n.Items = append(n.Items, child)
		}
		return n, nil
	case yaml.ScalarNode:
		return scalarFromYAML(y), nil
	}
	return nil, fmt.Errorf("%w: unsupported node kind %d at line %d", ErrFormat, y.Kind, y.Line)
}

// scalarFromYAML maps a resolved YAML scalar onto a typed value. Null
// becomes the empty string; anything that is not a recognized bool,
// int, or float stays a string verbatim.
func scalarFromYAML(y *yaml.Node) *Node {
	switch y.Tag {
	case "!!null":
		return NewScalar("")
	case "!!bool":
		if b, err := strconv.ParseBool(y.Value); err == nil {
			return NewScalar(b)
		}
	case "!!int":
		if i, err := strconv.ParseInt(y.Value, 0, 64); err == nil {
			return NewScalar(i)
		}
	case "!!float":
		if f, err := strconv.ParseFloat(y.Value, 64); err == nil {
			return NewScalar(f)
		}
	}
	return NewScalar(y.Value)
}

func toYAML(n *Node) *yaml.Node {
	switch n.Kind {
	case KindMapping:
		y := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for p := n.Fields.Oldest(); p != nil; p = p.Next() {
			y.Content = append(y.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: p.Key},
				toYAML(p.Value))
		}
		return y
	case KindSequence:
		y := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, c := range n.Items {
			y.Content = append(y.Content, toYAML(c))
		}
		return y
	}
	return scalarToYAML(n)
}

func scalarToYAML(n *Node) *yaml.Node {
	y := &yaml.Node{Kind: yaml.ScalarNode}
	switch v := n.Value.(type) {
	case bool:
		y.Tag = "!!bool"
		y.Value = strconv.FormatBool(v)
	case int64:
		y.Tag = "!!int"
		y.Value = strconv.FormatInt(v, 10)
	case float64:
		y.Tag = "!!float"
		y.Value = formatFloat(v)
	default:
		s := fmt.Sprintf("%v", n.Value)
		if sv, ok := n.Value.(string); ok {
			s = sv
		}
		y.Tag = "!!str"
		y.Value = s
		switch {
		case strings.Contains(strings.TrimRight(s, "\n"), "\n"):
			// More than one physical line: verbatim block style.
			y.Style = yaml.LiteralStyle
		case strings.Contains(s, "\n"):
			// Embedded trailing newline on a single conceptual line:
			// escaped quoting, never block style.
			y.Style = yaml.DoubleQuotedStyle
		}
	}
	return y
}
