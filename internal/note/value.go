package note

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Kind enumerates the frontmatter value variants.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindStringList
	KindOpaque
)

// Value is a frontmatter value. Frontmatter is an untyped bag on the wire,
// but merge logic needs to match on the variant, so every decoded value is
// normalised into one of the Kind cases. Structures that do not fit a scalar
// or string list (nested maps, mixed lists) are carried as opaque YAML nodes
// and re-emitted verbatim on serialize.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	list []string
	node *yaml.Node
}

// Null returns the null value.
func Null() Value { return Value{kind: KindNull} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int returns an integer value.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float returns a floating-point value.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// String returns a string value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// StringList returns a list-of-strings value.
func StringList(items []string) Value {
	cp := make([]string, len(items))
	copy(cp, items)
	return Value{kind: KindStringList, list: cp}
}

// Kind reports the variant of the value.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the value is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// BoolValue returns the boolean payload (false for other kinds).
func (v Value) BoolValue() bool { return v.b }

// IntValue returns the integer payload (0 for other kinds).
func (v Value) IntValue() int64 { return v.i }

// FloatValue returns the float payload (0 for other kinds).
func (v Value) FloatValue() float64 { return v.f }

// StringValue returns the string payload ("" for other kinds).
func (v Value) StringValue() string { return v.s }

// List returns a copy of the string-list payload (nil for other kinds).
func (v Value) List() []string {
	if v.kind != KindStringList {
		return nil
	}
	cp := make([]string, len(v.list))
	copy(cp, v.list)
	return cp
}

// Meaningful reports whether the value should override a machine-generated
// counterpart: strings must be non-empty after trimming, lists non-empty,
// null never. Booleans and numbers always carry intent.
func (v Value) Meaningful() bool {
	switch v.kind {
	case KindNull:
		return false
	case KindString:
		return strings.TrimSpace(v.s) != ""
	case KindStringList:
		return len(v.list) > 0
	case KindOpaque:
		if v.node != nil && v.node.Kind == yaml.SequenceNode {
			return len(v.node.Content) > 0
		}
		return v.node != nil
	default:
		return true
	}
}

// Display returns a human-readable form, used when a value must be coerced
// to a string before encoding.
func (v Value) Display() string {
	switch v.kind {
	case KindNull:
		return ""
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindString:
		return v.s
	case KindStringList:
		return strings.Join(v.list, ", ")
	default:
		if v.node != nil && v.node.Value != "" {
			return v.node.Value
		}
		return ""
	}
}

// Equal reports deep equality of two values.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == o.b
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindString:
		return v.s == o.s
	case KindStringList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if v.list[i] != o.list[i] {
				return false
			}
		}
		return true
	default:
		return encodeNode(v.node) == encodeNode(o.node)
	}
}

func encodeNode(n *yaml.Node) string {
	if n == nil {
		return ""
	}
	out, err := yaml.Marshal(n)
	if err != nil {
		return ""
	}
	return string(out)
}

// valueFromNode normalises a decoded YAML node into a Value.
func valueFromNode(n *yaml.Node) Value {
	if n == nil {
		return Null()
	}
	if n.Kind == yaml.AliasNode && n.Alias != nil {
		return valueFromNode(n.Alias)
	}
	switch n.Kind {
	case yaml.ScalarNode:
		switch n.ShortTag() {
		case "!!null":
			return Null()
		case "!!bool":
			b, err := strconv.ParseBool(strings.ToLower(n.Value))
			if err != nil {
				return String(n.Value)
			}
			return Bool(b)
		case "!!int":
			i, err := strconv.ParseInt(n.Value, 0, 64)
			if err != nil {
				return String(n.Value)
			}
			return Int(i)
		case "!!float":
			f, err := strconv.ParseFloat(n.Value, 64)
			if err != nil {
				return String(n.Value)
			}
			return Float(f)
		default:
			return String(n.Value)
		}
	case yaml.SequenceNode:
		items := make([]string, 0, len(n.Content))
		for _, c := range n.Content {
			if c.Kind != yaml.ScalarNode || c.ShortTag() == "!!map" {
				return opaque(n)
			}
			switch c.ShortTag() {
			case "!!str", "!!int", "!!float", "!!bool":
				items = append(items, c.Value)
			default:
				return opaque(n)
			}
		}
		return StringList(items)
	default:
		return opaque(n)
	}
}

func opaque(n *yaml.Node) Value {
	return Value{kind: KindOpaque, node: n}
}

// yamlNode encodes the value back into a YAML node. Total: values that
// cannot be represented degrade to their string form.
func (v Value) yamlNode() *yaml.Node {
	scalar := func(tag, val string) *yaml.Node {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: val}
	}
	switch v.kind {
	case KindNull:
		return scalar("!!null", "null")
	case KindBool:
		return scalar("!!bool", strconv.FormatBool(v.b))
	case KindInt:
		return scalar("!!int", strconv.FormatInt(v.i, 10))
	case KindFloat:
		return scalar("!!float", strconv.FormatFloat(v.f, 'g', -1, 64))
	case KindString:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v.s}
	case KindStringList:
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range v.list {
			seq.Content = append(seq.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: item})
		}
		return seq
	default:
		if v.node != nil {
			return v.node
		}
		return scalar("!!null", "null")
	}
}

// GoString aids test failure output.
func (v Value) GoString() string {
	return fmt.Sprintf("note.Value{kind:%d, display:%q}", v.kind, v.Display())
}
