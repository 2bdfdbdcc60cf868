package note

import (
	"gopkg.in/yaml.v3"
)

// Frontmatter is an ordered key/value map. Key order is preserved across
// parse and serialize so round-tripping a document does not shuffle fields.
type Frontmatter struct {
	keys   []string
	values map[string]Value
}

// NewFrontmatter returns an empty frontmatter map.
func NewFrontmatter() *Frontmatter {
	return &Frontmatter{values: make(map[string]Value)}
}

// Len returns the number of keys.
func (f *Frontmatter) Len() int {
	if f == nil {
		return 0
	}
	return len(f.keys)
}

// Has reports whether key is present.
func (f *Frontmatter) Has(key string) bool {
	if f == nil {
		return false
	}
	_, ok := f.values[key]
	return ok
}

// Get returns the value for key.
func (f *Frontmatter) Get(key string) (Value, bool) {
	if f == nil {
		return Value{}, false
	}
	v, ok := f.values[key]
	return v, ok
}

// Set stores value under key, appending the key when new.
func (f *Frontmatter) Set(key string, v Value) {
	if _, ok := f.values[key]; !ok {
		f.keys = append(f.keys, key)
	}
	f.values[key] = v
}

// Keys returns the keys in insertion order.
func (f *Frontmatter) Keys() []string {
	if f == nil {
		return nil
	}
	cp := make([]string, len(f.keys))
	copy(cp, f.keys)
	return cp
}

// Clone returns an independent copy.
func (f *Frontmatter) Clone() *Frontmatter {
	out := NewFrontmatter()
	if f == nil {
		return out
	}
	for _, k := range f.keys {
		out.Set(k, f.values[k])
	}
	return out
}

// decodeFrontmatter parses a YAML block into ordered key/value pairs.
// Any decode failure, or a document whose root is not a mapping, yields
// (nil, false): parsing is best-effort and never errors.
func decodeFrontmatter(block []byte) (*Frontmatter, bool) {
	var root yaml.Node
	if err := yaml.Unmarshal(block, &root); err != nil {
		return nil, false
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, false
	}
	m := root.Content[0]
	if m.Kind != yaml.MappingNode {
		return nil, false
	}
	fm := NewFrontmatter()
	for i := 0; i+1 < len(m.Content); i += 2 {
		k := m.Content[i]
		if k.Kind != yaml.ScalarNode {
			continue
		}
		if fm.Has(k.Value) {
			continue
		}
		fm.Set(k.Value, valueFromNode(m.Content[i+1]))
	}
	return fm, true
}

// encode renders the frontmatter as a YAML mapping with keys in order.
func (f *Frontmatter) encode() []byte {
	m := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, k := range f.keys {
		m.Content = append(m.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k},
			f.values[k].yamlNode(),
		)
	}
	out, err := yaml.Marshal(m)
	if err != nil {
		// Opaque nodes can in theory fail to re-encode; coerce every
		// value to its string form and retry so serialize stays total.
		plain := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, k := range f.keys {
			plain.Content = append(plain.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k},
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: f.values[k].Display()},
			)
		}
		out, err = yaml.Marshal(plain)
		if err != nil {
			return nil
		}
	}
	return out
}
