package model

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Option is one submission directive. A nil Value is a bare flag.
type Option struct {
	Key   string
	Value *string
}

// IsFlag reports whether the option carries no argument.
func (o Option) IsFlag() bool {
	return o.Value == nil
}

// Options is an ordered set of directives. Order only affects the order of
// the rendered lines.
type Options []Option

// Set returns o with key set to value, replacing an existing entry in place.
func (o Options) Set(key, value string) Options {
	v := value
	return o.put(Option{Key: key, Value: &v})
}

// SetFlag returns o with key set as a bare flag.
func (o Options) SetFlag(key string) Options {
	return o.put(Option{Key: key})
}

func (o Options) put(opt Option) Options {
	for i := range o {
		if o[i].Key == opt.Key {
			out := o.Clone()
			out[i] = opt
			return out
		}
	}
	return append(o.Clone(), opt)
}

// Get returns the value for key. flag is true when the entry is a bare flag.
func (o Options) Get(key string) (value string, flag bool, ok bool) {
	for _, opt := range o {
		if opt.Key == key {
			if opt.Value == nil {
				return "", true, true
			}
			return *opt.Value, false, true
		}
	}
	return "", false, false
}

// Has reports whether key is present.
func (o Options) Has(key string) bool {
	_, _, ok := o.Get(key)
	return ok
}

// Keys returns the option keys in order.
func (o Options) Keys() []string {
	keys := make([]string, len(o))
	for i, opt := range o {
		keys[i] = opt.Key
	}
	return keys
}

// Clone returns a copy that shares no memory with o.
func (o Options) Clone() Options {
	if o == nil {
		return nil
	}
	out := make(Options, len(o))
	for i, opt := range o {
		out[i] = Option{Key: opt.Key}
		if opt.Value != nil {
			v := *opt.Value
			out[i].Value = &v
		}
	}
	return out
}

// ParseOption parses "key=value" or a bare "key" as given on the command line.
func ParseOption(s string) (Option, error) {
	key, value, hasValue := strings.Cut(s, "=")
	key = strings.TrimSpace(key)
	if key == "" {
		return Option{}, &ConfigError{Field: "option", Message: fmt.Sprintf("missing key in %q", s)}
	}
	if !hasValue {
		return Option{Key: key}, nil
	}
	return Option{Key: key, Value: &value}, nil
}

// UnmarshalYAML reads a mapping while keeping key order. A null value
// (`~`, `null` or an empty value) becomes a bare flag.
func (o *Options) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: options must be a mapping", node.Line)
	}
	out := make(Options, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		k, v := node.Content[i], node.Content[i+1]
		if v.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: option %q must have a scalar value", v.Line, k.Value)
		}
		if v.ShortTag() == "!!null" {
			out = out.SetFlag(k.Value)
			continue
		}
		out = out.Set(k.Value, v.Value)
	}
	*o = out
	return nil
}

// MarshalYAML writes the options as an ordered mapping.
func (o Options) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, opt := range o {
		key := &yaml.Node{Kind: yaml.ScalarNode, Value: opt.Key}
		val := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "~"}
		if opt.Value != nil {
			val = &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: *opt.Value}
		}
		node.Content = append(node.Content, key, val)
	}
	return node, nil
}
