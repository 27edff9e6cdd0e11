package instance

import (
	"fmt"
	"maps"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"xds/internal/fieldspec"
	"xds/internal/normalize"
	"xds/internal/proxy"
	"xds/internal/schema"
)

// Mask replaces secret values in printed output.
const Mask = "******"

// Instance is a value conforming to a RecordType. It is read-only once
// constructed; a bound proxy adds exports without changing the values.
type Instance struct {
	rt     *schema.RecordType
	values map[string]any
	extras map[string]any
	proxy  *proxy.Capability
}

// Type returns the record type.
func (i *Instance) Type() *schema.RecordType { return i.rt }

// Kind returns the record kind.
func (i *Instance) Kind() string { return i.rt.Kind }

// NS returns the hierarchical namespace path.
func (i *Instance) NS() string { return i.str(schema.FieldNS) }

// NSID returns the canonical, lower-cased namespace.
func (i *Instance) NSID() string { return i.str(schema.FieldNSID) }

func (i *Instance) str(name string) string {
	s, _ := i.values[name].(string)
	return s
}

// Get returns the value at a dotted path; list elements are addressed by index.
func (i *Instance) Get(path string) (any, bool) {
	var cur any = i.values

	for _, seg := range normalize.SplitPath(path) {
		switch c := cur.(type) {
		case map[string]any:
			v, ok := c[seg]
			if !ok {
				return nil, false
			}

			cur = v
		case []any:
			n, err := strconv.Atoi(seg)
			if err != nil || n < 0 || n >= len(c) {
				return nil, false
			}

			cur = c[n]
		default:
			return nil, false
		}
	}

	return cur, true
}

// Values returns a shallow copy of the field values.
func (i *Instance) Values() map[string]any { return maps.Clone(i.values) }

// Extras returns the leftovers captured during normalization, by dotted path.
func (i *Instance) Extras() map[string]any { return maps.Clone(i.extras) }

// Proxy returns the bound capability, or nil.
func (i *Instance) Proxy() *proxy.Capability { return i.proxy }

// Capability returns the forwarding function of a callable proxy export.
func (i *Instance) Capability(name string) (proxy.Func, bool) {
	if i.proxy == nil {
		return nil, false
	}

	return i.proxy.Func(name)
}

// Export returns a proxy export: the snapshot for values, the Func for
// callables.
func (i *Instance) Export(name string) (any, bool) {
	if i.proxy == nil {
		return nil, false
	}

	if f, ok := i.proxy.Func(name); ok {
		return f, true
	}

	return i.proxy.Value(name)
}

// Exports returns the bound proxy's export names.
func (i *Instance) Exports() []string {
	if i.proxy == nil {
		return nil
	}

	return i.proxy.Exports()
}

func (i *Instance) String() string {
	var b strings.Builder

	b.WriteString(i.rt.Kind)
	b.WriteByte('(')

	first := true

	for _, f := range i.rt.Fields() {
		v := i.values[f.Name]
		if v == nil || f.Has(fieldspec.FlagHidden) {
			continue
		}

		if !first {
			b.WriteString(", ")
		}

		first = false

		b.WriteString(f.Name)
		b.WriteByte('=')
		b.WriteString(display(f, v))
	}

	b.WriteByte(')')

	return b.String()
}

// MarshalYAML renders the fields in declaration order with secrets masked.
func (i *Instance) MarshalYAML() (any, error) {
	return i.node(), nil
}

func (i *Instance) node() *yaml.Node {
	return recordNode(i.rt, i.values)
}

func recordNode(rt *schema.RecordType, values map[string]any) *yaml.Node {
	n := &yaml.Node{Kind: yaml.MappingNode}

	seen := map[string]bool{}

	for _, f := range rt.Fields() {
		seen[f.Name] = true

		v, ok := values[f.Name]
		if !ok {
			continue
		}

		n.Content = append(n.Content, scalarNode(f.Name), valueNode(f, v))
	}

	// open records keep unknown keys
	for k, v := range values {
		if seen[k] {
			continue
		}

		var vn yaml.Node
		if err := vn.Encode(v); err == nil {
			n.Content = append(n.Content, scalarNode(k), &vn)
		}
	}

	return n
}

func valueNode(f *schema.FieldDefinition, v any) *yaml.Node {
	switch {
	case v == nil:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}

	case f.Has(fieldspec.FlagSecret):
		return scalarNode(Mask)

	case f.Value == schema.ValueRecord:
		if m, ok := v.(map[string]any); ok {
			return recordNode(f.Record, m)
		}

	case f.Value == schema.ValueSequence:
		if items, ok := v.([]any); ok {
			seq := &yaml.Node{Kind: yaml.SequenceNode}

			for _, item := range items {
				if m, ok := item.(map[string]any); ok {
					seq.Content = append(seq.Content, recordNode(f.Record, m))
				}
			}

			return seq
		}
	}

	var vn yaml.Node
	if err := vn.Encode(plain(f, v)); err != nil {
		return scalarNode(fmt.Sprint(v))
	}

	return &vn
}

func scalarNode(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

// plain converts typed values to what reads naturally in YAML.
func plain(f *schema.FieldDefinition, v any) any {
	switch x := v.(type) {
	case uuid.UUID:
		return x.String()
	case time.Time:
		return display(f, x)
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = plain(f, item)
		}

		return out
	}

	return v
}

func display(f *schema.FieldDefinition, v any) string {
	if f.Has(fieldspec.FlagSecret) {
		return Mask
	}

	switch x := v.(type) {
	case time.Time:
		if f.Spec != nil {
			switch f.Spec.Type {
			case fieldspec.TypeDate:
				return x.Format(time.DateOnly)
			case fieldspec.TypeTime:
				return x.Format(time.TimeOnly)
			}
		}

		return x.Format(time.RFC3339)
	case string:
		return strconv.Quote(x)
	}

	return fmt.Sprint(v)
}
