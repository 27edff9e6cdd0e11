package schema

import (
	"strings"

	"xds/internal/fieldspec"
)

//go:generate go tool stringer -type=ValueKind -linecomment -output=valuekind_string.go

// ValueKind is the shape of a field's value.
type ValueKind int

const (
	_ ValueKind = iota // zero value is invalid

	ValueScalar   // scalar
	ValueRecord   // record
	ValueSequence // sequence

	// ValueTotal is the number of value kinds defined.
	ValueTotal = int(iota)
)

// Meta is the display metadata derived for a field.
type Meta struct {
	Title   string
	VarName string
	DType   string
	// Spec is the field's specification text; empty for nested records.
	Spec    string
	Flags   []string
	UX      map[string]string
	Display map[string]int
}

// FieldDefinition is a named slot in a RecordType.
//
// Scalar fields (including lists of scalars) carry Spec. Record and sequence
// fields carry Record, the element type for sequences.
type FieldDefinition struct {
	Name       string
	Value      ValueKind
	Spec       *fieldspec.FieldSpec
	Record     *RecordType
	Required   bool
	Default    any
	HasDefault bool
	System     bool
	Meta       Meta
}

// Nullable reports whether the field may be left empty.
func (f *FieldDefinition) Nullable() bool { return !f.Required }

// Has reports a flag of the field's spec.
func (f *FieldDefinition) Has(flag string) bool {
	return f.Spec != nil && f.Spec.Has(flag)
}

// RecordType is a named, ordered set of field definitions. It is immutable
// once built.
type RecordType struct {
	Kind string
	// Strict types reject keys outside their fields; open types keep them in kws.
	Strict bool
	// Required is set by a "Name#req" kind and applies where the type is nested.
	Required bool
	Child    bool

	fields      []*FieldDefinition
	index       map[string]int
	fingerprint string
	deps        []string
}

func newRecordType(kind string, child bool) *RecordType {
	return &RecordType{
		Kind:   kind,
		Strict: true,
		Child:  child,
		index:  map[string]int{},
	}
}

func (rt *RecordType) add(f *FieldDefinition) bool {
	if _, dup := rt.index[f.Name]; dup {
		return false
	}

	rt.index[f.Name] = len(rt.fields)
	rt.fields = append(rt.fields, f)

	return true
}

// Fields returns the field definitions in declaration order.
func (rt *RecordType) Fields() []*FieldDefinition {
	return rt.fields
}

// Field returns the named field definition.
func (rt *RecordType) Field(name string) (*FieldDefinition, bool) {
	i, ok := rt.index[name]
	if !ok {
		return nil, false
	}

	return rt.fields[i], true
}

// Names returns the field names in declaration order.
func (rt *RecordType) Names() []string {
	names := make([]string, len(rt.fields))
	for i, f := range rt.fields {
		names[i] = f.Name
	}

	return names
}

// Len returns the number of fields.
func (rt *RecordType) Len() int { return len(rt.fields) }

// Dependencies lists the kinds this type cross-references.
func (rt *RecordType) Dependencies() []string { return rt.deps }

// Fingerprint identifies the specification tree the type was built from.
func (rt *RecordType) Fingerprint() string { return rt.fingerprint }

func (rt *RecordType) String() string {
	var b strings.Builder

	b.WriteString(rt.Kind)
	b.WriteByte('{')

	for i, f := range rt.fields {
		if i > 0 {
			b.WriteString(", ")
		}

		b.WriteString(f.Name)
		b.WriteByte(' ')
		b.WriteString(f.Meta.DType)

		if f.Required {
			b.WriteByte('!')
		}
	}

	b.WriteByte('}')

	return b.String()
}
