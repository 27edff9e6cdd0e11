package schema

import (
	"xds/internal/fieldspec"
)

// System field names.
const (
	FieldKind      = "kind"
	FieldNS        = "ns"
	FieldNSID      = "nsid"
	FieldUID       = "uid"
	FieldUUID      = "uuid"
	FieldCreatedTS = "created_ts"
	FieldUpdatedTS = "updated_ts"
	FieldCreatedBy = "created_by"
	FieldUpdatedBy = "updated_by"
	FieldArgs      = "args"
	FieldKws       = "kws"

	// FieldProxy is not a system field; a type opts into proxy binding by declaring it.
	FieldProxy = "proxy"
)

var systemSpecs = []struct {
	name, spec string
}{
	{FieldKind, "str#sys#ro"},
	{FieldNS, "str#sys"},
	{FieldNSID, "str#sys#ro"},
	{FieldUID, "str#sys#ro"},
	{FieldUUID, "uuid#sys#ro"},
	{FieldCreatedTS, "dt#sys#ro"},
	{FieldUpdatedTS, "dt#sys"},
	{FieldCreatedBy, "str#sys#ro"},
	{FieldUpdatedBy, "str#sys"},
	{FieldArgs, "any#list#sys"},
	{FieldKws, "dict#sys"},
}

var systemNames = func() map[string]bool {
	m := make(map[string]bool, len(systemSpecs))
	for _, s := range systemSpecs {
		m[s.name] = true
	}

	return m
}()

// IsSystemField reports whether name is one of the fields added to every
// top-level type.
func IsSystemField(name string) bool { return systemNames[name] }

// SystemFields returns the system field names in declaration order.
func SystemFields() []string {
	names := make([]string, len(systemSpecs))
	for i, s := range systemSpecs {
		names[i] = s.name
	}

	return names
}

func systemFields(kind string) []*FieldDefinition {
	out := make([]*FieldDefinition, 0, len(systemSpecs))

	for _, s := range systemSpecs {
		fs, err := fieldspec.ParseField(s.name, s.spec)
		if err != nil {
			panic(err)
		}

		f := scalarField(s.name, fs)
		f.System = true

		if s.name == FieldKind {
			f.Default = kind
			f.HasDefault = true
		}

		out = append(out, f)
	}

	return out
}
