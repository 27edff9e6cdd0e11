package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"xds/internal/diagnostic"
	"xds/internal/log"
)

const dsSpec = `
kind: DS
uri: str#req
rows: int=10#ge=0
cols: str#list
meta:
  kind: Meta#req
  owner: str
joins:
  - kind: Join
    on: str#req
tags:
  - str#in=a,b
`

func decodeTree(t *testing.T, src string) *Tree {
	t.Helper()

	var tree Tree
	require.NoError(t, yaml.Unmarshal([]byte(src), &tree))

	return &tree
}

func TestBuilder_Build(t *testing.T) {
	b := NewBuilder(log.NewTesting(t))

	rt, err := b.Build(CallerRegisterModel, decodeTree(t, dsSpec), false)
	require.NoError(t, err)

	assert.Equal(t, "DS", rt.Kind)
	assert.True(t, rt.Strict)
	assert.Equal(t, append(SystemFields(), "uri", "rows", "cols", "meta", "joins", "tags"), rt.Names())

	uri, ok := rt.Field("uri")
	require.True(t, ok)
	assert.Equal(t, ValueScalar, uri.Value)
	assert.True(t, uri.Required)
	assert.Equal(t, "URI", uri.Meta.Title)

	rows, _ := rt.Field("rows")
	assert.Equal(t, int64(10), rows.Default)
	assert.True(t, rows.Nullable())

	cols, _ := rt.Field("cols")
	assert.Equal(t, "list[str]", cols.Meta.DType)

	meta, _ := rt.Field("meta")
	require.Equal(t, ValueRecord, meta.Value)
	assert.True(t, meta.Required)
	assert.Equal(t, []string{"owner"}, meta.Record.Names())
	assert.True(t, meta.Record.Child)

	joins, _ := rt.Field("joins")
	require.Equal(t, ValueSequence, joins.Value)
	assert.Equal(t, "list[Join]", joins.Meta.DType)
	assert.False(t, joins.Required)

	tags, _ := rt.Field("tags")
	assert.Equal(t, ValueScalar, tags.Value)
	assert.True(t, tags.Spec.List())
	assert.Equal(t, []any{"a", "b"}, tags.Spec.Membership["in"])

	kind, _ := rt.Field(FieldKind)
	assert.Equal(t, "DS", kind.Default)
	assert.True(t, kind.System)

	created, _ := rt.Field(FieldCreatedTS)
	assert.Equal(t, "Created Ts", created.Meta.Title)
	nsid, _ := rt.Field(FieldNSID)
	assert.Equal(t, "NSID", nsid.Meta.Title)
}

func TestBuilder_ChildHasNoSystemFields(t *testing.T) {
	b := NewBuilder(log.Discard{})

	rt, err := b.Build(CallerEnrichment, NewTree("kind", "Point", "x", "float", "y", "float"), true)
	require.NoError(t, err)

	assert.Equal(t, []string{"x", "y"}, rt.Names())

	_, cached := b.Lookup("Point")
	assert.False(t, cached)
}

func TestBuilder_IdempotentRebuild(t *testing.T) {
	b := NewBuilder(log.Discard{})

	first, err := b.Build(CallerRegisterModel, decodeTree(t, dsSpec), false)
	require.NoError(t, err)

	second, err := b.Build(CallerRegisterModel, decodeTree(t, dsSpec), false)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Len(t, b.Types(), 1)
}

func TestBuilder_DuplicateType(t *testing.T) {
	b := NewBuilder(log.Discard{})

	_, err := b.Build(CallerRegisterModel, NewTree("kind", "DS", "uri", "str"), false)
	require.NoError(t, err)

	_, err = b.Build(CallerRegisterModel, NewTree("kind", "ds", "uri", "int"), false)
	require.ErrorIs(t, err, diagnostic.ErrDuplicateType)
}

func TestBuilder_Errors(t *testing.T) {
	tests := []struct {
		name  string
		tree  *Tree
		want  error
		field string
	}{
		{"missing kind", NewTree("uri", "str"), diagnostic.ErrKindRequired, ""},
		{"empty kind", NewTree("kind", "#req", "uri", "str"), diagnostic.ErrKindRequired, ""},
		{"nested missing kind", NewTree("kind", "A", "sub", NewTree("x", "int")), diagnostic.ErrKindRequired, "sub"},
		{"system field redeclared", NewTree("kind", "A", "ns", "str"), diagnostic.ErrDuplicateField, "ns"},
		{"bad spec", NewTree("kind", "A", "size", "int#gt=abc"), diagnostic.ErrInvalidSpec, "size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuilder(log.Discard{})

			_, err := b.Build(CallerRegisterModel, tt.tree, false)
			require.ErrorIs(t, err, tt.want)

			var de *diagnostic.Error
			require.ErrorAs(t, err, &de)
			assert.Equal(t, tt.field, de.Field)
		})
	}
}

func TestBuilder_DuplicateKeyInYAML(t *testing.T) {
	var tree Tree
	err := yaml.Unmarshal([]byte("kind: A\nx: int\nx: str\n"), &tree)
	require.ErrorIs(t, err, diagnostic.ErrDuplicateField)
}

func TestBuilder_PermissionError(t *testing.T) {
	b := NewBuilder(log.Discard{})

	_, err := b.Build(Caller("adhoc"), NewTree("kind", "A"), false)
	require.ErrorIs(t, err, diagnostic.ErrPermission)
	assert.Empty(t, b.Types())
}

func TestBuilder_XRef(t *testing.T) {
	b := NewBuilder(log.NewTesting(t))

	src, err := b.Build(CallerRegisterModel, NewTree(
		"kind", "Src",
		"uri", "str#req",
		"limit", "int=5",
		"nested", NewTree("kind", "N", "a", "int"),
	), false)
	require.NoError(t, err)

	rt, err := b.Build(CallerRegisterModel, NewTree(
		"kind", "View",
		"source", "xref=Src#req",
		"sources", "xref=src#list",
	), false)
	require.NoError(t, err)

	source, ok := rt.Field("source")
	require.True(t, ok)
	assert.Equal(t, ValueRecord, source.Value)
	assert.True(t, source.Required)
	assert.Equal(t, []string{"uri", "limit"}, source.Record.Names())
	assert.NotSame(t, src, source.Record)

	limit, _ := source.Record.Field("limit")
	assert.Equal(t, int64(5), limit.Default)

	sources, _ := rt.Field("sources")
	assert.Equal(t, ValueSequence, sources.Value)
	assert.False(t, sources.Required)

	assert.Equal(t, []string{"Src"}, rt.Dependencies())
}

func TestBuilder_UnresolvedXRefIsDropped(t *testing.T) {
	b := NewBuilder(log.Discard{})

	rt, err := b.Build(CallerRegisterModel, NewTree("kind", "View", "source", "xref=Nope", "name", "str"), false)
	require.NoError(t, err)

	_, ok := rt.Field("source")
	assert.False(t, ok)

	_, ok = rt.Field("name")
	assert.True(t, ok)

	diags := b.Diagnostics()
	require.Len(t, diags.Warnings, 1)
	assert.Equal(t, diagnostic.CodeUnresolvedXRef, diags.Warnings[0].Code)
	assert.Equal(t, "source", diags.Warnings[0].Field)
}

func TestBuilder_OpenKind(t *testing.T) {
	b := NewBuilder(log.Discard{})

	rt, err := b.Build(CallerRegisterModel, NewTree("kind", "Env#open", "models", "str#list"), false)
	require.NoError(t, err)

	assert.Equal(t, "Env", rt.Kind)
	assert.False(t, rt.Strict)
}

func TestBuilder_SequenceEdgeCases(t *testing.T) {
	b := NewBuilder(log.Discard{})

	rt, err := b.Build(CallerRegisterModel, NewTree(
		"kind", "A",
		"empty", []Node{},
		"nested", []Node{SeqNode(SpecNode("int"))},
	), false)
	require.NoError(t, err)

	empty, _ := rt.Field("empty")
	assert.Equal(t, "list[any]", empty.Meta.DType)

	nested, _ := rt.Field("nested")
	assert.Equal(t, "list[any]", nested.Meta.DType)
}

func TestBuilder_IgnoredTokensAreReported(t *testing.T) {
	b := NewBuilder(log.Discard{})

	_, err := b.Build(CallerRegisterModel, NewTree("kind", "A", "x", "int#widget=slider"), false)
	require.NoError(t, err)

	diags := b.Diagnostics()
	require.Len(t, diags.Warnings, 1)
	assert.Equal(t, diagnostic.CodeIgnoredToken, diags.Warnings[0].Code)
}

func TestDependencies(t *testing.T) {
	tree := decodeTree(t, `
kind: A
x: xref=B#req
sub:
  kind: S
  y: xref=C
list:
  - kind: L
    z: xref=B
`)

	assert.Equal(t, []string{"B", "C"}, Dependencies(tree))
}

func TestSplitKind(t *testing.T) {
	name, mods := SplitKind(" Widget#req#open ")
	assert.Equal(t, "Widget", name)
	assert.True(t, mods.Required)
	assert.True(t, mods.Open)

	name, mods = SplitKind("Plain")
	assert.Equal(t, "Plain", name)
	assert.Equal(t, KindModifiers{}, mods)
}
