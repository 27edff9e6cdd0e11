package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTree_YAMLKeepsOrder(t *testing.T) {
	tree := decodeTree(t, "kind: A\nzeta: int\nalpha: str\nnull_spec:\n")

	assert.Equal(t, []string{"kind", "zeta", "alpha", "null_spec"}, tree.Keys())
	assert.Equal(t, "A", tree.Kind())

	n, ok := tree.Get("null_spec")
	require.True(t, ok)
	assert.Equal(t, SpecNode(""), n)
}

func TestTree_YAMLAliases(t *testing.T) {
	tree := decodeTree(t, `
kind: A
base: &b
  kind: B
  x: int
copy: *b
`)

	n, ok := tree.Get("copy")
	require.True(t, ok)
	require.Equal(t, NodeTree, n.Kind)
	assert.Equal(t, "B", n.Tree.Kind())
}

func TestTree_FromMap(t *testing.T) {
	tree, err := FromMap(map[string]any{
		"b":    "int",
		"kind": "A",
		"a":    map[string]any{"kind": "Sub", "x": 1},
		"c":    []any{"str"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"kind", "a", "b", "c"}, tree.Keys())

	a, _ := tree.Get("a")
	x, _ := a.Tree.Get("x")
	assert.Equal(t, "1", x.Spec)

	assert.Equal(t, map[string]any{
		"kind": "A",
		"a":    map[string]any{"kind": "Sub", "x": "1"},
		"b":    "int",
		"c":    []any{"str"},
	}, tree.ToMap())

	_, err = FromMap(map[string]any{"kind": "A", "bad": struct{}{}})
	assert.Error(t, err)
}

func TestTree_Fingerprint(t *testing.T) {
	a := NewTree("kind", "A", "x", "int")
	b := NewTree("kind", "A", "x", "int")
	c := NewTree("kind", "A", "x", "str")

	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())

	// sequence and scalar with the same text differ
	d := NewTree("kind", "A", "x", []Node{SpecNode("int")})
	assert.NotEqual(t, a.Fingerprint(), d.Fingerprint())
}

func TestTree_Set(t *testing.T) {
	tree := NewTree("kind", "A")
	tree.Set("x", SpecNode("int"))
	tree.Set("x", SpecNode("str"))

	assert.Equal(t, []string{"kind", "x"}, tree.Keys())

	n, _ := tree.Get("x")
	assert.Equal(t, "str", n.Spec)
}
