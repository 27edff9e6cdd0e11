package schema

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"xds/internal/common"
	"xds/internal/diagnostic"
)

// KindKey is the mandatory key naming a tree's record kind.
const KindKey = "kind"

// NodeKind tells which of the Node variants is set.
type NodeKind int

const (
	NodeSpec NodeKind = iota
	NodeTree
	NodeSeq
)

// Node is one value of a specification tree: a spec string, a nested tree or
// a sequence of nodes.
type Node struct {
	Kind NodeKind
	Spec string
	Tree *Tree
	Seq  []Node
}

// Entry is a key with its value, in declaration order.
type Entry struct {
	Key   string
	Value Node
}

// Tree is an ordered specification mapping.
type Tree struct {
	Entries []Entry
}

// SpecNode returns a scalar node.
func SpecNode(spec string) Node { return Node{Kind: NodeSpec, Spec: spec} }

// TreeNode returns a nested mapping node.
func TreeNode(t *Tree) Node { return Node{Kind: NodeTree, Tree: t} }

// SeqNode returns a sequence node.
func SeqNode(items ...Node) Node { return Node{Kind: NodeSeq, Seq: items} }

// NewTree builds a tree from alternating key, value pairs. Values may be
// strings, *Tree, Node or []Node.
func NewTree(kv ...any) *Tree {
	t := &Tree{}

	for i := 0; i+1 < len(kv); i += 2 {
		key := fmt.Sprint(kv[i])

		switch v := kv[i+1].(type) {
		case Node:
			t.Set(key, v)
		case *Tree:
			t.Set(key, TreeNode(v))
		case []Node:
			t.Set(key, SeqNode(v...))
		default:
			t.Set(key, SpecNode(fmt.Sprint(v)))
		}
	}

	return t
}

// Get returns the value stored under key.
func (t *Tree) Get(key string) (Node, bool) {
	if t == nil {
		return Node{}, false
	}

	i := slices.IndexFunc(t.Entries, func(e Entry) bool { return e.Key == key })
	if i < 0 {
		return Node{}, false
	}

	return t.Entries[i].Value, true
}

// Set replaces the value under key or appends a new entry.
func (t *Tree) Set(key string, v Node) {
	i := slices.IndexFunc(t.Entries, func(e Entry) bool { return e.Key == key })
	if i >= 0 {
		t.Entries[i].Value = v
		return
	}

	t.Entries = append(t.Entries, Entry{Key: key, Value: v})
}

// Keys returns the keys in declaration order.
func (t *Tree) Keys() []string {
	keys := make([]string, len(t.Entries))
	for i, e := range t.Entries {
		keys[i] = e.Key
	}

	return keys
}

// Kind returns the raw kind value including any '#' modifiers, or "".
func (t *Tree) Kind() string {
	n, ok := t.Get(KindKey)
	if !ok || n.Kind != NodeSpec {
		return ""
	}

	return strings.TrimSpace(n.Spec)
}

// Fingerprint identifies the tree's content; equal trees have equal fingerprints.
func (t *Tree) Fingerprint() string {
	var b strings.Builder

	t.canonical(&b)

	sum := sha256.Sum256([]byte(b.String()))

	return hex.EncodeToString(sum[:])
}

func (t *Tree) canonical(b *strings.Builder) {
	b.WriteByte('{')

	for _, e := range t.Entries {
		b.WriteString(strconv.Quote(e.Key))
		b.WriteByte(':')
		e.Value.canonical(b)
		b.WriteByte(';')
	}

	b.WriteByte('}')
}

func (n Node) canonical(b *strings.Builder) {
	switch n.Kind {
	case NodeTree:
		n.Tree.canonical(b)
	case NodeSeq:
		b.WriteByte('[')

		for _, item := range n.Seq {
			item.canonical(b)
			b.WriteByte(',')
		}

		b.WriteByte(']')
	default:
		b.WriteString(strconv.Quote(n.Spec))
	}
}

// UnmarshalYAML decodes a mapping node keeping key order. Duplicate keys are
// rejected.
func (t *Tree) UnmarshalYAML(node *yaml.Node) error {
	tree, err := treeFromYAML(node)
	if err != nil {
		return err
	}

	*t = *tree

	return nil
}

func treeFromYAML(node *yaml.Node) (*Tree, error) {
	node = resolveYAML(node)

	if node.Kind != yaml.MappingNode {
		return nil, errors.Errorf("line %d: expected a mapping, got %s", node.Line, yamlKindName(node.Kind))
	}

	t := &Tree{Entries: make([]Entry, 0, len(node.Content)/2)}
	seen := make(map[string]bool, len(node.Content)/2)

	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		if seen[key] {
			return nil, diagnostic.Errorf(diagnostic.CodeDuplicateField, t.Kind(), key,
				"line %d: key declared twice", node.Content[i].Line)
		}

		seen[key] = true

		v, err := nodeFromYAML(node.Content[i+1])
		if err != nil {
			return nil, errors.Wrapf(err, "%s", key)
		}

		t.Entries = append(t.Entries, Entry{Key: key, Value: v})
	}

	return t, nil
}

func nodeFromYAML(node *yaml.Node) (Node, error) {
	node = resolveYAML(node)

	switch node.Kind {
	case yaml.MappingNode:
		t, err := treeFromYAML(node)
		if err != nil {
			return Node{}, err
		}

		return TreeNode(t), nil

	case yaml.SequenceNode:
		items := make([]Node, 0, len(node.Content))

		for i, c := range node.Content {
			item, err := nodeFromYAML(c)
			if err != nil {
				return Node{}, errors.Wrapf(err, "[%d]", i)
			}

			items = append(items, item)
		}

		return SeqNode(items...), nil

	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			return SpecNode(""), nil
		}

		return SpecNode(node.Value), nil
	}

	return Node{}, errors.Errorf("line %d: unsupported %s", node.Line, yamlKindName(node.Kind))
}

func resolveYAML(node *yaml.Node) *yaml.Node {
	for {
		switch {
		case node.Kind == yaml.DocumentNode && len(node.Content) > 0:
			node = node.Content[0]
		case node.Kind == yaml.AliasNode && node.Alias != nil:
			node = node.Alias
		default:
			return node
		}
	}
}

func yamlKindName(k yaml.Kind) string {
	switch k {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return common.UnknownStr
	}
}

// FromMap converts a decoded map into a tree. Keys are sorted with kind
// first, since map order is lost.
func FromMap(m map[string]any) (*Tree, error) {
	keys := common.SortedKeys(m)
	if i := slices.Index(keys, KindKey); i > 0 {
		keys = slices.Insert(slices.Delete(keys, i, i+1), 0, KindKey)
	}

	t := &Tree{Entries: make([]Entry, 0, len(keys))}

	for _, k := range keys {
		n, err := nodeFromAny(m[k])
		if err != nil {
			return nil, errors.Wrapf(err, "%s", k)
		}

		t.Entries = append(t.Entries, Entry{Key: k, Value: n})
	}

	return t, nil
}

func nodeFromAny(v any) (Node, error) {
	switch x := v.(type) {
	case nil:
		return SpecNode(""), nil
	case string:
		return SpecNode(x), nil
	case map[string]any:
		t, err := FromMap(x)
		if err != nil {
			return Node{}, err
		}

		return TreeNode(t), nil
	case []any:
		items := make([]Node, 0, len(x))

		for i, item := range x {
			n, err := nodeFromAny(item)
			if err != nil {
				return Node{}, errors.Wrapf(err, "[%d]", i)
			}

			items = append(items, n)
		}

		return SeqNode(items...), nil
	case *Tree:
		return TreeNode(x), nil
	case bool, int, int64, float64:
		return SpecNode(fmt.Sprint(x)), nil
	}

	return Node{}, errors.Errorf("unsupported value %T", v)
}

// ToMap converts the tree back into plain maps, slices and strings.
func (t *Tree) ToMap() map[string]any {
	m := make(map[string]any, len(t.Entries))
	for _, e := range t.Entries {
		m[e.Key] = e.Value.toAny()
	}

	return m
}

func (n Node) toAny() any {
	switch n.Kind {
	case NodeTree:
		return n.Tree.ToMap()
	case NodeSeq:
		out := make([]any, len(n.Seq))
		for i, item := range n.Seq {
			out[i] = item.toAny()
		}

		return out
	default:
		return n.Spec
	}
}
