package schema

import (
	"slices"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"xds/internal/common"
	"xds/internal/diagnostic"
	"xds/internal/fieldspec"
	"xds/internal/log"
	"xds/internal/match"
)

// Caller identifies who asks the builder for a type. Only allow-listed callers
// may synthesize types.
type Caller string

const (
	CallerRegisterModel Caller = "register_model"
	CallerEnrichment    Caller = "enrichment"
)

var allowedCallers = map[Caller]bool{
	CallerRegisterModel: true,
	CallerEnrichment:    true,
}

// KindModifiers are the '#' suffixes of a kind value.
type KindModifiers struct {
	// Required marks the type as a required field where it is nested.
	Required bool
	// Open keeps unknown keys instead of rejecting them.
	Open bool
}

// SplitKind separates "Name#req#open" into the name and its modifiers.
func SplitKind(raw string) (string, KindModifiers) {
	var mods KindModifiers

	name, rest, _ := strings.Cut(raw, "#")

	for tok := range strings.SplitSeq(rest, "#") {
		switch strings.ToLower(strings.TrimSpace(tok)) {
		case "req", "required":
			mods.Required = true
		case "open":
			mods.Open = true
		}
	}

	return strings.TrimSpace(name), mods
}

// Builder turns specification trees into record types and caches top-level
// types by kind.
type Builder struct {
	mu    sync.Mutex
	cache map[string]*RecordType
	diags diagnostic.Diagnostics
	log   log.Logger
}

// NewBuilder creates a builder logging to l.
func NewBuilder(l log.Logger) *Builder {
	return &Builder{
		cache: map[string]*RecordType{},
		log:   log.Or(l),
	}
}

// Build creates the record type for tree. Top-level builds (child false)
// gain the system fields and are cached: building the same kind from an
// identical tree again returns the cached type.
func (b *Builder) Build(caller Caller, tree *Tree, child bool) (*RecordType, error) {
	if !allowedCallers[caller] {
		return nil, diagnostic.Errorf(diagnostic.CodePermission, tree.Kind(), "",
			"caller %q may not build record types", caller)
	}

	if tree == nil {
		return nil, diagnostic.Errorf(diagnostic.CodeKindRequired, "", "", "no specification tree")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	return b.build(tree, child)
}

// Lookup returns a cached top-level type by kind, ignoring case.
func (b *Builder) Lookup(kind string) (*RecordType, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	rt, ok := b.cache[strings.ToLower(kind)]

	return rt, ok
}

// Types returns the cached types sorted by kind.
func (b *Builder) Types() []*RecordType {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]*RecordType, 0, len(b.cache))
	for _, k := range common.SortedKeys(b.cache) {
		out = append(out, b.cache[k])
	}

	return out
}

// Diagnostics returns the warnings collected so far.
func (b *Builder) Diagnostics() diagnostic.Diagnostics {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.diags
}

func (b *Builder) build(tree *Tree, child bool) (*RecordType, error) {
	name, mods := SplitKind(tree.Kind())
	if name == "" {
		return nil, diagnostic.Errorf(diagnostic.CodeKindRequired, "", "", "specification tree has no kind")
	}

	fp := tree.Fingerprint()
	key := strings.ToLower(name)

	if !child {
		if cached, ok := b.cache[key]; ok {
			if cached.fingerprint == fp {
				return cached, nil
			}

			return nil, diagnostic.Errorf(diagnostic.CodeDuplicateType, name, "",
				"kind already built from a different specification")
		}
	}

	rt := newRecordType(name, child)
	rt.fingerprint = fp
	rt.Required = mods.Required
	rt.Strict = !mods.Open

	if !child {
		for _, f := range systemFields(name) {
			rt.add(f)
		}
	}

	for _, e := range tree.Entries {
		if e.Key == KindKey || e.Key == "" {
			continue
		}

		f, err := b.field(rt, e)
		if err != nil {
			return nil, attribute(err, name, e.Key)
		}

		if f == nil {
			continue
		}

		if !rt.add(f) {
			return nil, diagnostic.Errorf(diagnostic.CodeDuplicateField, name, e.Key, "field declared twice")
		}

		if f.Record != nil {
			rt.deps = append(rt.deps, f.Record.deps...)
		}
	}

	slices.Sort(rt.deps)
	rt.deps = slices.Compact(rt.deps)

	if !child {
		b.cache[key] = rt
		b.log.Debug("built record type", "kind", name, "fields", rt.Len())
	}

	return rt, nil
}

func (b *Builder) field(rt *RecordType, e Entry) (*FieldDefinition, error) {
	switch e.Value.Kind {
	case NodeTree:
		child, err := b.build(e.Value.Tree, true)
		if err != nil {
			return nil, err
		}

		return recordField(e.Key, child, ValueRecord), nil

	case NodeSeq:
		return b.seqField(rt, e)
	}

	if IsXRef(e.Value.Spec) {
		return b.xrefField(rt, e.Key, e.Value.Spec)
	}

	fs, err := fieldspec.ParseField(e.Key, e.Value.Spec)
	if err != nil {
		return nil, err
	}

	b.noteIgnored(rt.Kind, e.Key, fs)

	return scalarField(e.Key, fs), nil
}

// seqField assumes a homogeneous sequence: the first element decides the
// element type.
func (b *Builder) seqField(rt *RecordType, e Entry) (*FieldDefinition, error) {
	first, ok := common.First(e.Value.Seq)
	if !ok || first.Kind == NodeSeq {
		fs, err := fieldspec.ParseField(e.Key, "any#list")
		if err != nil {
			return nil, err
		}

		return scalarField(e.Key, fs), nil
	}

	if first.Kind == NodeTree {
		child, err := b.build(first.Tree, true)
		if err != nil {
			return nil, err
		}

		return recordField(e.Key, child, ValueSequence), nil
	}

	fs, err := fieldspec.ParseField(e.Key, first.Spec+"#list")
	if err != nil {
		return nil, err
	}

	b.noteIgnored(rt.Kind, e.Key, fs)

	return scalarField(e.Key, fs), nil
}

// xrefField inlines the spec strings of an already built type. A reference
// to a type not built yet is dropped with a warning.
func (b *Builder) xrefField(rt *RecordType, name, spec string) (*FieldDefinition, error) {
	fs, err := fieldspec.ParseField(name, spec)
	if err != nil {
		return nil, err
	}

	ref, _ := SplitKind(fs.XRef())

	target, ok := b.cache[strings.ToLower(ref)]
	if !ok {
		b.diags.AddWarning(diagnostic.CodeUnresolvedXRef, "cross reference to unknown kind "+ref, rt.Kind, name)
		b.log.Warn("dropping unresolved cross reference", "kind", rt.Kind, "field", name, "ref", ref)

		return nil, nil
	}

	child, err := b.enrich(target)
	if err != nil {
		return nil, err
	}

	vk := ValueRecord
	if fs.List() {
		vk = ValueSequence
	}

	f := recordField(name, child, vk)
	f.Required = fs.Required()
	f.Meta.Spec = spec
	f.Meta.UX = fs.UX

	rt.deps = append(rt.deps, target.Kind)

	return f, nil
}

// enrich builds an uncached child type out of the spec strings of target's
// non-system fields.
func (b *Builder) enrich(target *RecordType) (*RecordType, error) {
	child := newRecordType(target.Kind, true)
	child.Strict = target.Strict
	child.fingerprint = target.fingerprint

	for _, f := range target.fields {
		if f.System || f.Meta.Spec == "" || f.Value != ValueScalar {
			continue
		}

		fs, err := fieldspec.ParseField(f.Name, f.Meta.Spec)
		if err != nil {
			return nil, err
		}

		child.add(scalarField(f.Name, fs))
	}

	return child, nil
}

func (b *Builder) noteIgnored(kind, field string, fs *fieldspec.FieldSpec) {
	for _, tok := range fs.Ignored {
		b.diags.AddWarning(diagnostic.CodeIgnoredToken, "ignored token "+tok, kind, field)
		b.log.Debug("ignored spec token", "kind", kind, "field", field, "token", tok)
	}
}

func scalarField(name string, fs *fieldspec.FieldSpec) *FieldDefinition {
	return &FieldDefinition{
		Name:       name,
		Value:      ValueScalar,
		Spec:       fs,
		Required:   fs.Required(),
		Default:    fs.Default,
		HasDefault: fs.HasDefault,
		Meta: Meta{
			Title:   match.Title(name),
			VarName: match.VarName(name),
			DType:   fs.DType(),
			Spec:    fs.Raw,
			Flags:   common.SortedKeys(fs.Flags),
			UX:      fs.UX,
			Display: fs.Display,
		},
	}
}

func recordField(name string, rt *RecordType, vk ValueKind) *FieldDefinition {
	dtype := rt.Kind
	if vk == ValueSequence {
		dtype = "list[" + rt.Kind + "]"
	}

	return &FieldDefinition{
		Name:     name,
		Value:    vk,
		Record:   rt,
		Required: rt.Required,
		Meta: Meta{
			Title:   match.Title(name),
			VarName: match.VarName(name),
			DType:   dtype,
		},
	}
}

// attribute fills in the kind and field of a typed error raised below a field.
func attribute(err error, kind, field string) error {
	var de *diagnostic.Error
	if !errors.As(err, &de) {
		return err
	}

	c := *de.WithKind(kind)
	if c.Field == "" {
		c.Field = field
	}

	return &c
}

// IsXRef reports whether a spec string is a cross reference.
func IsXRef(spec string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(spec)), "xref=")
}

// Dependencies lists the kinds a tree cross-references, sorted and unique.
func Dependencies(tree *Tree) []string {
	var deps []string

	var walk func(n Node)

	walk = func(n Node) {
		switch n.Kind {
		case NodeTree:
			for _, e := range n.Tree.Entries {
				walk(e.Value)
			}
		case NodeSeq:
			for _, item := range n.Seq {
				walk(item)
			}
		default:
			if IsXRef(n.Spec) {
				_, ref, _ := strings.Cut(strings.TrimSpace(n.Spec), "=")
				name, _ := SplitKind(ref)
				deps = append(deps, name)
			}
		}
	}

	walk(TreeNode(tree))
	slices.Sort(deps)

	return slices.Compact(deps)
}
