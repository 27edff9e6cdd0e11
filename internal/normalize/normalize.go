package normalize

import (
	"maps"
	"slices"
	"strconv"
	"strings"

	"xds/internal/common"
	"xds/internal/schema"
)

// Marker is a placeholder value produced by normalization.
type Marker struct{ name string }

func (m Marker) String() string { return "<" + m.name + ">" }

// Missing stands in for a required field that was neither supplied nor
// defaulted. Construction rejects it.
var Missing = Marker{"missing"}

// bag keys accepted on input
var bagKeys = []string{schema.FieldKws, "kwargs"}

// Result is the normalized input of one construction.
type Result struct {
	// Values holds every declared top-level field. The kws field, when
	// declared, carries Extras.
	Values map[string]any
	// Extras holds every leaf not matched by a declared field, keyed by
	// dotted path.
	Extras map[string]any
	// Strays are the Extras paths that a strict type does not accept: keys
	// inside strict nested records, and unknown top-level keys of a strict
	// type that were not passed through the kws bag.
	Strays []string
}

// Normalize reconciles dotted keys, the kws/kwargs bag and nested maps of
// raw into a single structure restricted to rt's declared fields, filling
// defaults. Nothing supplied is dropped: leftovers end up in Extras.
//
// Falsy top-level entries (nil, "", 0, false, empty collections) count as
// absent. Normalizing a Result's Values again yields the same Values.
func Normalize(rt *schema.RecordType, raw map[string]any) *Result {
	res := &Result{Values: map[string]any{}, Extras: map[string]any{}}

	flat := map[string]any{}

	for _, k := range common.SortedKeys(raw) {
		v := raw[k]
		if common.IsFalsy(v) {
			continue
		}

		root := SplitPath(k)
		if len(root) > 0 && slices.Contains(bagKeys, root[0]) {
			// a bare value has no key of its own; it is kept under kws
			if _, isMap := v.(map[string]any); !isMap && len(root) == 1 {
				res.Extras[schema.FieldKws] = v
				continue
			}

			root[0] = Prefix
		}

		flatten(root, v, func(p Path, leaf any) { flat[p.Flat()] = leaf })
	}

	direct := map[string]any{}
	bag := map[string]any{}

	for _, k := range common.SortedKeys(flat) {
		key := collapse(k)
		if rest, ok := strings.CutPrefix(key, Prefix+Delimiter); ok {
			bag[rest] = flat[k]
			continue
		}

		direct[key] = flat[k]
	}

	tree, conflicts := Unflatten(direct)
	fromBag := map[string]bool{}

	for _, k := range common.SortedKeys(bag) {
		p := SplitPath(k)
		if !insert(tree, p, bag[k]) {
			conflicts[p.Dotted()] = bag[k]
			continue
		}

		fromBag[p.Dotted()] = true
	}

	maps.Copy(res.Extras, conflicts)

	for _, f := range rt.Fields() {
		if f.Name == schema.FieldKws {
			continue
		}

		v, present := tree[f.Name]
		delete(tree, f.Name)

		if !present {
			res.Values[f.Name] = defaultFor(f, res, Path{f.Name})
			continue
		}

		res.Values[f.Name] = shape(f, v, res, Path{f.Name})
	}

	for _, k := range common.SortedKeys(tree) {
		flatten(SplitPath(k), tree[k], func(p Path, leaf any) {
			dotted := p.Dotted()
			res.Extras[dotted] = leaf

			if rt.Strict && !fromBag[dotted] {
				res.Strays = append(res.Strays, dotted)
			}
		})
	}

	if _, ok := rt.Field(schema.FieldKws); ok {
		res.Values[schema.FieldKws] = maps.Clone(res.Extras)
	}

	return res
}

// collapse folds doubled bag prefixes left over from re-flattening an
// already flat bag.
func collapse(key string) string {
	for {
		folded := false

		for _, bk := range append([]string{Prefix}, bagKeys...) {
			if rest, ok := strings.CutPrefix(key, Prefix+Delimiter+bk+Delimiter); ok {
				key = Prefix + Delimiter + rest
				folded = true
			}
		}

		if !folded {
			return key
		}
	}
}

func shape(f *schema.FieldDefinition, v any, res *Result, path Path) any {
	switch f.Value {
	case schema.ValueRecord:
		if m, ok := v.(map[string]any); ok {
			return record(f.Record, m, res, path)
		}

	case schema.ValueSequence:
		items, ok := sequence(v)
		if !ok {
			return v
		}

		out := make([]any, len(items))

		for i, item := range items {
			if m, ok := item.(map[string]any); ok {
				out[i] = record(f.Record, m, res, path.Child(strconv.Itoa(i)))
				continue
			}

			out[i] = item
		}

		return out

	default:
		if s, ok := v.(string); ok && f.Spec != nil && f.Spec.List() {
			parts := common.SplitList(s)
			out := make([]any, len(parts))

			for i, p := range parts {
				out[i] = p
			}

			return out
		}
	}

	return v
}

// sequence returns the elements of a sequence field's value. A lone mapping
// is one element, unless all of its keys are indices, as dotted input like
// joins.0.on unflattens to {"0": {...}}.
func sequence(v any) ([]any, bool) {
	switch x := v.(type) {
	case []any:
		return x, true
	case map[string]any:
		keys := make([]string, 0, len(x))
		idx := make(map[string]int, len(x))

		for k := range x {
			i, err := strconv.Atoi(k)
			if err != nil || i < 0 {
				return []any{x}, true
			}

			keys = append(keys, k)
			idx[k] = i
		}

		slices.SortFunc(keys, func(a, b string) int { return idx[a] - idx[b] })

		items := make([]any, len(keys))
		for n, k := range keys {
			items[n] = x[k]
		}

		return items, true
	}

	return nil, false
}

// record normalizes a nested object. Unknown keys stay in place on open types
// and are moved to Extras as strays on strict ones.
func record(rt *schema.RecordType, m map[string]any, res *Result, path Path) map[string]any {
	out := make(map[string]any, len(m))
	rest := maps.Clone(m)

	for _, f := range rt.Fields() {
		v, present := rest[f.Name]
		delete(rest, f.Name)

		if !present {
			out[f.Name] = defaultFor(f, res, path.Child(f.Name))
			continue
		}

		out[f.Name] = shape(f, v, res, path.Child(f.Name))
	}

	for _, k := range common.SortedKeys(rest) {
		if !rt.Strict {
			out[k] = rest[k]
			continue
		}

		flatten(path.Child(k), rest[k], func(p Path, leaf any) {
			res.Extras[p.Dotted()] = leaf
			res.Strays = append(res.Strays, p.Dotted())
		})
	}

	return out
}

func defaultFor(f *schema.FieldDefinition, res *Result, path Path) any {
	switch {
	case f.HasDefault:
		if l, ok := f.Default.([]any); ok {
			return slices.Clone(l)
		}

		if m, ok := f.Default.(map[string]any); ok {
			return maps.Clone(m)
		}

		return f.Default

	case f.Value == schema.ValueRecord && f.Required:
		return record(f.Record, map[string]any{}, res, path)

	case f.Required:
		return Missing
	}

	return nil
}
