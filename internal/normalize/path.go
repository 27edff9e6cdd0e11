package normalize

import (
	"strings"

	"xds/internal/common"
)

// Delimiter joins path segments in flattened keys. It differs from a plain
// dot so that dotted text inside values never splits a path.
const Delimiter = "__"

// Prefix marks flattened keys that came from the kws bag.
const Prefix = "kw"

// Path is a key path split into segments.
type Path []string

// SplitPath splits a key on dots and on Delimiter. Empty segments are dropped.
func SplitPath(key string) Path {
	key = strings.ReplaceAll(key, ".", Delimiter)

	var p Path

	for seg := range strings.SplitSeq(key, Delimiter) {
		if seg = strings.TrimSpace(seg); seg != "" {
			p = append(p, seg)
		}
	}

	return p
}

// Dotted joins the segments with dots, the form used in the kws bag.
func (p Path) Dotted() string { return strings.Join(p, ".") }

// Flat joins the segments with Delimiter.
func (p Path) Flat() string { return strings.Join(p, Delimiter) }

// Child returns a copy of p extended by seg.
func (p Path) Child(seg ...string) Path {
	c := make(Path, 0, len(p)+len(seg))
	c = append(c, p...)

	return append(c, seg...)
}

// flatten walks nested maps and calls fn for every leaf. Empty maps and all
// non-map values are leaves.
func flatten(prefix Path, v any, fn func(Path, any)) {
	m, ok := v.(map[string]any)
	if !ok || len(m) == 0 {
		fn(prefix, v)
		return
	}

	for _, k := range common.SortedKeys(m) {
		flatten(prefix.Child(SplitPath(k)...), m[k], fn)
	}
}

// Flatten returns every leaf of m keyed by its dotted path.
func Flatten(m map[string]any) map[string]any {
	out := map[string]any{}

	for _, k := range common.SortedKeys(m) {
		flatten(SplitPath(k), m[k], func(p Path, v any) { out[p.Dotted()] = v })
	}

	return out
}

// Unflatten nests dotted (or Delimiter-separated) keys. Keys are applied in
// sorted order; an entry that collides with an existing value is returned in
// conflicts under its dotted path instead.
func Unflatten(flat map[string]any) (nested, conflicts map[string]any) {
	nested = map[string]any{}
	conflicts = map[string]any{}

	for _, k := range common.SortedKeys(flat) {
		p := SplitPath(k)
		if !insert(nested, p, flat[k]) {
			conflicts[p.Dotted()] = flat[k]
		}
	}

	return nested, conflicts
}

// insert stores v at p, creating intermediate maps. It fails when p runs
// through a non-map value or the leaf is taken.
func insert(root map[string]any, p Path, v any) bool {
	if len(p) == 0 {
		return false
	}

	cur := root

	for _, seg := range p[:len(p)-1] {
		next, exists := cur[seg]
		if !exists {
			m := map[string]any{}
			cur[seg] = m
			cur = m

			continue
		}

		m, ok := next.(map[string]any)
		if !ok {
			return false
		}

		cur = m
	}

	leaf := p[len(p)-1]
	if existing, taken := cur[leaf]; taken {
		// an empty map placeholder can absorb a leaf of the same shape
		if m, ok := existing.(map[string]any); ok && len(m) == 0 {
			if vm, ok := v.(map[string]any); ok && len(vm) == 0 {
				return true
			}
		}

		return false
	}

	cur[leaf] = v

	return true
}
