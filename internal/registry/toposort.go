package registry

import (
	"slices"
	"sort"

	"xds/internal/diagnostic"
)

// orderModels returns names so that every model comes after the models it
// cross-references. deps(name) yields the referenced names; names outside
// the set are ignored.
//
// The result is deterministic: when several models are ready the smallest
// name goes first. A reference cycle is an InvalidSpec error naming the
// models left on it.
func orderModels(names []string, deps func(name string) []string) ([]string, error) {
	names = slices.Clone(names)
	slices.Sort(names)
	names = slices.Compact(names)

	index := make(map[string]int, len(names))
	for i, n := range names {
		index[n] = i
	}

	indeg := make([]int, len(names))
	out := make([][]int, len(names))

	for i, n := range names {
		for _, d := range deps(n) {
			j, ok := index[d]
			if !ok || j == i {
				continue
			}

			indeg[i]++
			out[j] = append(out[j], i)
		}
	}

	var ready []int

	for i := range names {
		if indeg[i] == 0 {
			ready = append(ready, i)
		}
	}

	order := make([]string, 0, len(names))

	for len(ready) > 0 {
		i := ready[0]
		ready = ready[1:]

		order = append(order, names[i])

		for _, j := range out[i] {
			indeg[j]--
			if indeg[j] == 0 {
				k := sort.SearchInts(ready, j)
				ready = slices.Insert(ready, k, j)
			}
		}
	}

	if len(order) != len(names) {
		var cycle []string

		for i, n := range names {
			if indeg[i] > 0 {
				cycle = append(cycle, n)
			}
		}

		return nil, diagnostic.Errorf(diagnostic.CodeInvalidSpec, cycle[0], "", "cross-reference cycle through %v", cycle)
	}

	return order, nil
}
