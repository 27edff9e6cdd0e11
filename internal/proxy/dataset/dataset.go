// Package dataset provides an in-memory tabular delegate that stands in for a
// real data source behind a proxy binding.
package dataset

import (
	"fmt"
	"hash/fnv"
	"maps"
	"slices"
	"sync"

	"github.com/pkg/errors"

	"xds/internal/proxy"
)

// Name is the proxy name the delegate registers under.
const Name = "DSProxy"

// Alias is the long proxy name accepted as well.
const Alias = "DataSourceProxy"

// DefaultRows is the table size when kws carries no rows value.
const DefaultRows = 50

// Row is one record of the table.
type Row map[string]any

// Stats summarizes the table.
type Stats struct {
	Rows    int
	Columns []string
	Head    []Row
}

// Source is a mock data source seeded from its namespace.
type Source struct {
	NS      string
	Columns []string

	mu   sync.RWMutex
	rows []Row
}

var baseColumns = []string{"id", "name", "status", "storypoint"}

var statuses = []string{"todo", "doing", "done"}

// Register adds the delegate to m under Name and Alias.
func Register(m *proxy.Map) {
	m.Register(Name, New)
	m.Register(Alias, New)
}

// New builds a source from the bound instance's fields. ns is required;
// rows sets the table size.
func New(kws map[string]any) (proxy.Delegate, error) {
	ns, _ := kws["ns"].(string)
	if ns == "" {
		return nil, errors.New("namespace for data source not provided")
	}

	n := DefaultRows

	switch v := kws["rows"].(type) {
	case int:
		n = v
	case int64:
		n = int(v)
	case float64:
		n = int(v)
	}

	if n < 0 {
		return nil, errors.Errorf("negative row count %d", n)
	}

	return Mock(ns, n), nil
}

// Mock returns a deterministic table of n rows for ns.
func Mock(ns string, n int) *Source {
	h := fnv.New32a()
	_, _ = h.Write([]byte(ns))
	seed := int(h.Sum32() % 97)

	rows := make([]Row, n)
	for i := range rows {
		rows[i] = Row{
			"id":         int64(i + 1),
			"name":       fmt.Sprintf("%s-%03d", ns, i+1),
			"status":     statuses[(seed+i)%len(statuses)],
			"storypoint": int64((seed+i*7)%13 + 1),
		}
	}

	return &Source{NS: ns, Columns: slices.Clone(baseColumns), rows: rows}
}

// Exports lists the members republished on a bound instance.
func (s *Source) Exports() []string {
	return []string{"rows", "columns", "filter", "stats", "increment"}
}

// Rows returns a copy of the table.
func (s *Source) Rows() []Row {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return cloneRows(s.rows)
}

// Filter returns the rows whose columns equal every value in where.
func (s *Source) Filter(where map[string]any) []Row {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Row

	for _, r := range s.rows {
		if matches(r, where) {
			out = append(out, clone(r))
		}
	}

	return out
}

// Stats reports the row count, columns and the first ten rows.
func (s *Source) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	head := s.rows[:min(10, len(s.rows))]

	return Stats{
		Rows:    len(s.rows),
		Columns: slices.Clone(s.Columns),
		Head:    cloneRows(head),
	}
}

// Increment adds the processed column, twice the storypoint, and returns
// the updated table.
func (s *Source) Increment() []Row {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.rows {
		sp, _ := r["storypoint"].(int64)
		r["processed"] = sp * 2
	}

	if !slices.Contains(s.Columns, "processed") {
		s.Columns = append(s.Columns, "processed")
	}

	return cloneRows(s.rows)
}

func matches(r Row, where map[string]any) bool {
	for k, want := range where {
		got, ok := r[k]
		if !ok || fmt.Sprint(got) != fmt.Sprint(want) {
			return false
		}
	}

	return true
}

func clone(r Row) Row { return maps.Clone(r) }

func cloneRows(rows []Row) []Row {
	out := make([]Row, len(rows))
	for i, r := range rows {
		out[i] = clone(r)
	}

	return out
}
