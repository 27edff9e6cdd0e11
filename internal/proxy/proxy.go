package proxy

import (
	"sync"

	"xds/internal/common"
)

// Delegate is the object a proxy binding forwards to. Exports names the
// members republished on the bound instance.
type Delegate interface {
	Exports() []string
}

// Constructor creates a delegate from an instance's full field set. A
// delegate is free to ignore keys it does not use.
type Constructor func(kws map[string]any) (Delegate, error)

// Map is the name to constructor table supplied by the embedding
// application.
type Map struct {
	mu    sync.RWMutex
	ctors map[string]Constructor
}

// NewMap creates an empty proxy map.
func NewMap() *Map {
	return &Map{ctors: make(map[string]Constructor)}
}

// Register adds or replaces a constructor.
func (m *Map) Register(name string, c Constructor) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ctors[name] = c
}

// Lookup returns the constructor registered under name.
func (m *Map) Lookup(name string) (Constructor, bool) {
	if m == nil {
		return nil, false
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.ctors[name]

	return c, ok
}

// Has returns true if a constructor with the given name exists.
func (m *Map) Has(name string) bool {
	_, ok := m.Lookup(name)
	return ok
}

// Names returns all registered names, sorted.
func (m *Map) Names() []string {
	if m == nil {
		return nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	return common.SortedKeys(m.ctors)
}
