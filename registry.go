package scenetwin

import (
	"iter"
	"maps"
	"slices"
	"sync"
)

// Registry correlates tag names with the wrappers that replaced them. It holds
// one wrapper per tag for the lifetime of a session.
//
// Only the owning Reconciler writes to a Registry, and only while it takes over
// a scene. Readers may use it from any goroutine.
type Registry struct {
	mu sync.RWMutex
	m  map[string]Object
}

func newRegistry() *Registry {
	return &Registry{m: make(map[string]Object)}
}

// Find looks up the wrapper registered under tag. If the tag is not bound, Find
// indicates that by returning ok == false.
//
// Find is safe for concurrent use.
func (r *Registry) Find(tag string) (obj Object, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	obj, ok = r.m[tag]
	return obj, ok
}

// Len returns the number of bound tags.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.m)
}

// Tags returns the bound tag names in ascending order.
func (r *Registry) Tags() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.m))
}

// All yields every bound tag and its wrapper in ascending tag order. It works on
// a snapshot, so the loop body may call back into the registry.
func (r *Registry) All() iter.Seq2[string, Object] {
	r.mu.RLock()
	snapshot := maps.Clone(r.m)
	r.mu.RUnlock()
	return func(yield func(string, Object) bool) {
		for _, tag := range slices.Sorted(maps.Keys(snapshot)) {
			if !yield(tag, snapshot[tag]) {
				return
			}
		}
	}
}

func (r *Registry) bind(tag string, obj Object) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[tag] = obj
}
