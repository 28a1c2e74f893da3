package keyed

import (
	"slices"
	"sync"
)

// MemoryStore is an in-memory Store that keeps insertion order per category.
type MemoryStore struct {
	mu         sync.RWMutex
	categories map[string]*partition
	order      []string
}

// partition holds one category. Overwriting a key keeps its position.
type partition struct {
	keys    []string
	entries map[string][]byte
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		categories: make(map[string]*partition),
	}
}

// Insert upserts value at key and returns a copy of the stored value.
func (s *MemoryStore) Insert(category, key string, value []byte) []byte {
	stored := clone(value)

	s.mu.Lock()
	p, ok := s.categories[category]
	if !ok {
		p = &partition{entries: make(map[string][]byte)}
		s.categories[category] = p
		s.order = append(s.order, category)
	}
	if _, exists := p.entries[key]; !exists {
		p.keys = append(p.keys, key)
	}
	p.entries[key] = stored
	s.mu.Unlock()

	return clone(stored)
}

// Search returns the value at key. Returns (nil, false) on miss.
func (s *MemoryStore) Search(category, key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.categories[category]
	if !ok {
		return nil, false
	}
	value, ok := p.entries[key]
	if !ok {
		return nil, false
	}
	return clone(value), true
}

// Locate returns the first value in insertion order accepted by match.
// match runs without the store lock held, on a snapshot of the category.
func (s *MemoryStore) Locate(category string, match func(key string, value []byte) bool) ([]byte, bool) {
	for _, e := range s.entries(category) {
		if match(e.Key, e.Value) {
			return e.Value, true
		}
	}
	return nil, false
}

// Exists reports whether any entry in category is accepted by match.
func (s *MemoryStore) Exists(category string, match func(key string, value []byte) bool) bool {
	_, ok := s.Locate(category, match)
	return ok
}

// Remove deletes key and returns its prior value.
func (s *MemoryStore) Remove(category, key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.categories[category]
	if !ok {
		return nil, false
	}
	value, ok := p.entries[key]
	if !ok {
		return nil, false
	}

	delete(p.entries, key)
	p.keys = slices.DeleteFunc(p.keys, func(k string) bool { return k == key })
	if len(p.entries) == 0 {
		s.dropLocked(category)
	}
	return value, true
}

// Gather returns every value in category in insertion order.
func (s *MemoryStore) Gather(category string) [][]byte {
	entries := s.entries(category)
	values := make([][]byte, 0, len(entries))
	for _, e := range entries {
		values = append(values, e.Value)
	}
	return values
}

// Excise removes every key in category.
func (s *MemoryStore) Excise(category string) {
	s.mu.Lock()
	s.dropLocked(category)
	s.mu.Unlock()
}

// Length returns the number of keys in category.
func (s *MemoryStore) Length(category string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.categories[category]
	if !ok {
		return 0
	}
	return len(p.keys)
}

// Categories returns the names of all non-empty categories in creation order.
func (s *MemoryStore) Categories() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.order)
}

// Keys returns the keys of category in insertion order.
func (s *MemoryStore) Keys(category string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.categories[category]
	if !ok {
		return nil
	}
	return slices.Clone(p.keys)
}

// Clear removes every category.
func (s *MemoryStore) Clear() {
	s.mu.Lock()
	s.categories = make(map[string]*partition)
	s.order = nil
	s.mu.Unlock()
}

func (s *MemoryStore) entries(category string) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.categories[category]
	if !ok {
		return nil
	}
	out := make([]Entry, 0, len(p.keys))
	for _, k := range p.keys {
		out = append(out, Entry{Key: k, Value: clone(p.entries[k])})
	}
	return out
}

func (s *MemoryStore) dropLocked(category string) {
	if _, ok := s.categories[category]; !ok {
		return
	}
	delete(s.categories, category)
	s.order = slices.DeleteFunc(s.order, func(c string) bool { return c == category })
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	return slices.Clone(b)
}

// Ensure MemoryStore implements Store
var _ Store = (*MemoryStore)(nil)
