package storage

import (
	"sort"
	"sync"

	"github.com/mohae/deepcopy"
)

// Store is the configuration store: string keys to arbitrary values, last
// writer wins. It is filled during startup and read afterwards; the RWMutex
// only makes late reads from request goroutines safe.
type Store struct {
	mu     sync.RWMutex
	values map[string]any
}

// New returns an empty store.
func New() *Store {
	return &Store{values: make(map[string]any)}
}

// Get returns the value stored under key.
func (s *Store) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[key]
	return v, ok
}

// String returns the value under key when it is a string.
func (s *Store) String(key string) (string, bool) {
	v, ok := s.Get(key)
	if !ok {
		return "", false
	}
	str, ok := v.(string)
	return str, ok
}

// Mapping returns the value under key when it is a nested mapping.
func (s *Store) Mapping(key string) (map[string]any, bool) {
	v, ok := s.Get(key)
	if !ok {
		return nil, false
	}
	m, ok := v.(map[string]any)
	return m, ok
}

// Has reports whether key is set. A key holding nil counts as set.
func (s *Store) Has(key string) bool {
	_, ok := s.Get(key)
	return ok
}

// Set stores value under key.
func (s *Store) Set(key string, value any) {
	s.mu.Lock()
	s.values[key] = value
	s.mu.Unlock()
}

// Update copies every top-level entry of values into the store. Nested
// mappings replace existing ones wholesale; they are not merged.
func (s *Store) Update(values map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, v := range values {
		s.values[k] = v
	}
}

// Keys returns the stored keys in sorted order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of keys.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.values)
}

// Snapshot returns a deep copy of the store contents.
func (s *Store) Snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out, _ := deepcopy.Copy(s.values).(map[string]any)
	if out == nil {
		out = make(map[string]any)
	}
	return out
}
