package memory

import (
	"sort"
	"sync"
)

// Store is a process-local set of Shared providers keyed by name.
//
// Concurrency: protected by RWMutex.
type Store struct {
	mu     sync.RWMutex
	shared map[string]*Shared
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{shared: make(map[string]*Shared)}
}

// Shared returns the provider for key, creating it on first use.
func (m *Store) Shared(key string) *Shared {
	m.mu.RLock()
	s, ok := m.shared[key]
	m.mu.RUnlock()
	if ok {
		return s
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.shared[key]; ok {
		return s
	}

	s = NewShared()
	m.shared[key] = s

	return s
}

// Provider returns a Provider for key according to policy.
func (m *Store) Provider(key string, policy Policy) Provider {
	if policy == PolicyShared {
		return m.Shared(key)
	}
	return NewPrivate()
}

// Reset drops the shared conversation stored under key, if any.
func (m *Store) Reset(key string) {
	m.mu.RLock()
	s, ok := m.shared[key]
	m.mu.RUnlock()
	if ok {
		s.Reset()
	}
}

// Keys returns the keys of all shared providers, sorted.
func (m *Store) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.shared))
	for k := range m.shared {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return keys
}
