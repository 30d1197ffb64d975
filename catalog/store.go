package catalog

import "sync"

// Store holds the catalog a running tracker reads from and lets a
// refresh loop swap in a newly downloaded one without stopping the
// tracker. Reads return the current catalog as-is; catalogs are never
// mutated after being stored, so holding one across a swap is safe.
type Store struct {
	mu      sync.RWMutex
	current *Catalog
	subs    []func(*Catalog)
}

// NewStore returns a store serving the initial catalog.
func NewStore(initial *Catalog) *Store {
	if initial == nil {
		initial = New()
	}
	return &Store{current: initial}
}

// Current returns the catalog most recently stored.
func (s *Store) Current() *Catalog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Swap replaces the current catalog and notifies subscribers.
func (s *Store) Swap(next *Catalog) {
	if next == nil {
		next = New()
	}
	s.mu.Lock()
	s.current = next
	subs := append([]func(*Catalog){}, s.subs...)
	s.mu.Unlock()

	// Notify outside the lock so a subscriber may call back in.
	for _, sub := range subs {
		sub(next)
	}
}

// Subscribe registers a callback invoked after every swap. It returns
// an unsubscribe function.
func (s *Store) Subscribe(fn func(*Catalog)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
	idx := len(s.subs) - 1

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if idx < 0 || idx >= len(s.subs) {
			return
		}
		s.subs = append(s.subs[:idx], s.subs[idx+1:]...)
		idx = -1
	}
}
