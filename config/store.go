package config

import (
	"slices"
	"sync"
)

// Store holds the current configuration value. Every holder of the same
// *Store sees the same value; a swap is visible to all of them at once and
// a reader never observes a half-replaced value.
//
// Published values are shared, so holders must treat them as read-only.
type Store[T any] struct {
	mu      sync.RWMutex
	value   *T
	version uint64

	lmu       sync.Mutex
	nextID    int
	listeners []listener[T]
}

type listener[T any] struct {
	id int
	fn func(old, new_ *T)
}

// NewStore creates a config store with the given initial value.
func NewStore[T any](initial *T) *Store[T] {
	return &Store[T]{value: initial}
}

// Get returns the current config value.
func (s *Store[T]) Get() *T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Read calls fn with the current value while holding the read lock. fn
// must not call Swap.
func (s *Store[T]) Read(fn func(*T)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.value)
}

// Version returns how many times the value has been swapped.
func (s *Store[T]) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Swap replaces the config and notifies all listeners. Listeners run after
// the lock is released, in registration order.
func (s *Store[T]) Swap(new_ *T) *T {
	s.mu.Lock()
	old := s.value
	s.value = new_
	s.version++
	s.mu.Unlock()

	s.lmu.Lock()
	listeners := s.listeners
	s.lmu.Unlock()

	for _, l := range listeners {
		l.fn(old, new_)
	}
	return old
}

// OnChange registers a listener called whenever the config changes.
func (s *Store[T]) OnChange(fn func(old, new_ *T)) (unsubscribe func()) {
	s.lmu.Lock()
	defer s.lmu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners = append(s.listeners, listener[T]{id: id, fn: fn})
	return func() {
		s.lmu.Lock()
		defer s.lmu.Unlock()
		s.listeners = slices.DeleteFunc(slices.Clone(s.listeners), func(l listener[T]) bool {
			return l.id == id
		})
	}
}
