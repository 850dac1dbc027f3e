package reactive

import "sync"

// Store is a map-backed reactive container with per-key dependency capture.
// It is the minimal concrete stand-in for the host's proxy/store mechanism:
// reads through Get subscribe the current subscriber to the read key, writes
// notify only the subscribers interested in the written key.
type Store struct {
	id     uint64
	mu     sync.RWMutex
	values map[string]any
	subs   SubscriptionManager
}

// NewStore creates a store seeded with the given values. The map is copied;
// later mutations must go through Set and Delete.
func NewStore(initial map[string]any) *Store {
	values := make(map[string]any, len(initial))
	for k, v := range initial {
		values[k] = v
	}
	return &Store{
		id:     nextID(),
		values: values,
	}
}

// Get returns the value for key and subscribes the current subscriber to
// that key.
func (s *Store) Get(key string) any {
	s.mu.RLock()
	value := s.values[key]
	s.mu.RUnlock()

	trackRead(&s.subs, key)
	return value
}

// Peek returns the value for key without subscribing.
func (s *Store) Peek(key string) any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values[key]
}

// Set writes key and notifies the subscribers interested in it when the
// value changed.
func (s *Store) Set(key string, value any) {
	s.mu.Lock()
	old, existed := s.values[key]
	changed := !existed || !valuesEqual(old, value)
	if changed {
		s.values[key] = value
	}
	s.mu.Unlock()

	if changed {
		s.subs.Notify(key)
	}
}

// Delete removes key and notifies its subscribers.
func (s *Store) Delete(key string) {
	s.mu.Lock()
	_, existed := s.values[key]
	if existed {
		delete(s.values, key)
	}
	s.mu.Unlock()

	if existed {
		s.subs.Notify(key)
	}
}

// Keys returns the current key set in unspecified order, without
// subscribing.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	return keys
}

// Len reports the number of keys, without subscribing.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}

// ID returns the unique identifier for this store.
func (s *Store) ID() uint64 {
	return s.id
}

// SubscriptionManager implements Trackable.
func (s *Store) SubscriptionManager() *SubscriptionManager {
	return &s.subs
}
