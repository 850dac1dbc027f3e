package snapshot

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound reports that no snapshot exists for the session.
var ErrNotFound = errors.New("loom: snapshot not found")

// Store persists snapshots by session ID.
type Store interface {
	// Save persists the snapshot, replacing any previous one for the session.
	Save(ctx context.Context, session string, snap *Snapshot) error

	// Load returns the session's snapshot, or ErrNotFound.
	Load(ctx context.Context, session string) (*Snapshot, error)

	// Delete removes the session's snapshot. Deleting a missing session is
	// not an error.
	Delete(ctx context.Context, session string) error
}

// MemoryStore keeps snapshots in-process. Entries survive in marshaled form,
// so a loaded snapshot never aliases the saved one.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

// Save implements Store.
func (s *MemoryStore) Save(ctx context.Context, session string, snap *Snapshot) error {
	data, err := snap.Marshal()
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.blobs[session] = data
	s.mu.Unlock()
	return nil
}

// Load implements Store.
func (s *MemoryStore) Load(ctx context.Context, session string) (*Snapshot, error) {
	s.mu.RLock()
	data, ok := s.blobs[session]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return Unmarshal(data)
}

// Delete implements Store.
func (s *MemoryStore) Delete(ctx context.Context, session string) error {
	s.mu.Lock()
	delete(s.blobs, session)
	s.mu.Unlock()
	return nil
}

// Len reports the number of stored sessions.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}
