// Package kvstore provides the durable key-value storage behind session
// persistence: the serialized principal, tenant, and feature cache live here
// under namespaced keys. Backends: in-memory (tests), filesystem, SQL
// (SQLite or PostgreSQL), and Redis.
package kvstore

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound is returned when a key has no value
var ErrNotFound = errors.New("kvstore: key not found")

// Store is a durable key-value store
type Store interface {
	// Get returns the value for key, or ErrNotFound
	Get(ctx context.Context, key string) ([]byte, error)

	// Set writes the value for key, replacing any previous value
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes the key; deleting an absent key is not an error
	Delete(ctx context.Context, key string) error

	// Close releases backend resources
	Close() error
}

// Watchable is implemented by stores that can report external writes
// (another process touching the same persisted state). The callback may be
// invoked from a background goroutine.
type Watchable interface {
	Watch(onChange func()) error
}

// MemoryStore is an in-memory Store for tests and single-process use
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

// Get returns the value for key
func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

// Set writes the value for key
func (s *MemoryStore) Set(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := make([]byte, len(value))
	copy(stored, value)
	s.data[key] = stored
	return nil
}

// Delete removes the key
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// Close is a no-op for the memory store
func (s *MemoryStore) Close() error {
	return nil
}
