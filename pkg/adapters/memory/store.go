package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/cohort/pkg/domain"
)

// Store implements ports.KeyValueStore in memory.
// Safe for concurrent use.
type Store struct {
	data   map[string]string
	closed bool
	mu     sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]string),
	}
}

// Get retrieves a value from memory.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return "", domain.ErrStorageUnavailable
	}
	val, ok := s.data[key]
	if !ok {
		return "", domain.ErrKeyNotFound
	}
	return val, nil
}

// Set stores a value in memory.
func (s *Store) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.ErrStorageUnavailable
	}
	s.data[key] = value
	return nil
}

// Remove deletes a key.
func (s *Store) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.ErrStorageUnavailable
	}
	delete(s.data, key)
	return nil
}

// Keys returns the stored keys in lexical order.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, domain.ErrStorageUnavailable
	}
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Close makes every later operation fail with domain.ErrStorageUnavailable.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
