package storage

import (
	"context"
	"sync"

	apperrors "github.com/utafrali/agrostore/pkg/errors"
)

// MemoryStorage is an in-process Storage.
type MemoryStorage struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStorage returns an empty store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{data: make(map[string][]byte)}
}

// Get returns a copy of the bytes stored under key.
func (s *MemoryStorage) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.data[key]
	if !ok {
		return nil, apperrors.NotFound("storage key", key)
	}
	return append([]byte(nil), data...), nil
}

// Set stores a copy of data under key.
func (s *MemoryStorage) Set(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = append([]byte(nil), data...)
	return nil
}

// Close is a no-op.
func (s *MemoryStorage) Close() error { return nil }
