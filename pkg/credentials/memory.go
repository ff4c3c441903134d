package credentials

import (
	"context"
	"sync"
)

// MemoryStore keeps credentials in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

// NewMemoryStoreWith returns a store preloaded with the given pair.
func NewMemoryStoreWith(pair Pair) *MemoryStore {
	s := NewMemoryStore()
	if pair.AccessToken != "" {
		s.values[AccessTokenKey] = pair.AccessToken
	}
	if pair.RefreshToken != "" {
		s.values[RefreshTokenKey] = pair.RefreshToken
	}
	return s
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.values[key]
	if !ok {
		return "", ErrAbsent
	}
	return value, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *MemoryStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}
