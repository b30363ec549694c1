package registry

import (
	"context"

	"github.com/sasha-s/go-deadlock"
)

// MemoryStore 内存登记存储
type MemoryStore struct {
	mu      deadlock.Mutex
	entries map[string]Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

func (s *MemoryStore) Insert(_ context.Context, e Entry) (Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.entries[e.Collection]; ok {
		return existing, false, nil
	}
	s.entries[e.Collection] = e
	return e, true, nil
}

func (s *MemoryStore) Get(_ context.Context, collection string) (Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[collection]
	return e, ok, nil
}
