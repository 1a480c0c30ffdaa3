package storage

import (
	"context"
	"sync"

	"github.com/upass-project/upass/internal/common"
)

// MemoryStore keeps vaults in a map. Useful for tests and throwaway
// development servers; nothing survives a restart.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

func (s *MemoryStore) Exists(ctx context.Context, username string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.records[username]
	return ok, nil
}

func (s *MemoryStore) Get(ctx context.Context, username string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[username]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &rec, nil
}

func (s *MemoryStore) Put(ctx context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *rec
	stored.UpdatedAt = nowFn().UTC()
	s.records[rec.Username] = stored
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[username]; !ok {
		return common.ErrNotFound
	}
	delete(s.records, username)
	return nil
}

func (s *MemoryStore) Close() error { return nil }
