package storage

import (
	"context"
	"sync"
	"time"
)

// MemoryStore implements Store with an in-process map. Used in tests and as
// the in-memory-only degraded mode when no durable backend is configured.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*SessionRecord
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*SessionRecord)}
}

// Get retrieves the record for a tourist.
func (s *MemoryStore) Get(ctx context.Context, touristID string) (*SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[touristID]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *record
	return &copied, nil
}

// Put persists the record for a tourist.
func (s *MemoryStore) Put(ctx context.Context, touristID string, record *SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *record
	copied.TouristID = touristID
	copied.SavedAt = time.Now().UTC()
	s.records[touristID] = &copied
	return nil
}

// Delete removes the record for a tourist.
func (s *MemoryStore) Delete(ctx context.Context, touristID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, touristID)
	return nil
}

// Close is a no-op for the memory store.
func (s *MemoryStore) Close() error {
	return nil
}
