package store

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is a process-local RecordStore used in tests and local runs
// without a database.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]map[string]Record
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]map[string]Record)}
}

// Load retrieves a record by collection and key.
func (s *MemoryStore) Load(_ context.Context, collection, key string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.data[collection][key]
	if !ok {
		return nil, ErrNotFound
	}
	rec.Data = append([]byte(nil), rec.Data...)
	return &rec, nil
}

// LoadAll retrieves every record in a collection in key order.
func (s *MemoryStore) LoadAll(_ context.Context, collection string) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	recs := make([]Record, 0, len(s.data[collection]))
	for _, rec := range s.data[collection] {
		rec.Data = append([]byte(nil), rec.Data...)
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].Key < recs[j].Key })
	return recs, nil
}

// Save writes a record with a version check.
func (s *MemoryStore) Save(_ context.Context, collection string, rec Record) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	coll, ok := s.data[collection]
	if !ok {
		coll = make(map[string]Record)
		s.data[collection] = coll
	}
	if coll[rec.Key].Version != rec.Version {
		return 0, ErrVersionConflict
	}
	rec.Version++
	rec.Data = append([]byte(nil), rec.Data...)
	coll[rec.Key] = rec
	return rec.Version, nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}
