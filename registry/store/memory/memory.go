// Package memory is the default, volatile registry store: a mutex-guarded
// map, lost on process restart. It is what the registry uses unless a
// durable store is explicitly configured.
package memory

import (
	"context"
	"sync"

	"goa.design/fabric/registry/store"
)

// Store is an in-memory, concurrency-safe store.Store.
type Store struct {
	mu   sync.RWMutex
	recs map[string]store.EndpointRecord
}

// New returns an empty Store.
func New() *Store {
	return &Store{recs: make(map[string]store.EndpointRecord)}
}

func (s *Store) Register(_ context.Context, rec store.EndpointRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs[rec.ServerName] = rec
	return nil
}

func (s *Store) Get(_ context.Context, serverName string) (store.EndpointRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.recs[serverName]
	if !ok {
		return store.EndpointRecord{}, store.ErrNotFound
	}
	return rec, nil
}

func (s *Store) List(_ context.Context) ([]store.EndpointRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]store.EndpointRecord, 0, len(s.recs))
	for _, rec := range s.recs {
		out = append(out, rec)
	}
	return out, nil
}
