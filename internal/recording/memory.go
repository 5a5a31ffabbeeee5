// Package recording tracks which meetings are currently being recorded.
package recording

import (
	"context"
	"slices"
	"sync"

	"meetspace-api/internal/domain"
)

// MemoryStore keeps recording state in process memory.
type MemoryStore struct {
	mu     sync.Mutex
	active map[string]struct{}
	saved  map[string][]domain.SavedRecording
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		active: make(map[string]struct{}),
		saved:  make(map[string][]domain.SavedRecording),
	}
}

// Save appends rec to the saved recordings of resourceID.
func (s *MemoryStore) Save(_ context.Context, resourceID string, rec domain.SavedRecording) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved[resourceID] = append(s.saved[resourceID], rec)
	return nil
}

// Saved returns a copy of the saved recordings of resourceID.
func (s *MemoryStore) Saved(_ context.Context, resourceID string) ([]domain.SavedRecording, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.saved[resourceID]), nil
}

// Start marks resourceID as recording. It reports false if it already was.
func (s *MemoryStore) Start(_ context.Context, resourceID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.active[resourceID]; ok {
		return false, nil
	}
	s.active[resourceID] = struct{}{}
	return true, nil
}

// Stop clears the recording mark. It reports false if none was set.
func (s *MemoryStore) Stop(_ context.Context, resourceID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.active[resourceID]; !ok {
		return false, nil
	}
	delete(s.active, resourceID)
	return true, nil
}
