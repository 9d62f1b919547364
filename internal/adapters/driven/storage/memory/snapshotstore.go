package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/parcelsync/internal/core/domain"
	"github.com/custodia-labs/parcelsync/internal/core/ports/driven"
)

// Ensure SnapshotStore implements the interface.
var _ driven.SnapshotStore = (*SnapshotStore)(nil)

// SnapshotStore keeps one snapshot per source. Snapshots are copied on the
// way in and out so callers never share state with the store.
type SnapshotStore struct {
	mu        sync.RWMutex
	snapshots map[string]*domain.Snapshot
}

// NewSnapshotStore creates an empty snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{snapshots: make(map[string]*domain.Snapshot)}
}

// Get returns the snapshot for a source.
func (s *SnapshotStore) Get(_ context.Context, sourceID string) (*domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snapshots[sourceID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return snap.Clone(), nil
}

// Save replaces the snapshot for its source.
func (s *SnapshotStore) Save(_ context.Context, snapshot *domain.Snapshot) error {
	if snapshot == nil || snapshot.SourceID == "" {
		return domain.ErrInvalidInput
	}
	c := snapshot.Clone()
	c.FromCache = false

	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[snapshot.SourceID] = c
	return nil
}

// Delete removes the snapshot for a source.
func (s *SnapshotStore) Delete(_ context.Context, sourceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.snapshots[sourceID]; !ok {
		return domain.ErrNotFound
	}
	delete(s.snapshots, sourceID)
	return nil
}
