package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/parcelsync/internal/core/domain"
	"github.com/custodia-labs/parcelsync/internal/core/ports/driven"
)

// Ensure ChangeStore implements the interface.
var _ driven.ChangeStore = (*ChangeStore)(nil)

// ChangeStore is an in-memory FIFO of pending changes.
type ChangeStore struct {
	mu      sync.Mutex
	changes []domain.PendingChange
}

// NewChangeStore creates an empty change store.
func NewChangeStore() *ChangeStore {
	return &ChangeStore{}
}

// Append adds a change at the tail of the queue.
func (s *ChangeStore) Append(_ context.Context, change domain.PendingChange) error {
	if change.ID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexOf(change.ID) >= 0 {
		return fmt.Errorf("change %s: %w", change.ID, domain.ErrAlreadyExists)
	}
	s.changes = append(s.changes, change)
	return nil
}

// List returns every queued change in enqueue order.
func (s *ChangeStore) List(_ context.Context) ([]domain.PendingChange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.PendingChange(nil), s.changes...), nil
}

// Remove deletes a change by ID.
func (s *ChangeStore) Remove(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return domain.ErrNotFound
	}
	s.changes = append(s.changes[:i], s.changes[i+1:]...)
	return nil
}

// MarkFailed increments a change's retry count and records the error.
func (s *ChangeStore) MarkFailed(_ context.Context, id string, lastError string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return domain.ErrNotFound
	}
	s.changes[i].RetryCount++
	s.changes[i].LastError = lastError
	return nil
}

// Count returns the number of queued changes.
func (s *ChangeStore) Count(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.changes), nil
}

func (s *ChangeStore) indexOf(id string) int {
	for i := range s.changes {
		if s.changes[i].ID == id {
			return i
		}
	}
	return -1
}
