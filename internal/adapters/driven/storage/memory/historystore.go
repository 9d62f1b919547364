package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/parcelsync/internal/core/domain"
	"github.com/custodia-labs/parcelsync/internal/core/ports/driven"
)

var (
	_ driven.MappingHistoryStore = (*MappingHistoryStore)(nil)
	_ driven.StatusHistoryStore  = (*StatusHistoryStore)(nil)
)

// MappingHistoryStore keeps accepted mappings in insertion order.
type MappingHistoryStore struct {
	mu       sync.RWMutex
	mappings []*domain.FieldMapping
}

// NewMappingHistoryStore creates an empty mapping history.
func NewMappingHistoryStore() *MappingHistoryStore {
	return &MappingHistoryStore{}
}

// Record appends an accepted mapping.
func (s *MappingHistoryStore) Record(_ context.Context, mapping *domain.FieldMapping) error {
	if mapping == nil || mapping.SourceID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mappings = append(s.mappings, mapping.Clone())
	return nil
}

// Recent returns up to limit mappings for a source, most recent first.
func (s *MappingHistoryStore) Recent(_ context.Context, sourceID string, limit int) ([]*domain.FieldMapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.FieldMapping
	for i := len(s.mappings) - 1; i >= 0 && len(out) < limit; i-- {
		if s.mappings[i].SourceID == sourceID {
			out = append(out, s.mappings[i].Clone())
		}
	}
	return out, nil
}

// StatusHistoryStore keeps confirmed status events in insertion order.
type StatusHistoryStore struct {
	mu     sync.RWMutex
	events []domain.StatusEvent
}

// NewStatusHistoryStore creates an empty status history.
func NewStatusHistoryStore() *StatusHistoryStore {
	return &StatusHistoryStore{}
}

// Record appends a status event.
func (s *StatusHistoryStore) Record(_ context.Context, event domain.StatusEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// List returns events for a source, most recent first.
func (s *StatusHistoryStore) List(_ context.Context, sourceID, recordID string, limit int) ([]domain.StatusEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.StatusEvent
	for i := len(s.events) - 1; i >= 0 && len(out) < limit; i-- {
		e := s.events[i]
		if e.SourceID != sourceID || (recordID != "" && e.RecordID != recordID) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}
