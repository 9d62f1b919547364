package services

import (
	"context"

	"github.com/custodia-labs/parcelsync/internal/core/domain"
	"github.com/custodia-labs/parcelsync/internal/core/ports/driven"
	"github.com/custodia-labs/parcelsync/internal/core/ports/driving"
)

// Ensure HistoryService implements the interface.
var _ driving.HistoryService = (*HistoryService)(nil)

// defaultHistoryLimit caps history listings when the caller passes no limit.
const defaultHistoryLimit = 50

// HistoryService reads confirmed status changes.
type HistoryService struct {
	store driven.StatusHistoryStore
}

// NewHistoryService creates a history service. A nil store yields empty
// listings.
func NewHistoryService(store driven.StatusHistoryStore) *HistoryService {
	return &HistoryService{store: store}
}

// List returns events for a source, most recent first.
func (s *HistoryService) List(ctx context.Context, sourceID, recordID string, limit int) ([]domain.StatusEvent, error) {
	if s.store == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	return s.store.List(ctx, sourceID, recordID, limit)
}
