package driven

import (
	"context"

	"github.com/custodia-labs/parcelsync/internal/core/domain"
)

// SnapshotStore persists the last known good records per source.
type SnapshotStore interface {
	// Get returns the snapshot for a source.
	// Returns domain.ErrNotFound when no snapshot was ever saved.
	Get(ctx context.Context, sourceID string) (*domain.Snapshot, error)

	// Save replaces the snapshot for its source.
	Save(ctx context.Context, snapshot *domain.Snapshot) error

	// Delete removes the snapshot for a source.
	Delete(ctx context.Context, sourceID string) error
}

// MappingHistoryStore keeps recently accepted field mappings per source.
type MappingHistoryStore interface {
	// Record appends an accepted mapping.
	Record(ctx context.Context, mapping *domain.FieldMapping) error

	// Recent returns up to limit mappings, most recent first.
	Recent(ctx context.Context, sourceID string, limit int) ([]*domain.FieldMapping, error)
}

// StatusHistoryStore records confirmed status changes.
type StatusHistoryStore interface {
	// Record appends a status event.
	Record(ctx context.Context, event domain.StatusEvent) error

	// List returns events for a source, most recent first. An empty
	// recordID lists every record of the source.
	List(ctx context.Context, sourceID, recordID string, limit int) ([]domain.StatusEvent, error)
}
