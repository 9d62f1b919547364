package driving

import (
	"context"

	"github.com/custodia-labs/parcelsync/internal/core/domain"
)

// MappingService exposes and corrects field mappings.
type MappingService interface {
	// Get returns the mapping currently in use for a source.
	Get(ctx context.Context, sourceID string) (*domain.FieldMapping, error)

	// ApplyManualMapping assigns a column to a field, re-normalises the
	// cached rows with the corrected mapping and returns the new snapshot.
	ApplyManualMapping(ctx context.Context, sourceID string, field domain.Field, column domain.ColumnRef) (*domain.Snapshot, error)
}
