package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/parcelsync/internal/core/domain"
	"github.com/custodia-labs/parcelsync/internal/core/ports/driving"
	"github.com/custodia-labs/parcelsync/internal/logger"
)

// Ensure MappingService implements the interface.
var _ driving.MappingService = (*MappingService)(nil)

// MappingService exposes the mapping of each source and applies manual
// corrections to it.
type MappingService struct {
	orch *SyncOrchestrator
}

// NewMappingService creates a mapping service sharing the orchestrator's
// stores and locks.
func NewMappingService(orch *SyncOrchestrator) *MappingService {
	return &MappingService{orch: orch}
}

// Get returns the mapping of the cached snapshot.
func (s *MappingService) Get(ctx context.Context, sourceID string) (*domain.FieldMapping, error) {
	snap, err := s.orch.Records(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	if snap.Mapping == nil {
		return nil, fmt.Errorf("mapping for %s: %w", sourceID, domain.ErrNotFound)
	}
	return snap.Mapping, nil
}

// ApplyManualMapping assigns column to field with full confidence. A field
// that previously claimed the column loses it. The cached rows are
// re-normalised, queued changes re-applied, and the snapshot saved, so the
// correction takes effect without a fetch.
func (s *MappingService) ApplyManualMapping(ctx context.Context, sourceID string, field domain.Field, column domain.ColumnRef) (*domain.Snapshot, error) {
	if !field.IsValid() {
		return nil, fmt.Errorf("%w: unknown field %q", domain.ErrInvalidInput, field)
	}
	if column.Index < 0 {
		return nil, fmt.Errorf("%w: column index %d", domain.ErrInvalidInput, column.Index)
	}

	o := s.orch
	o.snapMu.Lock()
	defer o.snapMu.Unlock()

	snap, err := o.snapshotStore.Get(ctx, sourceID)
	if err != nil {
		return nil, fmt.Errorf("records for %s: %w", sourceID, err)
	}
	if snap.Sheet == nil {
		return nil, fmt.Errorf("raw rows for %s: %w", sourceID, domain.ErrNotFound)
	}
	if column.Index >= snap.Sheet.Width() {
		return nil, fmt.Errorf("%w: column %d out of range (sheet has %d)",
			domain.ErrInvalidInput, column.Index, snap.Sheet.Width())
	}
	if column.Label == "" && column.Index < len(snap.Sheet.Headers) {
		column.Label = snap.Sheet.Headers[column.Index]
	}

	mapping := snap.Mapping.Clone()
	if mapping == nil {
		mapping = domain.NewFieldMapping(sourceID)
	}
	if other, ok := mapping.FieldForColumn(column.Index); ok && other != field {
		mapping.Unassign(other)
	}
	mapping.Assign(field, column, 100, domain.OriginManual)
	mapping.HeaderHash = domain.HeaderHash(snap.Sheet.Headers)
	mapping.RefreshReview(o.classifier.Config().ReviewConfidence)

	records := o.normaliser.Normalise(snap.Sheet, mapping)
	if err := o.overlayPending(ctx, sourceID, records, ""); err != nil {
		return nil, err
	}
	snap.Records = records
	snap.Mapping = mapping
	snap.HeaderHash = mapping.HeaderHash

	if err := o.snapshotStore.Save(ctx, snap); err != nil {
		return nil, fmt.Errorf("save snapshot: %w", err)
	}
	if o.mappingStore != nil {
		if err := o.mappingStore.Record(ctx, mapping); err != nil {
			logger.Warn("Failed to record mapping history: %v", err)
		}
	}

	logger.Info("Mapped %s to column %d (%q) for %s", field, column.Index, column.Label, sourceID)
	return snap.Clone(), nil
}
