package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/parcelsync/internal/core/domain"
	"github.com/custodia-labs/parcelsync/internal/core/ports/driven"
	"github.com/custodia-labs/parcelsync/internal/core/ports/driving"
	"github.com/custodia-labs/parcelsync/internal/logger"
)

// Ensure SourceService implements the interface.
var _ driving.SourceService = (*SourceService)(nil)

// SourceService manages row source configurations.
type SourceService struct {
	sourceStore   driven.SourceStore
	snapshotStore driven.SnapshotStore
	factory       driven.ConnectorFactory
	now           func() time.Time
}

// NewSourceService creates a new source service.
func NewSourceService(sourceStore driven.SourceStore, snapshotStore driven.SnapshotStore) *SourceService {
	return &SourceService{
		sourceStore:   sourceStore,
		snapshotStore: snapshotStore,
		now:           time.Now,
	}
}

// SetConnectorFactory sets the factory used to check source types.
func (s *SourceService) SetConnectorFactory(factory driven.ConnectorFactory) {
	s.factory = factory
}

// Add creates a new source configuration.
func (s *SourceService) Add(ctx context.Context, source domain.Source) error {
	if s.sourceStore == nil {
		return domain.ErrNotImplemented
	}
	if source.ID == "" {
		return domain.ErrInvalidInput
	}
	if err := s.ValidateConfig(ctx, source.Type, source.Config); err != nil {
		return err
	}
	existing, err := s.sourceStore.Get(ctx, source.ID)
	if err == nil && existing != nil {
		return domain.ErrAlreadyExists
	}

	now := s.now()
	source.CreatedAt = now
	source.UpdatedAt = now
	if err := s.sourceStore.Save(ctx, source); err != nil {
		return err
	}
	logger.Info("Added %s source %s", source.Type, source.ID)
	return nil
}

// Get retrieves a source by ID.
func (s *SourceService) Get(ctx context.Context, id string) (*domain.Source, error) {
	if s.sourceStore == nil {
		return nil, domain.ErrNotImplemented
	}
	return s.sourceStore.Get(ctx, id)
}

// List returns all configured sources.
func (s *SourceService) List(ctx context.Context) ([]domain.Source, error) {
	if s.sourceStore == nil {
		return nil, domain.ErrNotImplemented
	}
	return s.sourceStore.List(ctx)
}

// Update modifies an existing source configuration.
func (s *SourceService) Update(ctx context.Context, source domain.Source) error {
	if s.sourceStore == nil {
		return domain.ErrNotImplemented
	}
	if source.ID == "" {
		return domain.ErrInvalidInput
	}
	existing, err := s.sourceStore.Get(ctx, source.ID)
	if err != nil {
		return domain.ErrNotFound
	}
	if err := s.ValidateConfig(ctx, source.Type, source.Config); err != nil {
		return err
	}
	source.CreatedAt = existing.CreatedAt
	source.UpdatedAt = s.now()
	return s.sourceStore.Save(ctx, source)
}

// Remove deletes a source and its cached snapshot. Queued changes for the
// source are left for the user to discard.
func (s *SourceService) Remove(ctx context.Context, id string) error {
	if s.sourceStore == nil {
		return domain.ErrNotImplemented
	}
	if s.snapshotStore != nil {
		if err := s.snapshotStore.Delete(ctx, id); err != nil && !errors.Is(err, domain.ErrNotFound) {
			logger.Warn("Failed to delete snapshot of %s: %v", id, err)
		}
	}
	return s.sourceStore.Delete(ctx, id)
}

// ValidateConfig checks the source type is known and its required config
// keys are present.
func (s *SourceService) ValidateConfig(_ context.Context, connectorType string, config map[string]string) error {
	required, ok := domain.RequiredConfigKeys(connectorType)
	if !ok {
		return fmt.Errorf("%w: %q", domain.ErrUnsupportedType, connectorType)
	}
	if s.factory != nil && !containsString(s.factory.SupportedTypes(), connectorType) {
		return fmt.Errorf("%w: no connector registered for %q", domain.ErrUnsupportedType, connectorType)
	}

	var missing []string
	for _, key := range required {
		if config[key] == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing required config keys: %v", domain.ErrInvalidInput, missing)
	}
	return nil
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
