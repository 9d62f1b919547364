package mcp

import (
	"context"

	"github.com/custodia-labs/parcelsync/internal/core/domain"
	"github.com/custodia-labs/parcelsync/internal/core/ports/driving"
)

// mockSyncOrchestrator is a mock implementation of driving.SyncOrchestrator.
type mockSyncOrchestrator struct {
	snapshot *domain.Snapshot
	groups   []domain.CustomerGroup
	refs     []domain.RecordRef
	drain    domain.DrainResult
	status   *driving.SyncStatus
	err      error

	lastRequest driving.StatusRequest
	syncedID    string
}

func (m *mockSyncOrchestrator) Sync(_ context.Context, sourceID string) (*domain.Snapshot, error) {
	m.syncedID = sourceID
	return m.snapshot, m.err
}

func (m *mockSyncOrchestrator) SyncAll(_ context.Context) map[string]error {
	return nil
}

func (m *mockSyncOrchestrator) Records(_ context.Context, _ string) (*domain.Snapshot, error) {
	return m.snapshot, m.err
}

func (m *mockSyncOrchestrator) Groups(_ context.Context, _ string) ([]domain.CustomerGroup, error) {
	return m.groups, m.err
}

func (m *mockSyncOrchestrator) SetStatus(_ context.Context, req driving.StatusRequest) ([]domain.RecordRef, error) {
	m.lastRequest = req
	return m.refs, m.err
}

func (m *mockSyncOrchestrator) Drain(_ context.Context) (domain.DrainResult, error) {
	return m.drain, m.err
}

func (m *mockSyncOrchestrator) Status(_ context.Context, _ string) (*driving.SyncStatus, error) {
	return m.status, m.err
}

// mockSourceService is a mock implementation of driving.SourceService.
type mockSourceService struct {
	sources []domain.Source
	err     error
}

func (m *mockSourceService) Add(_ context.Context, _ domain.Source) error { return m.err }

func (m *mockSourceService) Get(_ context.Context, _ string) (*domain.Source, error) {
	if len(m.sources) == 0 {
		return nil, m.err
	}
	return &m.sources[0], m.err
}

func (m *mockSourceService) List(_ context.Context) ([]domain.Source, error) {
	return m.sources, m.err
}

func (m *mockSourceService) Update(_ context.Context, _ domain.Source) error { return m.err }

func (m *mockSourceService) Remove(_ context.Context, _ string) error { return m.err }

func (m *mockSourceService) ValidateConfig(_ context.Context, _ string, _ map[string]string) error {
	return m.err
}

// mockChangeQueue is a mock implementation of driving.ChangeQueue.
type mockChangeQueue struct {
	changes []domain.PendingChange
	err     error
}

func (m *mockChangeQueue) Enqueue(_ context.Context, _ domain.PendingChange) (int, error) {
	return len(m.changes), m.err
}

func (m *mockChangeQueue) Drain(_ context.Context, _ driving.ApplyFunc) (domain.DrainResult, error) {
	return domain.DrainResult{}, m.err
}

func (m *mockChangeQueue) PendingCount(_ context.Context) (int, error) {
	return len(m.changes), m.err
}

func (m *mockChangeQueue) List(_ context.Context) ([]domain.PendingChange, error) {
	return m.changes, m.err
}

func (m *mockChangeQueue) Discard(_ context.Context, _ string) error { return m.err }

// mockMappingService is a mock implementation of driving.MappingService.
type mockMappingService struct {
	mapping *domain.FieldMapping
	err     error
}

func (m *mockMappingService) Get(_ context.Context, _ string) (*domain.FieldMapping, error) {
	return m.mapping, m.err
}

func (m *mockMappingService) ApplyManualMapping(
	_ context.Context, _ string, _ domain.Field, _ domain.ColumnRef,
) (*domain.Snapshot, error) {
	return nil, m.err
}

// mockHistoryService is a mock implementation of driving.HistoryService.
type mockHistoryService struct {
	events []domain.StatusEvent
	err    error

	lastLimit int
}

func (m *mockHistoryService) List(_ context.Context, _, _ string, limit int) ([]domain.StatusEvent, error) {
	m.lastLimit = limit
	return m.events, m.err
}
