package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/parcelsync/internal/core/domain"
	"github.com/custodia-labs/parcelsync/internal/core/ports/driven"
	"github.com/custodia-labs/parcelsync/internal/core/ports/driving"
)

// mockSyncOrchestrator implements driving.SyncOrchestrator for testing.
type mockSyncOrchestrator struct {
	snapshot *domain.Snapshot
	groups   []domain.CustomerGroup
	refs     []domain.RecordRef
	drain    domain.DrainResult
	results  map[string]error
	err      error

	lastRequest driving.StatusRequest
}

func (m *mockSyncOrchestrator) Sync(_ context.Context, _ string) (*domain.Snapshot, error) {
	return m.snapshot, m.err
}

func (m *mockSyncOrchestrator) SyncAll(_ context.Context) map[string]error {
	return m.results
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

func (m *mockSyncOrchestrator) Status(_ context.Context, sourceID string) (*driving.SyncStatus, error) {
	return &driving.SyncStatus{SourceID: sourceID}, m.err
}

// mockSourceService implements driving.SourceService for testing.
type mockSourceService struct {
	sources []domain.Source
	added   *domain.Source
	removed string
	err     error
}

func (m *mockSourceService) Add(_ context.Context, source domain.Source) error {
	m.added = &source
	return m.err
}

func (m *mockSourceService) Get(_ context.Context, _ string) (*domain.Source, error) {
	return nil, m.err
}

func (m *mockSourceService) List(_ context.Context) ([]domain.Source, error) {
	return m.sources, m.err
}

func (m *mockSourceService) Update(_ context.Context, _ domain.Source) error { return m.err }

func (m *mockSourceService) Remove(_ context.Context, id string) error {
	m.removed = id
	return m.err
}

func (m *mockSourceService) ValidateConfig(_ context.Context, _ string, _ map[string]string) error {
	return m.err
}

// mockChangeQueue implements driving.ChangeQueue for testing.
type mockChangeQueue struct {
	changes   []domain.PendingChange
	discarded string
	err       error
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

func (m *mockChangeQueue) Discard(_ context.Context, id string) error {
	m.discarded = id
	return m.err
}

// mockMappingService implements driving.MappingService for testing.
type mockMappingService struct {
	mapping  *domain.FieldMapping
	snapshot *domain.Snapshot
	err      error

	lastField  domain.Field
	lastColumn domain.ColumnRef
}

func (m *mockMappingService) Get(_ context.Context, _ string) (*domain.FieldMapping, error) {
	return m.mapping, m.err
}

func (m *mockMappingService) ApplyManualMapping(
	_ context.Context, _ string, field domain.Field, column domain.ColumnRef,
) (*domain.Snapshot, error) {
	m.lastField = field
	m.lastColumn = column
	return m.snapshot, m.err
}

// mockHistoryService implements driving.HistoryService for testing.
type mockHistoryService struct {
	events []domain.StatusEvent
	err    error

	lastRecord string
	lastLimit  int
}

func (m *mockHistoryService) List(_ context.Context, _, recordID string, limit int) ([]domain.StatusEvent, error) {
	m.lastRecord = recordID
	m.lastLimit = limit
	return m.events, m.err
}

// mockSettingsService implements driving.SettingsService for testing.
type mockSettingsService struct {
	settings    *domain.AppSettings
	interval    string
	validateErr error
	err         error
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	return m.settings, m.err
}

func (m *mockSettingsService) Save(_ *domain.AppSettings) error { return m.err }

func (m *mockSettingsService) SetSyncInterval(interval string) error {
	m.interval = interval
	return m.err
}

func (m *mockSettingsService) Validate() error { return m.validateErr }

func (m *mockSettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// mockScheduler implements driving.Scheduler for testing.
type mockScheduler struct {
	started bool
	stopped bool
	err     error
}

func (m *mockScheduler) Start(ctx context.Context) error {
	m.started = true
	if m.err != nil {
		return m.err
	}
	<-ctx.Done()
	return ctx.Err()
}

func (m *mockScheduler) Stop() error {
	m.stopped = true
	return nil
}

// mockFactory implements driven.ConnectorFactory for testing.
type mockFactory struct {
	types []string
}

func (m *mockFactory) Create(_ context.Context, _ domain.Source) (driven.Connector, error) {
	return nil, domain.ErrNotImplemented
}

func (m *mockFactory) Register(_ string, _ driven.ConnectorBuilder) {}

func (m *mockFactory) SupportedTypes() []string { return m.types }

// withServices installs s for the duration of the test.
func withServices(t *testing.T, s Services) {
	t.Helper()
	old := Services{
		Source:       sourceService,
		Sync:         syncOrchestrator,
		Queue:        changeQueue,
		Mapping:      mappingService,
		History:      historyService,
		Settings:     settingsService,
		Scheduler:    scheduler,
		Factory:      connectorFactory,
		Connectivity: connectivity,
	}
	Configure(s)
	t.Cleanup(func() { Configure(old) })
}

// executeCommand runs the root command with args and returns its output.
// Flags are reset afterwards because cobra keeps their values between runs.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		resetFlags(rootCmd)
	}()

	err := rootCmd.Execute()
	return buf.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// mockConnectivity implements driven.Connectivity for testing.
type mockConnectivity struct {
	online bool
}

func (m *mockConnectivity) Online() bool { return m.online }

func (m *mockConnectivity) Subscribe() (<-chan bool, func()) {
	ch := make(chan bool)
	return ch, func() {}
}
