package services

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/custodia-labs/parcelsync/internal/core/domain"
	"github.com/custodia-labs/parcelsync/internal/core/ports/driven"
)

// --- Mock implementations shared by service tests ---

// mockSourceStore implements driven.SourceStore.
type mockSourceStore struct {
	mu      sync.RWMutex
	sources map[string]domain.Source
	listErr error
}

func newMockSourceStore(sources ...domain.Source) *mockSourceStore {
	m := &mockSourceStore{sources: make(map[string]domain.Source)}
	for _, s := range sources {
		m.sources[s.ID] = s
	}
	return m
}

func (m *mockSourceStore) Save(_ context.Context, source domain.Source) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sources[source.ID] = source
	return nil
}

func (m *mockSourceStore) Get(_ context.Context, id string) (*domain.Source, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sources[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &s, nil
}

func (m *mockSourceStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sources[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.sources, id)
	return nil
}

func (m *mockSourceStore) List(_ context.Context) ([]domain.Source, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]domain.Source, 0, len(m.sources))
	for _, s := range m.sources {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// mockSnapshotStore implements driven.SnapshotStore. It stores clones so
// tests observe only what was saved.
type mockSnapshotStore struct {
	mu        sync.Mutex
	snapshots map[string]*domain.Snapshot
	saves     int
}

func newMockSnapshotStore() *mockSnapshotStore {
	return &mockSnapshotStore{snapshots: make(map[string]*domain.Snapshot)}
}

func (m *mockSnapshotStore) Get(_ context.Context, sourceID string) (*domain.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.snapshots[sourceID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return s.Clone(), nil
}

func (m *mockSnapshotStore) Save(_ context.Context, snapshot *domain.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := snapshot.Clone()
	c.FromCache = false
	m.snapshots[snapshot.SourceID] = c
	m.saves++
	return nil
}

func (m *mockSnapshotStore) Delete(_ context.Context, sourceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.snapshots[sourceID]; !ok {
		return domain.ErrNotFound
	}
	delete(m.snapshots, sourceID)
	return nil
}

// mockMappingStore implements driven.MappingHistoryStore.
type mockMappingStore struct {
	mu       sync.Mutex
	mappings []*domain.FieldMapping
}

func (m *mockMappingStore) Record(_ context.Context, mapping *domain.FieldMapping) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mappings = append(m.mappings, mapping.Clone())
	return nil
}

func (m *mockMappingStore) Recent(_ context.Context, sourceID string, limit int) ([]*domain.FieldMapping, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.FieldMapping
	for i := len(m.mappings) - 1; i >= 0 && len(out) < limit; i-- {
		if m.mappings[i].SourceID == sourceID {
			out = append(out, m.mappings[i].Clone())
		}
	}
	return out, nil
}

func (m *mockMappingStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.mappings)
}

// mockChangeStore implements driven.ChangeStore.
type mockChangeStore struct {
	mu        sync.Mutex
	changes   []domain.PendingChange
	appendErr error
}

func (m *mockChangeStore) Append(_ context.Context, change domain.PendingChange) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return m.appendErr
	}
	m.changes = append(m.changes, change)
	return nil
}

func (m *mockChangeStore) List(_ context.Context) ([]domain.PendingChange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.PendingChange(nil), m.changes...), nil
}

func (m *mockChangeStore) Remove(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.changes {
		if m.changes[i].ID == id {
			m.changes = append(m.changes[:i], m.changes[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *mockChangeStore) MarkFailed(_ context.Context, id string, lastError string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.changes {
		if m.changes[i].ID == id {
			m.changes[i].RetryCount++
			m.changes[i].LastError = lastError
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *mockChangeStore) Count(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.changes), nil
}

// mockHistoryStore implements driven.StatusHistoryStore.
type mockHistoryStore struct {
	mu     sync.Mutex
	events []domain.StatusEvent
}

func (m *mockHistoryStore) Record(_ context.Context, event domain.StatusEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *mockHistoryStore) List(_ context.Context, sourceID, recordID string, limit int) ([]domain.StatusEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.StatusEvent
	for i := len(m.events) - 1; i >= 0 && len(out) < limit; i-- {
		e := m.events[i]
		if e.SourceID == sourceID && (recordID == "" || e.RecordID == recordID) {
			out = append(out, e)
		}
	}
	return out, nil
}

// mockConnector implements driven.Connector over an in-memory sheet.
type mockConnector struct {
	mu         sync.Mutex
	sourceID   string
	sheet      *domain.Sheet
	fetchErr   error
	pushErr    error
	fetches    int
	pushes     []domain.StatusUpdate
	fetchGate  chan struct{}
	fetchEnter chan struct{}
}

func (c *mockConnector) Type() string     { return "mock" }
func (c *mockConnector) SourceID() string { return c.sourceID }
func (c *mockConnector) Close() error     { return nil }

func (c *mockConnector) FetchRows(ctx context.Context) (*domain.Sheet, error) {
	c.mu.Lock()
	c.fetches++
	gate, enter := c.fetchGate, c.fetchEnter
	c.mu.Unlock()

	if enter != nil {
		enter <- struct{}{}
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fetchErr != nil {
		return nil, c.fetchErr
	}
	return c.sheet.Clone(), nil
}

func (c *mockConnector) PushStatus(_ context.Context, update domain.StatusUpdate) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pushErr != nil {
		return c.pushErr
	}
	c.pushes = append(c.pushes, update)
	return nil
}

func (c *mockConnector) setSheet(sheet *domain.Sheet) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sheet = sheet
}

func (c *mockConnector) setFetchErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fetchErr = err
}

func (c *mockConnector) setPushErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pushErr = err
}

func (c *mockConnector) pushed() []domain.StatusUpdate {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.StatusUpdate(nil), c.pushes...)
}

func (c *mockConnector) fetchCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fetches
}

// mockConnectorFactory implements driven.ConnectorFactory.
type mockConnectorFactory struct {
	connectors map[string]driven.Connector
	createErr  error
}

func newMockConnectorFactory() *mockConnectorFactory {
	return &mockConnectorFactory{connectors: make(map[string]driven.Connector)}
}

func (f *mockConnectorFactory) Create(_ context.Context, source domain.Source) (driven.Connector, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	if conn, ok := f.connectors[source.ID]; ok {
		return conn, nil
	}
	return nil, errors.New("no connector configured for source")
}

func (f *mockConnectorFactory) Register(_ string, _ driven.ConnectorBuilder) {}

func (f *mockConnectorFactory) SupportedTypes() []string {
	return []string{domain.SourceTypeCSV, domain.SourceTypeGoogleSheet}
}

// mockConnectivity implements driven.Connectivity with a settable state.
type mockConnectivity struct {
	mu     sync.Mutex
	online bool
	subs   []chan bool
}

func (m *mockConnectivity) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

func (m *mockConnectivity) Subscribe() (<-chan bool, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := make(chan bool, 4)
	m.subs = append(m.subs, ch)
	return ch, func() {}
}

func (m *mockConnectivity) set(online bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.online == online {
		return
	}
	m.online = online
	for _, ch := range m.subs {
		select {
		case ch <- online:
		default:
		}
	}
}

// mockConfigStore implements driven.ConfigStore over a map.
type mockConfigStore struct {
	values map[string]any
	setErr error
}

func newMockConfigStore() *mockConfigStore {
	return &mockConfigStore{values: make(map[string]any)}
}

func (m *mockConfigStore) Get(key string) (any, bool) {
	v, ok := m.values[key]
	return v, ok
}

func (m *mockConfigStore) GetString(key string) string {
	s, _ := m.values[key].(string)
	return s
}

func (m *mockConfigStore) GetInt(key string) int {
	switch v := m.values[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	}
	return 0
}

func (m *mockConfigStore) GetBool(key string) bool {
	b, _ := m.values[key].(bool)
	return b
}

func (m *mockConfigStore) GetStringSlice(key string) []string {
	s, _ := m.values[key].([]string)
	return s
}

func (m *mockConfigStore) Set(key string, value any) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.values[key] = value
	return nil
}

func (m *mockConfigStore) Save() error { return nil }
func (m *mockConfigStore) Load() error { return nil }
func (m *mockConfigStore) Path() string {
	return "/tmp/parcelsync-test/config.toml"
}
