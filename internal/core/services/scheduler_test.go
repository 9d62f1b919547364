package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/parcelsync/internal/core/domain"
	"github.com/custodia-labs/parcelsync/internal/core/ports/driving"
)

// mockSchedulerStore implements driven.SchedulerStore.
type mockSchedulerStore struct {
	mu      sync.Mutex
	tasks   map[string]domain.ScheduledTask
	results []domain.TaskResult
	pruned  int
}

func newMockSchedulerStore() *mockSchedulerStore {
	return &mockSchedulerStore{tasks: make(map[string]domain.ScheduledTask)}
}

func (m *mockSchedulerStore) GetTask(_ context.Context, id string) (*domain.ScheduledTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (m *mockSchedulerStore) ListTasks(_ context.Context) ([]domain.ScheduledTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.ScheduledTask, 0, len(m.tasks))
	for _, t := range m.tasks {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockSchedulerStore) SaveTask(_ context.Context, task *domain.ScheduledTask) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks[task.ID] = *task
	return nil
}

func (m *mockSchedulerStore) DeleteTask(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tasks, id)
	return nil
}

func (m *mockSchedulerStore) RecordResult(_ context.Context, result *domain.TaskResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, *result)
	return nil
}

func (m *mockSchedulerStore) GetTaskHistory(_ context.Context, id string, limit int) ([]domain.TaskResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.TaskResult
	for i := len(m.results) - 1; i >= 0 && len(out) < limit; i-- {
		if m.results[i].TaskID == id {
			out = append(out, m.results[i])
		}
	}
	return out, nil
}

func (m *mockSchedulerStore) PruneHistory(_ context.Context, _ int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pruned++
	return nil
}

func (m *mockSchedulerStore) task(id string) domain.ScheduledTask {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tasks[id]
}

// mockOrchestrator implements driving.SyncOrchestrator, counting calls.
type mockOrchestrator struct {
	mu          sync.Mutex
	syncs       []string
	syncAlls    int
	drains      int
	drainResult domain.DrainResult
	drainErr    error
	drainGate   chan struct{}
	failures    map[string]error
}

func (m *mockOrchestrator) Sync(_ context.Context, sourceID string) (*domain.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.syncs = append(m.syncs, sourceID)
	return &domain.Snapshot{SourceID: sourceID}, nil
}

func (m *mockOrchestrator) SyncAll(_ context.Context) map[string]error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.syncAlls++
	out := make(map[string]error, len(m.failures))
	for k, v := range m.failures {
		out[k] = v
	}
	return out
}

func (m *mockOrchestrator) Records(context.Context, string) (*domain.Snapshot, error) {
	return nil, domain.ErrNotFound
}

func (m *mockOrchestrator) Groups(context.Context, string) ([]domain.CustomerGroup, error) {
	return nil, domain.ErrNotFound
}

func (m *mockOrchestrator) SetStatus(context.Context, driving.StatusRequest) ([]domain.RecordRef, error) {
	return nil, nil
}

func (m *mockOrchestrator) Drain(context.Context) (domain.DrainResult, error) {
	m.mu.Lock()
	m.drains++
	gate := m.drainGate
	m.mu.Unlock()
	if gate != nil {
		<-gate
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.drainResult, m.drainErr
}

func (m *mockOrchestrator) Status(_ context.Context, sourceID string) (*driving.SyncStatus, error) {
	return &driving.SyncStatus{SourceID: sourceID}, nil
}

func (m *mockOrchestrator) counts() (syncs, syncAlls, drains int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.syncs), m.syncAlls, m.drains
}

// watchingConnector is a connector that reports local changes.
type watchingConnector struct {
	*mockConnector
	events chan struct{}
}

func (w *watchingConnector) Watch(ctx context.Context) (<-chan struct{}, error) {
	return w.events, nil
}

func (m *mockConnectivity) subscribers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}

func testSchedulerConfig() domain.SchedulerConfig {
	return domain.SchedulerConfigFromSettings(domain.SyncSettings{
		Interval:      5 * time.Minute,
		DrainInterval: time.Minute,
	})
}

func TestTickFor(t *testing.T) {
	assert.Equal(t, 30*time.Second, tickFor(testSchedulerConfig()))
	assert.Equal(t, time.Minute, tickFor(domain.SchedulerConfig{}))

	fast := domain.SchedulerConfigFromSettings(domain.SyncSettings{Interval: time.Second, DrainInterval: time.Second})
	assert.Equal(t, time.Second, tickFor(fast))
}

func TestScheduler_InitialiseTasks(t *testing.T) {
	store := newMockSchedulerStore()
	s := NewScheduler(testSchedulerConfig(), store, &mockOrchestrator{}, nil)
	ctx := context.Background()

	require.NoError(t, s.initialiseTasks(ctx))
	recordSync := store.task(domain.TaskIDRecordSync)
	assert.Equal(t, 5*time.Minute, recordSync.Interval)
	assert.True(t, recordSync.Enabled)
	assert.True(t, recordSync.NextRun.After(time.Now()))
	assert.Equal(t, time.Minute, store.task(domain.TaskIDQueueDrain).Interval)

	// A changed interval is picked up on the next start.
	s.config = domain.SchedulerConfigFromSettings(domain.SyncSettings{Interval: 0, DrainInterval: 2 * time.Minute})
	require.NoError(t, s.initialiseTasks(ctx))
	assert.False(t, store.task(domain.TaskIDRecordSync).Enabled)
	assert.Equal(t, 2*time.Minute, store.task(domain.TaskIDQueueDrain).Interval)
}

func TestScheduler_RunTask_RecordSync(t *testing.T) {
	store := newMockSchedulerStore()
	orch := &mockOrchestrator{}
	s := NewScheduler(testSchedulerConfig(), store, orch, &mockConnectivity{online: true})
	s.SetWatchSources(newMockSourceStore(csvSource("a"), csvSource("b")), nil)

	task := &domain.ScheduledTask{ID: domain.TaskIDRecordSync, Interval: time.Minute, Enabled: true}
	s.runTask(context.Background(), task)

	_, syncAlls, _ := orch.counts()
	assert.Equal(t, 1, syncAlls)
	require.Len(t, store.results, 1)
	assert.True(t, store.results[0].Success)
	assert.Equal(t, 2, store.results[0].ItemsProcessed)
	assert.False(t, task.LastSuccess.IsZero())
	assert.True(t, task.NextRun.After(task.LastRun))
	assert.Equal(t, 1, store.pruned)
}

func TestScheduler_RunTask_RecordSyncFailures(t *testing.T) {
	store := newMockSchedulerStore()
	orch := &mockOrchestrator{failures: map[string]error{"b": domain.ErrSourceUnavailable}}
	s := NewScheduler(testSchedulerConfig(), store, orch, nil)
	s.SetWatchSources(newMockSourceStore(csvSource("a"), csvSource("b")), nil)

	task := &domain.ScheduledTask{ID: domain.TaskIDRecordSync, Interval: time.Minute, Enabled: true}
	s.runTask(context.Background(), task)

	require.Len(t, store.results, 1)
	assert.False(t, store.results[0].Success)
	assert.Equal(t, 1, store.results[0].ItemsProcessed)
	assert.Contains(t, task.LastError, "1 source(s)")
}

func TestScheduler_RunTask_QueueDrain(t *testing.T) {
	store := newMockSchedulerStore()
	orch := &mockOrchestrator{drainResult: domain.DrainResult{Succeeded: 2, Failed: 1}}
	s := NewScheduler(testSchedulerConfig(), store, orch, &mockConnectivity{online: true})

	task := &domain.ScheduledTask{ID: domain.TaskIDQueueDrain, Interval: time.Minute, Enabled: true}
	s.runTask(context.Background(), task)

	require.Len(t, store.results, 1)
	assert.False(t, store.results[0].Success)
	assert.Equal(t, 2, store.results[0].ItemsProcessed)
	assert.Contains(t, store.results[0].Error, "1 change(s)")
}

func TestScheduler_SkipsRemoteWorkWhileOffline(t *testing.T) {
	store := newMockSchedulerStore()
	orch := &mockOrchestrator{}
	s := NewScheduler(testSchedulerConfig(), store, orch, &mockConnectivity{online: false})

	for _, id := range []string{domain.TaskIDRecordSync, domain.TaskIDQueueDrain} {
		s.runTask(context.Background(), &domain.ScheduledTask{ID: id, Interval: time.Minute, Enabled: true})
	}

	_, syncAlls, drains := orch.counts()
	assert.Zero(t, syncAlls)
	assert.Zero(t, drains)
	require.Len(t, store.results, 2)
	assert.True(t, store.results[0].Success)
	assert.True(t, store.results[1].Success)
}

func TestScheduler_DrainOfflineErrorIsNotAFailure(t *testing.T) {
	orch := &mockOrchestrator{drainErr: domain.ErrOffline}
	s := NewScheduler(testSchedulerConfig(), newMockSchedulerStore(), orch, nil)

	n, err := s.runQueueDrain(context.Background())
	assert.NoError(t, err)
	assert.Zero(t, n)

	orch.drainErr = errors.New("disk full")
	_, err = s.runQueueDrain(context.Background())
	assert.Error(t, err)
}

func TestScheduler_RunsDueTasksOnStart(t *testing.T) {
	store := newMockSchedulerStore()
	require.NoError(t, store.SaveTask(context.Background(), &domain.ScheduledTask{
		ID:       domain.TaskIDQueueDrain,
		Interval: time.Minute,
		Enabled:  true,
	}))
	orch := &mockOrchestrator{}
	// Same interval as stored, so the task keeps its zero NextRun and is due.
	cfg := domain.SchedulerConfig{TaskConfigs: map[string]domain.TaskConfig{
		domain.TaskIDQueueDrain: {Enabled: true, Interval: time.Minute},
	}}
	s := NewScheduler(cfg, store, orch, nil)

	done := make(chan error, 1)
	go func() { done <- s.Start(context.Background()) }()

	assert.Eventually(t, func() bool {
		_, _, drains := orch.counts()
		return drains == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, s.Stop())
	require.NoError(t, <-done)
	assert.True(t, store.task(domain.TaskIDQueueDrain).NextRun.After(time.Now()))
}

func TestScheduler_SkipsTaskStillRunning(t *testing.T) {
	store := newMockSchedulerStore()
	ctx := context.Background()
	require.NoError(t, store.SaveTask(ctx, &domain.ScheduledTask{
		ID:       domain.TaskIDQueueDrain,
		Interval: time.Minute,
		Enabled:  true,
	}))
	gate := make(chan struct{})
	orch := &mockOrchestrator{drainGate: gate}
	s := NewScheduler(testSchedulerConfig(), store, orch, nil)

	s.checkAndRunDueTasks(ctx)
	assert.Eventually(t, func() bool {
		_, _, drains := orch.counts()
		return drains == 1
	}, 2*time.Second, 10*time.Millisecond)

	// Still due, since NextRun only moves once the run finishes.
	s.checkAndRunDueTasks(ctx)
	close(gate)
	s.wg.Wait()

	_, _, drains := orch.counts()
	assert.Equal(t, 1, drains)
	require.Len(t, store.results, 1)
	assert.True(t, store.results[0].Success)

	s.checkAndRunDueTasks(ctx)
	s.wg.Wait()
	_, _, drains = orch.counts()
	assert.Equal(t, 1, drains, "task is not due again until its interval passes")
}

func TestScheduler_ReconnectReplaysThenSyncs(t *testing.T) {
	network := &mockConnectivity{online: false}
	orch := &mockOrchestrator{}
	s := NewScheduler(testSchedulerConfig(), newMockSchedulerStore(), orch, network)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	require.Eventually(t, func() bool { return network.subscribers() == 1 }, 2*time.Second, 10*time.Millisecond)
	network.set(true)

	assert.Eventually(t, func() bool {
		_, syncAlls, drains := orch.counts()
		return drains == 1 && syncAlls == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	require.NoError(t, s.Stop())
}

func TestScheduler_WatchedSourceTriggersSync(t *testing.T) {
	events := make(chan struct{}, 1)
	conn := &watchingConnector{mockConnector: &mockConnector{sourceID: "a"}, events: events}
	factory := newMockConnectorFactory()
	factory.connectors["a"] = conn

	orch := &mockOrchestrator{}
	s := NewScheduler(testSchedulerConfig(), newMockSchedulerStore(), orch, nil)
	s.SetWatchSources(newMockSourceStore(csvSource("a"), csvSource("b")), factory)

	done := make(chan error, 1)
	go func() { done <- s.Start(context.Background()) }()

	events <- struct{}{}
	assert.Eventually(t, func() bool {
		syncs, _, _ := orch.counts()
		return syncs == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, s.Stop())
	require.NoError(t, <-done)
	assert.Equal(t, []string{"a"}, orch.syncs)
}

func TestScheduler_StopWhenNotRunning(t *testing.T) {
	s := NewScheduler(testSchedulerConfig(), newMockSchedulerStore(), &mockOrchestrator{}, nil)
	assert.NoError(t, s.Stop())
}
