package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/parcelsync/internal/core/domain"
	"github.com/custodia-labs/parcelsync/internal/core/ports/driven"
	"github.com/custodia-labs/parcelsync/internal/core/ports/driving"
	"github.com/custodia-labs/parcelsync/internal/logger"
)

// Ensure Scheduler implements the interface.
var _ driving.Scheduler = (*Scheduler)(nil)

// historyRetention is the number of task results kept per task.
const historyRetention = 100

// Scheduler runs periodic re-sync and queue drain, replays the queue as
// soon as connectivity returns, and re-syncs sources whose connector
// reports a local change.
type Scheduler struct {
	config       domain.SchedulerConfig
	store        driven.SchedulerStore
	syncOrch     driving.SyncOrchestrator
	connectivity driven.Connectivity

	sourceStore driven.SourceStore
	factory     driven.ConnectorFactory

	tick time.Duration

	mu       sync.Mutex
	running  bool
	inFlight map[string]bool
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewScheduler creates a scheduler with configuration.
func NewScheduler(
	config domain.SchedulerConfig,
	store driven.SchedulerStore,
	syncOrch driving.SyncOrchestrator,
	connectivity driven.Connectivity,
) *Scheduler {
	return &Scheduler{
		config:       config,
		store:        store,
		syncOrch:     syncOrch,
		connectivity: connectivity,
		tick:         tickFor(config),
		inFlight:     make(map[string]bool),
	}
}

// SetWatchSources enables change watching for connectors that support it.
func (s *Scheduler) SetWatchSources(sourceStore driven.SourceStore, factory driven.ConnectorFactory) {
	s.sourceStore = sourceStore
	s.factory = factory
}

// tickFor picks a polling period fine enough for the shortest task.
func tickFor(cfg domain.SchedulerConfig) time.Duration {
	tick := time.Minute
	for _, tc := range cfg.TaskConfigs {
		if tc.Enabled && tc.Interval > 0 && tc.Interval/2 < tick {
			tick = tc.Interval / 2
		}
	}
	if tick < time.Second {
		tick = time.Second
	}
	return tick
}

// Start begins the scheduler loop. This method blocks until Stop is called
// or ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.stopCh = make(chan struct{})
	stopCh := s.stopCh
	s.mu.Unlock()

	if err := s.initialiseTasks(ctx); err != nil {
		logger.Error("scheduler: failed to initialise tasks: %v", err)
	}
	s.watchSources(ctx, stopCh)

	return s.run(ctx, stopCh)
}

// Stop gracefully shuts down the scheduler and waits for running tasks.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

// initialiseTasks ensures all configured tasks exist in the store.
func (s *Scheduler) initialiseTasks(ctx context.Context) error {
	tasks := []struct {
		id   string
		name string
	}{
		{domain.TaskIDRecordSync, "Record Sync"},
		{domain.TaskIDQueueDrain, "Queue Drain"},
	}
	for _, t := range tasks {
		if err := s.ensureTask(ctx, t.id, t.name, s.config.GetTaskConfig(t.id)); err != nil {
			return fmt.Errorf("ensure task %s: %w", t.id, err)
		}
	}
	return nil
}

// ensureTask creates or updates a task in the store.
func (s *Scheduler) ensureTask(ctx context.Context, id, name string, cfg domain.TaskConfig) error {
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return err
	}

	if task == nil {
		task = &domain.ScheduledTask{
			ID:       id,
			Name:     name,
			Interval: cfg.Interval,
			Enabled:  cfg.Enabled,
			NextRun:  time.Now().Add(cfg.Interval),
		}
	} else {
		if task.Interval != cfg.Interval {
			task.Interval = cfg.Interval
			task.NextRun = time.Now().Add(cfg.Interval)
		}
		task.Enabled = cfg.Enabled
	}

	return s.store.SaveTask(ctx, task)
}

// run is the main scheduler loop.
func (s *Scheduler) run(ctx context.Context, stopCh <-chan struct{}) error {
	var edges <-chan bool
	if s.connectivity != nil {
		ch, cancel := s.connectivity.Subscribe()
		defer cancel()
		edges = ch
	}

	s.checkAndRunDueTasks(ctx)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stopCh:
			return nil
		case <-ticker.C:
			s.checkAndRunDueTasks(ctx)
		case online := <-edges:
			if online {
				logger.Info("scheduler: connectivity restored, replaying queue")
				s.spawn(func() { s.reconnect(ctx) })
			}
		}
	}
}

// reconnect drains the queue and then refreshes every source.
func (s *Scheduler) reconnect(ctx context.Context) {
	if _, err := s.syncOrch.Drain(ctx); err != nil && !errors.Is(err, domain.ErrOffline) {
		logger.Warn("scheduler: drain after reconnect failed: %v", err)
	}
	for id, err := range s.syncOrch.SyncAll(ctx) {
		logger.Warn("scheduler: sync of %s after reconnect failed: %v", id, err)
	}
}

// checkAndRunDueTasks finds and executes tasks that are due. A task still
// running from an earlier tick is skipped.
func (s *Scheduler) checkAndRunDueTasks(ctx context.Context) {
	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		logger.Error("scheduler: failed to list tasks: %v", err)
		return
	}

	now := time.Now()
	for i := range tasks {
		task := tasks[i]
		if !task.Due(now) || !s.claim(task.ID) {
			continue
		}
		s.spawn(func() {
			defer s.release(task.ID)
			s.runTask(ctx, &task)
		})
	}
}

// claim marks a task as running. It reports false if it already is.
func (s *Scheduler) claim(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight[id] {
		return false
	}
	s.inFlight[id] = true
	return true
}

func (s *Scheduler) release(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, id)
}

func (s *Scheduler) spawn(fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn()
	}()
}

// runTask executes a single task and records its outcome.
func (s *Scheduler) runTask(ctx context.Context, task *domain.ScheduledTask) {
	result := &domain.TaskResult{
		TaskID:    task.ID,
		StartedAt: time.Now(),
	}

	var err error
	switch task.ID {
	case domain.TaskIDRecordSync:
		result.ItemsProcessed, err = s.runRecordSync(ctx)
	case domain.TaskIDQueueDrain:
		result.ItemsProcessed, err = s.runQueueDrain(ctx)
	default:
		logger.Warn("scheduler: unknown task ID: %s", task.ID)
		return
	}

	result.EndedAt = time.Now()
	if err != nil {
		result.Error = err.Error()
		task.LastError = err.Error()
	} else {
		result.Success = true
		task.LastError = ""
		task.LastSuccess = result.EndedAt
	}

	task.LastRun = result.StartedAt
	task.NextRun = result.EndedAt.Add(task.Interval)

	if saveErr := s.store.SaveTask(ctx, task); saveErr != nil {
		logger.Error("scheduler: failed to save task %s: %v", task.ID, saveErr)
	}
	if recordErr := s.store.RecordResult(ctx, result); recordErr != nil {
		logger.Error("scheduler: failed to record result for %s: %v", task.ID, recordErr)
	}
	if pruneErr := s.store.PruneHistory(ctx, historyRetention); pruneErr != nil {
		logger.Warn("scheduler: failed to prune history: %v", pruneErr)
	}
}

// runRecordSync refreshes every source while online.
func (s *Scheduler) runRecordSync(ctx context.Context) (int, error) {
	if s.syncOrch == nil || !s.online() {
		return 0, nil
	}
	failures := s.syncOrch.SyncAll(ctx)
	synced := 0
	if s.sourceStore != nil {
		if sources, err := s.sourceStore.List(ctx); err == nil {
			synced = len(sources) - len(failures)
		}
	}
	if len(failures) > 0 {
		return synced, fmt.Errorf("%d source(s) failed to sync", len(failures))
	}
	return synced, nil
}

// runQueueDrain replays queued changes while online.
func (s *Scheduler) runQueueDrain(ctx context.Context) (int, error) {
	if s.syncOrch == nil || !s.online() {
		return 0, nil
	}
	res, err := s.syncOrch.Drain(ctx)
	if errors.Is(err, domain.ErrOffline) {
		return 0, nil
	}
	if err != nil {
		return res.Succeeded, err
	}
	if res.Failed > 0 {
		return res.Succeeded, fmt.Errorf("%d change(s) failed to replay", res.Failed)
	}
	return res.Succeeded, nil
}

// watchSources re-syncs a source whenever its connector reports a change.
func (s *Scheduler) watchSources(ctx context.Context, stopCh <-chan struct{}) {
	if s.sourceStore == nil || s.factory == nil {
		return
	}
	sources, err := s.sourceStore.List(ctx)
	if err != nil {
		logger.Warn("scheduler: cannot list sources to watch: %v", err)
		return
	}

	watchCtx, cancel := context.WithCancel(ctx)
	s.spawn(func() {
		select {
		case <-stopCh:
		case <-watchCtx.Done():
		}
		cancel()
	})

	for i := range sources {
		source := sources[i]
		conn, err := s.factory.Create(watchCtx, source)
		if err != nil {
			continue
		}
		watcher, ok := conn.(driven.Watcher)
		if !ok {
			_ = conn.Close()
			continue
		}
		events, err := watcher.Watch(watchCtx)
		if err != nil {
			logger.Warn("scheduler: cannot watch %s: %v", source.ID, err)
			_ = conn.Close()
			continue
		}
		logger.Debug("scheduler: watching %s for changes", source.ID)
		s.spawn(func() {
			defer conn.Close()
			for {
				select {
				case <-watchCtx.Done():
					return
				case _, ok := <-events:
					if !ok {
						return
					}
					if _, err := s.syncOrch.Sync(watchCtx, source.ID); err != nil {
						logger.Warn("scheduler: sync of changed source %s failed: %v", source.ID, err)
					}
				}
			}
		})
	}
}

func (s *Scheduler) online() bool {
	return s.connectivity == nil || s.connectivity.Online()
}
