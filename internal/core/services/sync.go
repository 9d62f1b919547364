package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/custodia-labs/parcelsync/internal/core/classifier"
	"github.com/custodia-labs/parcelsync/internal/core/domain"
	"github.com/custodia-labs/parcelsync/internal/core/normaliser"
	"github.com/custodia-labs/parcelsync/internal/core/ports/driven"
	"github.com/custodia-labs/parcelsync/internal/core/ports/driving"
	"github.com/custodia-labs/parcelsync/internal/logger"
)

// Ensure SyncOrchestrator implements the interface.
var _ driving.SyncOrchestrator = (*SyncOrchestrator)(nil)

// SyncOrchestrator keeps cached delivery records in step with their
// sources and replays queued status changes.
//
// Fetches are single-flight per source. The fetch/reconcile/write phase of
// a sync and every drain pass hold remoteMu, so they never interleave.
// Local snapshot read-modify-writes hold snapMu.
type SyncOrchestrator struct {
	sourceStore   driven.SourceStore
	snapshotStore driven.SnapshotStore
	mappingStore  driven.MappingHistoryStore
	historyStore  driven.StatusHistoryStore
	factory       driven.ConnectorFactory
	queue         *ChangeQueue
	connectivity  driven.Connectivity
	classifier    *classifier.Classifier
	normaliser    *normaliser.Normaliser

	timeout time.Duration
	now     func() time.Time

	flight   singleflight.Group
	remoteMu sync.Mutex
	snapMu   sync.Mutex

	mu       sync.RWMutex
	sessions map[string]*session
}

// session tracks the sync state machine of one source.
type session struct {
	state   driving.SyncState
	outcome driving.SyncState
	lastErr string
}

// NewSyncOrchestrator creates a new sync orchestrator.
func NewSyncOrchestrator(
	sourceStore driven.SourceStore,
	snapshotStore driven.SnapshotStore,
	mappingStore driven.MappingHistoryStore,
	factory driven.ConnectorFactory,
	queue *ChangeQueue,
	connectivity driven.Connectivity,
	cls *classifier.Classifier,
	norm *normaliser.Normaliser,
) *SyncOrchestrator {
	return &SyncOrchestrator{
		sourceStore:   sourceStore,
		snapshotStore: snapshotStore,
		mappingStore:  mappingStore,
		factory:       factory,
		queue:         queue,
		connectivity:  connectivity,
		classifier:    cls,
		normaliser:    norm,
		now:           time.Now,
		sessions:      make(map[string]*session),
	}
}

// SetStatusHistory sets the optional store that receives confirmed changes.
func (o *SyncOrchestrator) SetStatusHistory(store driven.StatusHistoryStore) {
	o.historyStore = store
}

// SetRemoteTimeout bounds every fetch and push. Zero means no bound beyond
// the caller's context.
func (o *SyncOrchestrator) SetRemoteTimeout(d time.Duration) {
	o.timeout = d
}

// Sync fetches a source and returns its refreshed snapshot, or the cached
// one when the source cannot be reached. Concurrent calls for the same
// source share one fetch; each caller still honours its own context.
func (o *SyncOrchestrator) Sync(ctx context.Context, sourceID string) (*domain.Snapshot, error) {
	if sourceID == "" {
		return nil, domain.ErrInvalidInput
	}

	ch := o.flight.DoChan(sourceID, func() (any, error) {
		return o.sync(context.WithoutCancel(ctx), sourceID)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		snap, _ := res.Val.(*domain.Snapshot)
		return snap.Clone(), nil
	}
}

// SyncAll syncs every configured source and reports failures per source.
func (o *SyncOrchestrator) SyncAll(ctx context.Context) map[string]error {
	failures := make(map[string]error)
	sources, err := o.sourceStore.List(ctx)
	if err != nil {
		failures[""] = fmt.Errorf("list sources: %w", err)
		return failures
	}
	for i := range sources {
		if _, err := o.Sync(ctx, sources[i].ID); err != nil {
			logger.Warn("Sync of %s failed: %v", sources[i].ID, err)
			failures[sources[i].ID] = err
		}
	}
	return failures
}

func (o *SyncOrchestrator) sync(ctx context.Context, sourceID string) (*domain.Snapshot, error) {
	logger.Section("Sync " + sourceID)
	o.setSession(sourceID, driving.SyncFetching, nil)

	source, err := o.sourceStore.Get(ctx, sourceID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return o.fromCache(ctx, sourceID, domain.ErrNoSource)
		}
		o.setSession(sourceID, driving.SyncIdle, err)
		return nil, fmt.Errorf("get source: %w", err)
	}

	if !o.online() {
		return o.fromCache(ctx, sourceID, domain.ErrOffline)
	}

	o.remoteMu.Lock()
	defer o.remoteMu.Unlock()

	sheet, err := o.fetch(ctx, source)
	if err != nil {
		if errors.Is(err, domain.ErrSourceMalformed) {
			logger.Error("Source %s returned unusable data: %v", sourceID, err)
			o.setSession(sourceID, driving.SyncIdle, err)
			return nil, err
		}
		logger.Warn("Fetch of %s failed, falling back to cache: %v", sourceID, err)
		return o.fromCache(ctx, sourceID, err)
	}
	logger.Debug("Fetched %d rows x %d columns", len(sheet.Rows), sheet.Width())

	o.snapMu.Lock()
	defer o.snapMu.Unlock()

	cached, err := o.cachedSnapshot(ctx, sourceID)
	if err != nil {
		o.setSession(sourceID, driving.SyncIdle, err)
		return nil, err
	}

	snap, err := o.reconcile(ctx, sourceID, sheet, cached)
	if err != nil {
		o.setSession(sourceID, driving.SyncIdle, err)
		return nil, err
	}
	if err := o.snapshotStore.Save(ctx, snap); err != nil {
		o.setSession(sourceID, driving.SyncIdle, err)
		return nil, fmt.Errorf("save snapshot: %w", err)
	}

	logger.Info("Synced %s: %d records", sourceID, len(snap.Records))
	o.setSession(sourceID, driving.SyncSuccess, nil)
	return snap, nil
}

// fetch reads the raw sheet of a source within the remote timeout.
func (o *SyncOrchestrator) fetch(ctx context.Context, source *domain.Source) (*domain.Sheet, error) {
	if o.factory == nil {
		return nil, fmt.Errorf("create connector: connector factory not configured")
	}
	conn, err := o.factory.Create(ctx, *source)
	if err != nil {
		return nil, fmt.Errorf("create connector: %w", err)
	}
	defer conn.Close()

	fetchCtx, cancel := o.remoteContext(ctx)
	defer cancel()
	sheet, err := conn.FetchRows(fetchCtx)
	if err != nil {
		return nil, err
	}
	if sheet == nil || sheet.Width() == 0 {
		return nil, fmt.Errorf("%w: source %s has no columns", domain.ErrSourceMalformed, source.ID)
	}
	return sheet, nil
}

// fromCache serves the cached snapshot after cause prevented a fetch.
func (o *SyncOrchestrator) fromCache(ctx context.Context, sourceID string, cause error) (*domain.Snapshot, error) {
	cached, err := o.cachedSnapshot(ctx, sourceID)
	if err != nil {
		o.setSession(sourceID, driving.SyncIdle, err)
		return nil, err
	}
	if cached != nil {
		cached.FromCache = true
		o.setSession(sourceID, driving.SyncUsingCache, cause)
		logger.Info("Serving cached snapshot for %s (%v)", sourceID, cause)
		return cached, nil
	}

	o.setSession(sourceID, driving.SyncIdle, cause)
	switch {
	case errors.Is(cause, domain.ErrNoSource), errors.Is(cause, domain.ErrSourceUnavailable):
		return nil, cause
	default:
		return nil, fmt.Errorf("%w: %w", domain.ErrSourceUnavailable, cause)
	}
}

// cachedSnapshot returns the stored snapshot, or nil when none exists.
func (o *SyncOrchestrator) cachedSnapshot(ctx context.Context, sourceID string) (*domain.Snapshot, error) {
	snap, err := o.snapshotStore.Get(ctx, sourceID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return snap, nil
}

// reconcile builds a fresh snapshot from a fetched sheet. The cached
// mapping is reused while the header set is unchanged; otherwise the sheet
// is re-classified with the cached mapping as prior.
func (o *SyncOrchestrator) reconcile(ctx context.Context, sourceID string, sheet *domain.Sheet, cached *domain.Snapshot) (*domain.Snapshot, error) {
	var prior *domain.FieldMapping
	if cached != nil {
		prior = cached.Mapping
	}

	mapping, err := o.mappingFor(ctx, sourceID, sheet, prior)
	if err != nil {
		return nil, err
	}

	records := o.normaliser.Normalise(sheet, mapping)
	if err := o.overlayPending(ctx, sourceID, records, ""); err != nil {
		return nil, err
	}

	return &domain.Snapshot{
		SourceID:   sourceID,
		Records:    records,
		Mapping:    mapping,
		Sheet:      sheet,
		HeaderHash: mapping.HeaderHash,
		SyncedAt:   o.now(),
	}, nil
}

// mappingFor returns the mapping to normalise sheet with.
func (o *SyncOrchestrator) mappingFor(ctx context.Context, sourceID string, sheet *domain.Sheet, prior *domain.FieldMapping) (*domain.FieldMapping, error) {
	hash := domain.HeaderHash(sheet.Headers)
	if prior != nil && prior.HeaderHash == hash {
		logger.Debug("Headers unchanged, reusing mapping")
		return prior.Clone(), nil
	}

	var history []*domain.FieldMapping
	if o.mappingStore != nil {
		recent, err := o.mappingStore.Recent(ctx, sourceID, o.classifier.Config().HistoryLimit)
		if err != nil {
			logger.Warn("Mapping history unavailable: %v", err)
		}
		history = recent
	}

	mapping, err := o.classifier.Classify(sheet, classifier.Options{
		SourceID: sourceID,
		Prior:    prior,
		History:  history,
	})
	if err != nil {
		return nil, fmt.Errorf("classify columns: %w", err)
	}
	if len(mapping.NeedsReview) > 0 {
		logger.Warn("%v", &domain.MappingIncompleteError{SourceID: sourceID, Fields: mapping.NeedsReview})
	}

	if o.mappingStore != nil {
		if err := o.mappingStore.Record(ctx, mapping); err != nil {
			logger.Warn("Failed to record mapping history: %v", err)
		}
	}
	return mapping, nil
}

// overlayPending re-applies queued changes for a source, in enqueue order,
// so optimistic statuses survive a refresh. skipID excludes one entry.
func (o *SyncOrchestrator) overlayPending(ctx context.Context, sourceID string, records []domain.DeliveryRecord, skipID string) error {
	if o.queue == nil {
		return nil
	}
	pending, err := o.queue.List(ctx)
	if err != nil {
		return fmt.Errorf("list pending changes: %w", err)
	}
	for i := range pending {
		c := pending[i]
		if c.SourceID != sourceID || c.ID == skipID {
			continue
		}
		target, ok := domain.ResolveRecord(records, c.TargetID, c.TrackingNumber)
		if !ok {
			continue
		}
		domain.ApplyChange(records, target, c.NewStatus, domain.FormatStatusDate(c.EnqueuedAt), c.UpdateType)
	}
	return nil
}

// Records returns the cached snapshot of a source.
func (o *SyncOrchestrator) Records(ctx context.Context, sourceID string) (*domain.Snapshot, error) {
	snap, err := o.snapshotStore.Get(ctx, sourceID)
	if err != nil {
		return nil, fmt.Errorf("records for %s: %w", sourceID, err)
	}
	return snap, nil
}

// Groups returns the cached records of a source grouped by customer.
func (o *SyncOrchestrator) Groups(ctx context.Context, sourceID string) ([]domain.CustomerGroup, error) {
	snap, err := o.Records(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	return domain.GroupRecords(snap.Records), nil
}

// SetStatus applies a status change to the cached snapshot, queues it and,
// when online, replays the queue straight away. The change is queued before
// anything else is written, so it survives a crash or a failed push.
func (o *SyncOrchestrator) SetStatus(ctx context.Context, req driving.StatusRequest) ([]domain.RecordRef, error) {
	if !req.Status.IsValid() {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidInput, req.Status)
	}
	if req.UpdateType == "" {
		req.UpdateType = domain.UpdateSingle
	}
	if !req.UpdateType.IsValid() {
		return nil, fmt.Errorf("%w: unknown update type %q", domain.ErrInvalidInput, req.UpdateType)
	}
	if o.queue == nil {
		return nil, domain.ErrNotImplemented
	}

	changed, err := o.applyLocal(ctx, req)
	if err != nil {
		return nil, err
	}

	if o.online() {
		if _, err := o.Drain(ctx); err != nil {
			logger.Warn("Immediate replay failed, change stays queued: %v", err)
		}
	}
	return changed, nil
}

func (o *SyncOrchestrator) applyLocal(ctx context.Context, req driving.StatusRequest) ([]domain.RecordRef, error) {
	o.snapMu.Lock()
	defer o.snapMu.Unlock()

	snap, err := o.snapshotStore.Get(ctx, req.SourceID)
	if err != nil {
		return nil, fmt.Errorf("records for %s: %w", req.SourceID, err)
	}
	target, ok := snap.Resolve(req.RecordID, req.TrackingNumber)
	if !ok {
		return nil, fmt.Errorf("%w: record %s%s", domain.ErrNotFound, req.RecordID, req.TrackingNumber)
	}

	now := o.now()
	change := domain.PendingChange{
		SourceID:       req.SourceID,
		TargetID:       target.ID,
		TrackingNumber: target.TrackingNumber,
		NewStatus:      req.Status,
		UpdateType:     req.UpdateType,
		EnqueuedAt:     now,
	}
	if _, err := o.queue.Enqueue(ctx, change); err != nil {
		return nil, err
	}

	changed := domain.ApplyChange(snap.Records, target, req.Status, domain.FormatStatusDate(now), req.UpdateType)
	if err := o.snapshotStore.Save(ctx, snap); err != nil {
		logger.Error("Failed to save optimistic snapshot for %s: %v", req.SourceID, err)
	}
	logger.Info("Set %d record(s) of %s to %s", len(changed), req.SourceID, req.Status)
	return changed, nil
}

// Drain replays the change queue against the sources.
func (o *SyncOrchestrator) Drain(ctx context.Context) (domain.DrainResult, error) {
	if o.queue == nil {
		return domain.DrainResult{}, domain.ErrNotImplemented
	}
	if !o.online() {
		return domain.DrainResult{}, domain.ErrOffline
	}

	o.remoteMu.Lock()
	defer o.remoteMu.Unlock()

	r := newReplayer(o)
	defer r.close()
	return o.queue.Drain(ctx, r.apply)
}

// Status reports the session state of a source.
func (o *SyncOrchestrator) Status(ctx context.Context, sourceID string) (*driving.SyncStatus, error) {
	status := &driving.SyncStatus{
		SourceID: sourceID,
		State:    driving.SyncIdle,
		Online:   o.online(),
	}

	o.mu.RLock()
	if s, ok := o.sessions[sourceID]; ok {
		status.State = s.state
		status.LastOutcome = s.outcome
		status.LastError = s.lastErr
	}
	o.mu.RUnlock()

	snap, err := o.cachedSnapshot(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	if snap != nil {
		status.LastSynced = snap.SyncedAt
		status.Records = len(snap.Records)
		if snap.Mapping != nil {
			status.NeedsReview = append([]domain.Field(nil), snap.Mapping.NeedsReview...)
		}
	}

	if o.queue != nil {
		pending, err := o.queue.List(ctx)
		if err != nil {
			return nil, err
		}
		for i := range pending {
			if pending[i].SourceID == sourceID {
				status.PendingChanges++
			}
		}
	}
	return status, nil
}

func (o *SyncOrchestrator) online() bool {
	return o.connectivity == nil || o.connectivity.Online()
}

func (o *SyncOrchestrator) remoteContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, o.timeout)
}

// setSession records a state transition. Success and UsingCache end the
// sync: the session returns to Idle and keeps them as its last outcome.
func (o *SyncOrchestrator) setSession(sourceID string, state driving.SyncState, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	s, ok := o.sessions[sourceID]
	if !ok {
		s = &session{}
		o.sessions[sourceID] = s
	}
	switch state {
	case driving.SyncSuccess, driving.SyncUsingCache:
		s.state = driving.SyncIdle
		s.outcome = state
	case driving.SyncIdle:
		s.state = state
		s.outcome = ""
	default:
		s.state = state
	}
	if err != nil {
		s.lastErr = err.Error()
	} else if state != driving.SyncFetching {
		s.lastErr = ""
	}
}
