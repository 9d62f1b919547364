package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/parcelsync/internal/core/domain"
	"github.com/custodia-labs/parcelsync/internal/core/ports/driven"
	"github.com/custodia-labs/parcelsync/internal/logger"
)

// remoteView is a source's current rows as seen by one drain pass.
type remoteView struct {
	conn    driven.Connector
	mapping *domain.FieldMapping
	records []domain.DeliveryRecord
}

// replayer pushes queued changes for one drain pass. Each source is
// fetched at most once per pass; a failed fetch fails every entry of that
// source for the rest of the pass.
type replayer struct {
	o      *SyncOrchestrator
	views  map[string]*remoteView
	failed map[string]error
}

func newReplayer(o *SyncOrchestrator) *replayer {
	return &replayer{
		o:      o,
		views:  make(map[string]*remoteView),
		failed: make(map[string]error),
	}
}

func (r *replayer) close() {
	for id, v := range r.views {
		if err := v.conn.Close(); err != nil {
			logger.Warn("Failed to close connector for %s: %v", id, err)
		}
	}
}

// apply re-resolves a change against the current remote rows and pushes it.
func (r *replayer) apply(ctx context.Context, change domain.PendingChange) error {
	view, err := r.view(ctx, change.SourceID)
	if err != nil {
		return err
	}

	target, ok := domain.ResolveRecord(view.records, change.TargetID, change.TrackingNumber)
	if !ok {
		return fmt.Errorf("%w: record %s is no longer in source %s",
			domain.ErrMutationRejected, change.TrackingNumber, change.SourceID)
	}

	affected := []domain.RecordRef{target.Ref()}
	if change.UpdateType == domain.UpdateBatch {
		anchor := *target
		affected = affected[:0]
		for i := range view.records {
			if domain.SameCustomer(&anchor, &view.records[i]) {
				affected = append(affected, view.records[i].Ref())
			}
		}
	}

	statusDate := domain.FormatStatusDate(change.EnqueuedAt)
	update := domain.StatusUpdate{
		SourceID:   change.SourceID,
		Mapping:    view.mapping,
		Target:     target.Ref(),
		Affected:   affected,
		Status:     change.NewStatus,
		StatusDate: statusDate,
		UpdateType: change.UpdateType,
	}

	pushCtx, cancel := r.o.remoteContext(ctx)
	defer cancel()
	if err := view.conn.PushStatus(pushCtx, update); err != nil {
		return err
	}
	logger.Debug("Pushed %s for %d record(s) of %s", change.NewStatus, len(affected), change.SourceID)

	// Later entries in this pass must see the pushed state.
	for _, ref := range affected {
		if rec, ok := domain.ResolveRecord(view.records, ref.ID, ref.TrackingNumber); ok {
			rec.ApplyStatus(change.NewStatus, statusDate)
		}
	}

	r.o.confirm(ctx, change, affected, statusDate)
	return nil
}

// view fetches and normalises a source once per pass.
func (r *replayer) view(ctx context.Context, sourceID string) (*remoteView, error) {
	if v, ok := r.views[sourceID]; ok {
		return v, nil
	}
	if err, ok := r.failed[sourceID]; ok {
		return nil, err
	}

	v, err := r.load(ctx, sourceID)
	if err != nil {
		r.failed[sourceID] = err
		return nil, err
	}
	r.views[sourceID] = v
	return v, nil
}

func (r *replayer) load(ctx context.Context, sourceID string) (*remoteView, error) {
	o := r.o
	source, err := o.sourceStore.Get(ctx, sourceID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrNoSource, sourceID)
		}
		return nil, fmt.Errorf("get source: %w", err)
	}
	if o.factory == nil {
		return nil, fmt.Errorf("create connector: connector factory not configured")
	}
	conn, err := o.factory.Create(ctx, *source)
	if err != nil {
		return nil, fmt.Errorf("create connector: %w", err)
	}

	fetchCtx, cancel := o.remoteContext(ctx)
	defer cancel()
	sheet, err := conn.FetchRows(fetchCtx)
	if err == nil && (sheet == nil || sheet.Width() == 0) {
		err = fmt.Errorf("%w: source %s has no columns", domain.ErrSourceMalformed, sourceID)
	}
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	cached, err := o.cachedSnapshot(ctx, sourceID)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	var prior *domain.FieldMapping
	if cached != nil {
		prior = cached.Mapping
	}
	mapping, err := o.mappingFor(ctx, sourceID, sheet, prior)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	return &remoteView{
		conn:    conn,
		mapping: mapping,
		records: o.normaliser.Normalise(sheet, mapping),
	}, nil
}

// confirm mirrors a pushed change into the cached snapshot and the status
// history. Changes still queued for the source are re-applied on top so a
// confirmed older status cannot mask a newer optimistic one.
func (o *SyncOrchestrator) confirm(ctx context.Context, change domain.PendingChange, affected []domain.RecordRef, statusDate string) {
	o.snapMu.Lock()
	snap, err := o.cachedSnapshot(ctx, change.SourceID)
	if err == nil && snap != nil {
		for _, ref := range affected {
			if rec, ok := snap.Resolve(ref.ID, ref.TrackingNumber); ok {
				rec.ApplyStatus(change.NewStatus, statusDate)
			}
		}
		if err = o.overlayPending(ctx, change.SourceID, snap.Records, change.ID); err == nil {
			err = o.snapshotStore.Save(ctx, snap)
		}
	}
	o.snapMu.Unlock()
	if err != nil {
		logger.Warn("Failed to mirror confirmed change %s into cache: %v", change.ID, err)
	}

	if o.historyStore == nil {
		return
	}
	appliedAt := o.now()
	for _, ref := range affected {
		event := domain.StatusEvent{
			SourceID:       change.SourceID,
			RecordID:       ref.ID,
			TrackingNumber: ref.TrackingNumber,
			Status:         change.NewStatus,
			UpdateType:     change.UpdateType,
			AppliedAt:      appliedAt,
		}
		if err := o.historyStore.Record(ctx, event); err != nil {
			logger.Warn("Failed to record status history for %s: %v", ref.TrackingNumber, err)
		}
	}
}
