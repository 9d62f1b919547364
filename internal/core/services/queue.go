package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/parcelsync/internal/core/domain"
	"github.com/custodia-labs/parcelsync/internal/core/ports/driven"
	"github.com/custodia-labs/parcelsync/internal/core/ports/driving"
	"github.com/custodia-labs/parcelsync/internal/logger"
)

// Ensure ChangeQueue implements the interface.
var _ driving.ChangeQueue = (*ChangeQueue)(nil)

// ChangeQueue is the durable FIFO of status changes awaiting replay.
// Entries are never dropped by the queue itself; only a successful replay
// or an explicit Discard removes them.
type ChangeQueue struct {
	store driven.ChangeStore
	now   func() time.Time

	// drainMu admits one drain pass at a time.
	drainMu sync.Mutex
}

// NewChangeQueue creates a change queue backed by store.
func NewChangeQueue(store driven.ChangeStore) *ChangeQueue {
	return &ChangeQueue{store: store, now: time.Now}
}

// Enqueue stamps and persists a change. The returned count includes it.
func (q *ChangeQueue) Enqueue(ctx context.Context, change domain.PendingChange) (int, error) {
	if q.store == nil {
		return 0, domain.ErrNotImplemented
	}
	if change.SourceID == "" || (change.TargetID == "" && change.TrackingNumber == "") {
		return 0, fmt.Errorf("%w: change needs a source and a target", domain.ErrInvalidInput)
	}
	if !change.NewStatus.IsValid() {
		return 0, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidInput, change.NewStatus)
	}
	if change.UpdateType == "" {
		change.UpdateType = domain.UpdateSingle
	}
	if !change.UpdateType.IsValid() {
		return 0, fmt.Errorf("%w: unknown update type %q", domain.ErrInvalidInput, change.UpdateType)
	}

	if change.ID == "" {
		change.ID = uuid.NewString()
	}
	if change.EnqueuedAt.IsZero() {
		change.EnqueuedAt = q.now()
	}
	change.RetryCount = 0
	change.LastError = ""

	if err := q.store.Append(ctx, change); err != nil {
		return 0, fmt.Errorf("enqueue change: %w", err)
	}
	logger.Debug("Queued %s change %s for %s/%s", change.UpdateType, change.ID, change.SourceID, change.TrackingNumber)
	return q.store.Count(ctx)
}

// Drain replays queued changes strictly in enqueue order, one at a time.
//
// A successful replay removes the entry. A failed replay keeps it, bumps its
// retry count and records the error; later entries for the same target are
// deferred for the rest of the pass so they cannot overtake it. A batch
// change covers records other than its target, so a failed batch defers
// every later entry of its source, and a later batch is deferred once any
// entry of its source has failed. Entries enqueued while the pass runs are
// left for the next pass.
func (q *ChangeQueue) Drain(ctx context.Context, apply driving.ApplyFunc) (domain.DrainResult, error) {
	var result domain.DrainResult
	if q.store == nil {
		return result, domain.ErrNotImplemented
	}
	if !q.drainMu.TryLock() {
		return result, domain.ErrDrainInProgress
	}
	defer q.drainMu.Unlock()

	entries, err := q.store.List(ctx)
	if err != nil {
		return result, fmt.Errorf("list queue: %w", err)
	}
	if len(entries) == 0 {
		return result, nil
	}

	logger.Section("Queue Drain")
	logger.Debug("Replaying %d queued changes", len(entries))

	blocked := make(map[string]bool)
	failedSources := make(map[string]bool)
	blockedSources := make(map[string]bool)
	for i := range entries {
		change := entries[i]
		if err := ctx.Err(); err != nil {
			return result, err
		}

		key := targetKey(change)
		batch := change.UpdateType == domain.UpdateBatch
		if blocked[key] || blockedSources[change.SourceID] || (batch && failedSources[change.SourceID]) {
			result.Deferred++
			continue
		}

		if err := apply(ctx, change); err != nil {
			result.Failed++
			blocked[key] = true
			failedSources[change.SourceID] = true
			if batch {
				blockedSources[change.SourceID] = true
			}
			logger.Warn("Replay of change %s failed (attempt %d): %v", change.ID, change.RetryCount+1, err)
			if markErr := q.store.MarkFailed(ctx, change.ID, err.Error()); markErr != nil {
				logger.Error("Failed to record replay failure for %s: %v", change.ID, markErr)
			}
			continue
		}

		if err := q.store.Remove(ctx, change.ID); err != nil {
			return result, fmt.Errorf("remove replayed change %s: %w", change.ID, err)
		}
		result.Succeeded++
	}

	logger.Info("Drain finished: %d succeeded, %d failed, %d deferred",
		result.Succeeded, result.Failed, result.Deferred)
	return result, nil
}

// PendingCount returns the number of queued changes.
func (q *ChangeQueue) PendingCount(ctx context.Context) (int, error) {
	if q.store == nil {
		return 0, domain.ErrNotImplemented
	}
	return q.store.Count(ctx)
}

// List returns queued changes in enqueue order.
func (q *ChangeQueue) List(ctx context.Context) ([]domain.PendingChange, error) {
	if q.store == nil {
		return nil, domain.ErrNotImplemented
	}
	return q.store.List(ctx)
}

// Discard removes a queued change without replaying it.
func (q *ChangeQueue) Discard(ctx context.Context, id string) error {
	if q.store == nil {
		return domain.ErrNotImplemented
	}
	if id == "" {
		return domain.ErrInvalidInput
	}
	if err := q.store.Remove(ctx, id); err != nil {
		return err
	}
	logger.Info("Discarded queued change %s", id)
	return nil
}

// targetKey identifies the record a change targets within its source.
func targetKey(c domain.PendingChange) string {
	if c.TargetID != "" {
		return c.SourceID + "\x00" + c.TargetID
	}
	return c.SourceID + "\x00#" + c.TrackingNumber
}
