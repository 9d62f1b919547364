package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/parcelsync/internal/core/domain"
)

// SyncOrchestrator keeps local delivery records in step with their sources.
type SyncOrchestrator interface {
	// Sync fetches, classifies and normalises a source and returns the
	// resulting snapshot. When the source cannot be reached the cached
	// snapshot is returned with FromCache set.
	Sync(ctx context.Context, sourceID string) (*domain.Snapshot, error)

	// SyncAll syncs every configured source. Failures are reported per
	// source in the returned map.
	SyncAll(ctx context.Context) map[string]error

	// Records returns the cached snapshot without contacting the source.
	Records(ctx context.Context, sourceID string) (*domain.Snapshot, error)

	// Groups returns cached records grouped by customer.
	Groups(ctx context.Context, sourceID string) ([]domain.CustomerGroup, error)

	// SetStatus applies a status change locally, queues it, and pushes it
	// when online. It returns the records the change touched.
	SetStatus(ctx context.Context, req StatusRequest) ([]domain.RecordRef, error)

	// Drain replays queued changes against their sources.
	// Returns domain.ErrOffline when connectivity is down.
	Drain(ctx context.Context) (domain.DrainResult, error)

	// Status reports the sync session state of a source.
	Status(ctx context.Context, sourceID string) (*SyncStatus, error)
}

// StatusRequest describes a status change requested by a user.
type StatusRequest struct {
	SourceID string
	// RecordID or TrackingNumber identifies the target record.
	RecordID       string
	TrackingNumber string
	Status         domain.Status
	UpdateType     domain.UpdateType
}

// SyncState is the session state of a source. A session is Idle between
// syncs and Fetching during one; Success and UsingCache are the outcomes a
// finished sync leaves in SyncStatus.LastOutcome.
type SyncState string

// Sync session states.
const (
	SyncIdle       SyncState = "idle"
	SyncFetching   SyncState = "fetching"
	SyncSuccess    SyncState = "success"
	SyncUsingCache SyncState = "using_cache"
)

// SyncStatus represents the current state of a source's sync session.
type SyncStatus struct {
	// SourceID identifies the source.
	SourceID string

	// State is the session state.
	State SyncState

	// LastOutcome is how the last completed sync ended: SyncSuccess,
	// SyncUsingCache, or empty when it failed or none has run.
	LastOutcome SyncState

	// Online reports current connectivity.
	Online bool

	// LastSynced is when the snapshot was last refreshed from the source.
	LastSynced time.Time

	// Records is the number of cached records.
	Records int

	// PendingChanges is the number of queued changes for the source.
	PendingChanges int

	// NeedsReview lists required fields whose mapping is uncertain.
	NeedsReview []domain.Field

	// LastError is the most recent sync failure, if any.
	LastError string
}
