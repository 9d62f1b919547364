package driving

import (
	"context"

	"github.com/custodia-labs/parcelsync/internal/core/domain"
)

// ApplyFunc replays one queued change against its source.
type ApplyFunc func(ctx context.Context, change domain.PendingChange) error

// ChangeQueue is the durable FIFO of status changes awaiting replay.
type ChangeQueue interface {
	// Enqueue persists a change and returns the new queue length.
	Enqueue(ctx context.Context, change domain.PendingChange) (int, error)

	// Drain replays queued changes in enqueue order.
	// Returns domain.ErrDrainInProgress if another drain is running.
	Drain(ctx context.Context, apply ApplyFunc) (domain.DrainResult, error)

	// PendingCount returns the number of queued changes.
	PendingCount(ctx context.Context) (int, error)

	// List returns queued changes in enqueue order.
	List(ctx context.Context) ([]domain.PendingChange, error)

	// Discard removes a queued change without replaying it.
	Discard(ctx context.Context, id string) error
}
