package driven

import (
	"context"

	"github.com/custodia-labs/parcelsync/internal/core/domain"
)

// ChangeStore persists the offline change queue.
// Entries are returned in the order they were appended.
type ChangeStore interface {
	// Append adds a change at the tail of the queue.
	Append(ctx context.Context, change domain.PendingChange) error

	// List returns every queued change in enqueue order.
	List(ctx context.Context) ([]domain.PendingChange, error)

	// Remove deletes a change by ID.
	// Returns domain.ErrNotFound if no such change is queued.
	Remove(ctx context.Context, id string) error

	// MarkFailed increments a change's retry count and records the error.
	MarkFailed(ctx context.Context, id string, lastError string) error

	// Count returns the number of queued changes.
	Count(ctx context.Context) (int, error)
}
