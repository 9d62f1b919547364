package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/custodia-labs/parcelsync/internal/core/domain"
	"github.com/custodia-labs/parcelsync/internal/core/ports/driven"
)

// changeStore implements driven.ChangeStore. The autoincrement seq column
// fixes replay order independently of clock skew.
type changeStore struct {
	store *Store
}

var _ driven.ChangeStore = (*changeStore)(nil)

// Append adds a change at the tail of the queue.
func (s *changeStore) Append(ctx context.Context, change domain.PendingChange) error {
	if change.ID == "" {
		return domain.ErrInvalidInput
	}
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO pending_changes
			(id, source_id, target_id, tracking_number, new_status, update_type, enqueued_at, retry_count, last_error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, change.ID, change.SourceID, change.TargetID, change.TrackingNumber,
		string(change.NewStatus), string(change.UpdateType), formatTime(change.EnqueuedAt),
		change.RetryCount, nullString(change.LastError))
	if err != nil {
		return fmt.Errorf("appending change: %w", err)
	}
	return nil
}

// List returns every queued change in enqueue order.
func (s *changeStore) List(ctx context.Context) ([]domain.PendingChange, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, source_id, target_id, tracking_number, new_status, update_type, enqueued_at, retry_count, last_error
		FROM pending_changes
		ORDER BY seq
	`)
	if err != nil {
		return nil, fmt.Errorf("querying pending changes: %w", err)
	}
	defer rows.Close()

	var changes []domain.PendingChange //nolint:prealloc // size unknown from query
	for rows.Next() {
		var c domain.PendingChange
		var status, updateType, enqueuedAt string
		var lastError sql.NullString
		if err := rows.Scan(&c.ID, &c.SourceID, &c.TargetID, &c.TrackingNumber,
			&status, &updateType, &enqueuedAt, &c.RetryCount, &lastError); err != nil {
			return nil, fmt.Errorf("scanning pending change: %w", err)
		}
		c.NewStatus = domain.Status(status)
		c.UpdateType = domain.UpdateType(updateType)
		c.EnqueuedAt = parseTime(enqueuedAt)
		c.LastError = lastError.String
		changes = append(changes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating pending changes: %w", err)
	}
	return changes, nil
}

// Remove deletes a change by ID.
func (s *changeStore) Remove(ctx context.Context, id string) error {
	res, err := s.store.db.ExecContext(ctx, "DELETE FROM pending_changes WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("removing change: %w", err)
	}
	return requireAffected(res)
}

// MarkFailed increments a change's retry count and records the error.
func (s *changeStore) MarkFailed(ctx context.Context, id string, lastError string) error {
	res, err := s.store.db.ExecContext(ctx, `
		UPDATE pending_changes SET retry_count = retry_count + 1, last_error = ? WHERE id = ?
	`, nullString(lastError), id)
	if err != nil {
		return fmt.Errorf("marking change failed: %w", err)
	}
	return requireAffected(res)
}

// Count returns the number of queued changes.
func (s *changeStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM pending_changes").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting pending changes: %w", err)
	}
	return n, nil
}
