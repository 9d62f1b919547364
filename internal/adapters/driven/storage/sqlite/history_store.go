package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/custodia-labs/parcelsync/internal/core/domain"
	"github.com/custodia-labs/parcelsync/internal/core/ports/driven"
)

// ==================== Mapping History Store ====================

// mappingHistoryStore implements driven.MappingHistoryStore.
type mappingHistoryStore struct {
	store *Store
}

var _ driven.MappingHistoryStore = (*mappingHistoryStore)(nil)

// mappingRetention caps stored mappings per source.
const mappingRetention = 20

// Record appends an accepted mapping and trims old entries for its source.
func (s *mappingHistoryStore) Record(ctx context.Context, mapping *domain.FieldMapping) error {
	if mapping == nil || mapping.SourceID == "" {
		return domain.ErrInvalidInput
	}
	data, err := json.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("marshalling mapping: %w", err)
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO mapping_history (source_id, header_hash, mapping, recorded_at)
		VALUES (?, ?, ?, ?)
	`, mapping.SourceID, mapping.HeaderHash, string(data), formatTime(time.Now())); err != nil {
		return fmt.Errorf("recording mapping: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM mapping_history
		WHERE source_id = ? AND id NOT IN (
			SELECT id FROM mapping_history WHERE source_id = ? ORDER BY id DESC LIMIT ?
		)
	`, mapping.SourceID, mapping.SourceID, mappingRetention); err != nil {
		return fmt.Errorf("trimming mapping history: %w", err)
	}
	return tx.Commit()
}

// Recent returns up to limit mappings for a source, most recent first.
func (s *mappingHistoryStore) Recent(ctx context.Context, sourceID string, limit int) ([]*domain.FieldMapping, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT mapping FROM mapping_history
		WHERE source_id = ?
		ORDER BY id DESC
		LIMIT ?
	`, sourceID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying mapping history: %w", err)
	}
	defer rows.Close()

	var mappings []*domain.FieldMapping //nolint:prealloc // size unknown from query
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scanning mapping: %w", err)
		}
		var m domain.FieldMapping
		if err := json.Unmarshal([]byte(data), &m); err != nil {
			return nil, fmt.Errorf("unmarshalling mapping: %w", err)
		}
		mappings = append(mappings, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating mapping history: %w", err)
	}
	return mappings, nil
}

// ==================== Status History Store ====================

// statusHistoryStore implements driven.StatusHistoryStore.
type statusHistoryStore struct {
	store *Store
}

var _ driven.StatusHistoryStore = (*statusHistoryStore)(nil)

// Record appends a status event.
func (s *statusHistoryStore) Record(ctx context.Context, event domain.StatusEvent) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO status_history (source_id, record_id, tracking_number, status, update_type, applied_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, event.SourceID, event.RecordID, event.TrackingNumber,
		string(event.Status), string(event.UpdateType), formatTime(event.AppliedAt))
	if err != nil {
		return fmt.Errorf("recording status event: %w", err)
	}
	return nil
}

// List returns events for a source, most recent first.
func (s *statusHistoryStore) List(ctx context.Context, sourceID, recordID string, limit int) ([]domain.StatusEvent, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT source_id, record_id, tracking_number, status, update_type, applied_at
		FROM status_history
		WHERE source_id = ? AND (? = '' OR record_id = ?)
		ORDER BY id DESC
		LIMIT ?
	`, sourceID, recordID, recordID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying status history: %w", err)
	}
	defer rows.Close()

	var events []domain.StatusEvent //nolint:prealloc // size unknown from query
	for rows.Next() {
		var e domain.StatusEvent
		var status, updateType, appliedAt string
		if err := rows.Scan(&e.SourceID, &e.RecordID, &e.TrackingNumber, &status, &updateType, &appliedAt); err != nil {
			return nil, fmt.Errorf("scanning status event: %w", err)
		}
		e.Status = domain.Status(status)
		e.UpdateType = domain.UpdateType(updateType)
		e.AppliedAt = parseTime(appliedAt)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating status history: %w", err)
	}
	return events, nil
}
