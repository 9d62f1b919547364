package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/custodia-labs/parcelsync/internal/core/domain"
	"github.com/custodia-labs/parcelsync/internal/core/ports/driven"
)

// snapshotStore implements driven.SnapshotStore. Records, mapping and raw
// sheet are kept as JSON documents; a snapshot is always read and written
// whole.
type snapshotStore struct {
	store *Store
}

var _ driven.SnapshotStore = (*snapshotStore)(nil)

// Get returns the snapshot for a source.
func (s *snapshotStore) Get(ctx context.Context, sourceID string) (*domain.Snapshot, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT source_id, header_hash, synced_at, mapping, sheet, records
		FROM snapshots WHERE source_id = ?
	`, sourceID)

	var snap domain.Snapshot
	var syncedAt, mappingJSON, sheetJSON sql.NullString
	var recordsJSON string
	if err := row.Scan(&snap.SourceID, &snap.HeaderHash, &syncedAt, &mappingJSON, &sheetJSON, &recordsJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning snapshot: %w", err)
	}

	snap.SyncedAt = parseNullableTime(syncedAt)
	if err := json.Unmarshal([]byte(recordsJSON), &snap.Records); err != nil {
		return nil, fmt.Errorf("unmarshalling records: %w", err)
	}
	if mappingJSON.Valid {
		snap.Mapping = &domain.FieldMapping{}
		if err := json.Unmarshal([]byte(mappingJSON.String), snap.Mapping); err != nil {
			return nil, fmt.Errorf("unmarshalling mapping: %w", err)
		}
	}
	if sheetJSON.Valid {
		snap.Sheet = &domain.Sheet{}
		if err := json.Unmarshal([]byte(sheetJSON.String), snap.Sheet); err != nil {
			return nil, fmt.Errorf("unmarshalling sheet: %w", err)
		}
	}
	return &snap, nil
}

// Save replaces the snapshot for its source.
func (s *snapshotStore) Save(ctx context.Context, snapshot *domain.Snapshot) error {
	if snapshot == nil || snapshot.SourceID == "" {
		return domain.ErrInvalidInput
	}

	records := snapshot.Records
	if records == nil {
		records = []domain.DeliveryRecord{}
	}
	recordsJSON, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("marshalling records: %w", err)
	}
	mappingJSON, err := marshalNullable(snapshot.Mapping, snapshot.Mapping == nil)
	if err != nil {
		return fmt.Errorf("marshalling mapping: %w", err)
	}
	sheetJSON, err := marshalNullable(snapshot.Sheet, snapshot.Sheet == nil)
	if err != nil {
		return fmt.Errorf("marshalling sheet: %w", err)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO snapshots (source_id, header_hash, synced_at, mapping, sheet, records)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(source_id) DO UPDATE SET
			header_hash = excluded.header_hash,
			synced_at = excluded.synced_at,
			mapping = excluded.mapping,
			sheet = excluded.sheet,
			records = excluded.records
	`, snapshot.SourceID, snapshot.HeaderHash, formatNullableTime(snapshot.SyncedAt),
		mappingJSON, sheetJSON, string(recordsJSON))
	if err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	return nil
}

// Delete removes the snapshot for a source.
func (s *snapshotStore) Delete(ctx context.Context, sourceID string) error {
	res, err := s.store.db.ExecContext(ctx, "DELETE FROM snapshots WHERE source_id = ?", sourceID)
	if err != nil {
		return fmt.Errorf("deleting snapshot: %w", err)
	}
	return requireAffected(res)
}

// marshalNullable encodes v as JSON, or returns nil for a NULL column.
func marshalNullable(v any, isNil bool) (any, error) {
	if isNil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}
