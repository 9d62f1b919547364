package domain

import (
	"fmt"
	"time"
)

// UpdateType selects how far a status change reaches.
type UpdateType string

const (
	// UpdateSingle changes only the target record.
	UpdateSingle UpdateType = "single"
	// UpdateBatch changes every record of the target's customer group.
	UpdateBatch UpdateType = "batch"
)

// IsValid reports whether u is a known update type.
func (u UpdateType) IsValid() bool {
	return u == UpdateSingle || u == UpdateBatch
}

// PendingChange is a status mutation not yet confirmed by the remote store.
// It always targets a single record; batch fan-out is resolved at replay time.
type PendingChange struct {
	// ID uniquely identifies the queue entry.
	ID string `json:"id"`

	// SourceID is the source the target record belongs to.
	SourceID string `json:"source_id"`

	// TargetID is the record identifier the change was requested for.
	TargetID string `json:"target_id"`

	// TrackingNumber lets replay find the target if row positions moved.
	TrackingNumber string `json:"tracking_number"`

	NewStatus  Status     `json:"new_status"`
	UpdateType UpdateType `json:"update_type"`

	// EnqueuedAt is when the change was requested; it is also the status date.
	EnqueuedAt time.Time `json:"enqueued_at"`

	// RetryCount is incremented on every failed replay.
	RetryCount int `json:"retry_count"`

	// LastError is the message of the most recent failed replay.
	LastError string `json:"last_error,omitempty"`
}

// DrainResult summarises a drain pass.
type DrainResult struct {
	// Succeeded counts entries confirmed and removed.
	Succeeded int `json:"succeeded"`

	// Failed counts entries whose replay failed; they remain queued.
	Failed int `json:"failed"`

	// Deferred counts entries skipped because an earlier entry for the
	// same target failed in this pass.
	Deferred int `json:"deferred"`
}

// StatusUpdate is a status push sent to the remote store.
type StatusUpdate struct {
	SourceID string

	// Mapping tells the connector which columns hold status and status date.
	Mapping *FieldMapping

	// Target is the record the change was requested for.
	Target RecordRef

	// Affected are all records to update, target included.
	Affected []RecordRef

	Status     Status
	StatusDate string
	UpdateType UpdateType
}

// StatusEvent is a confirmed status change passed to the history collaborator.
type StatusEvent struct {
	SourceID       string
	RecordID       string
	TrackingNumber string
	Status         Status
	UpdateType     UpdateType
	AppliedAt      time.Time
}

// CellWrite is a single cell value a connector must store.
type CellWrite struct {
	// Row is the 1-based data row (header excluded).
	Row int

	// Column is the zero-based column index.
	Column int

	Value string
}

// Cells expands the update into per-cell writes: the status column for
// every affected record, plus the status date column when one is mapped.
// It fails with ErrMutationRejected when no status column is mapped or an
// affected record has no row.
func (u StatusUpdate) Cells() ([]CellWrite, error) {
	statusCol, ok := u.Mapping.Column(FieldStatus)
	if !ok {
		return nil, fmt.Errorf("%w: source %s has no status column", ErrMutationRejected, u.SourceID)
	}
	dateCol, hasDate := u.Mapping.Column(FieldStatusDate)

	cells := make([]CellWrite, 0, len(u.Affected)*2)
	for _, ref := range u.Affected {
		if ref.Row < 1 {
			return nil, fmt.Errorf("%w: record %s has no row", ErrMutationRejected, ref.TrackingNumber)
		}
		cells = append(cells, CellWrite{Row: ref.Row, Column: statusCol.Index, Value: string(u.Status)})
		if hasDate {
			cells = append(cells, CellWrite{Row: ref.Row, Column: dateCol.Index, Value: u.StatusDate})
		}
	}
	return cells, nil
}
