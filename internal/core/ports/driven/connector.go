package driven

import (
	"context"

	"github.com/custodia-labs/parcelsync/internal/core/domain"
)

// Connector reads raw rows from a row source and writes status changes
// back to it. Each source type (Google Sheets, CSV file) implements this
// interface.
type Connector interface {
	// Type returns the connector type identifier.
	Type() string

	// SourceID returns the configured source ID.
	SourceID() string

	// FetchRows returns the header row and data rows.
	// Transport failures wrap domain.ErrSourceUnavailable; payloads that
	// cannot be read as a table wrap domain.ErrSourceMalformed.
	FetchRows(ctx context.Context) (*domain.Sheet, error)

	// PushStatus writes a status and status date for every affected record.
	// Rejections that retrying cannot fix wrap domain.ErrMutationRejected.
	PushStatus(ctx context.Context, update domain.StatusUpdate) error

	// Close releases resources.
	Close() error
}

// Watcher is implemented by connectors that can signal local changes to
// their source (e.g. a CSV file rewritten by another program).
type Watcher interface {
	// Watch sends on the returned channel whenever the source changes.
	// The channel is closed when ctx is cancelled.
	Watch(ctx context.Context) (<-chan struct{}, error)
}
