package driving

import (
	"context"

	"github.com/custodia-labs/parcelsync/internal/core/domain"
)

// HistoryService reads the audit trail of confirmed status changes.
type HistoryService interface {
	// List returns events for a source (and optionally one record), most
	// recent first.
	List(ctx context.Context, sourceID, recordID string, limit int) ([]domain.StatusEvent, error)
}
