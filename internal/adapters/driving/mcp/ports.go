package mcp

import (
	"github.com/custodia-labs/parcelsync/internal/core/ports/driving"
)

// Ports aggregates the driving ports the MCP server calls.
type Ports struct {
	// Sync is required.
	Sync driving.SyncOrchestrator

	// The rest are optional; their tools and resources degrade to
	// empty results.
	Source  driving.SourceService
	Queue   driving.ChangeQueue
	Mapping driving.MappingService
	History driving.HistoryService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Sync == nil {
		return ErrMissingSyncService
	}
	return nil
}
