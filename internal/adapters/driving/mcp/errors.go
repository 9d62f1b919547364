// Package mcp provides an MCP (Model Context Protocol) server adapter for
// parcelsync. It lets AI assistants and UI hooks read delivery records,
// trigger syncs and record status changes.
package mcp

import "errors"

// ErrMissingSyncService is returned when the sync orchestrator is not provided.
var ErrMissingSyncService = errors.New("mcp: sync service is required")
