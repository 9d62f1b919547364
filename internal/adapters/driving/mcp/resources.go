package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	uriScheme    = "parcelsync://"
	jsonMIMEType = "application/json"

	historyResourceLimit = 50
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "sources",
		Name:        "sources",
		Description: "Configured delivery sheets",
		MIMEType:    jsonMIMEType,
	}, s.handleSourcesResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "sources/{sourceId}/mapping",
		Name:        "source-mapping",
		Description: "Column to field mapping in use for a source",
		MIMEType:    jsonMIMEType,
	}, s.handleMappingResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "sources/{sourceId}/status",
		Name:        "source-status",
		Description: "Sync session state of a source",
		MIMEType:    jsonMIMEType,
	}, s.handleStatusResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "sources/{sourceId}/history",
		Name:        "source-history",
		Description: "Recent confirmed status changes of a source",
		MIMEType:    jsonMIMEType,
	}, s.handleHistoryResource)
}

func jsonResult(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", uri, err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: jsonMIMEType,
			Text:     string(data),
		}},
	}, nil
}

func (s *Server) handleSourcesResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	type sourceInfo struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		Type string `json:"type"`
	}

	infos := []sourceInfo{}
	if s.ports.Source != nil {
		sources, err := s.ports.Source.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing sources: %w", err)
		}
		for _, src := range sources {
			infos = append(infos, sourceInfo{ID: src.ID, Name: src.Name, Type: src.Type})
		}
	}

	return jsonResult(req.Params.URI, infos)
}

func (s *Server) handleMappingResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Mapping == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	sourceID := extractSourceID(req.Params.URI, "mapping")
	if sourceID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	mapping, err := s.ports.Mapping.Get(ctx, sourceID)
	if err != nil {
		return nil, fmt.Errorf("getting mapping: %w", err)
	}
	return jsonResult(req.Params.URI, mapping)
}

func (s *Server) handleStatusResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	sourceID := extractSourceID(req.Params.URI, "status")
	if sourceID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	status, err := s.ports.Sync.Status(ctx, sourceID)
	if err != nil {
		return nil, fmt.Errorf("getting sync status: %w", err)
	}

	out := struct {
		SourceID       string   `json:"source_id"`
		State          string   `json:"state"`
		LastOutcome    string   `json:"last_outcome,omitempty"`
		Online         bool     `json:"online"`
		LastSynced     string   `json:"last_synced,omitempty"`
		Records        int      `json:"records"`
		PendingChanges int      `json:"pending_changes"`
		NeedsReview    []string `json:"needs_review,omitempty"`
		LastError      string   `json:"last_error,omitempty"`
	}{
		SourceID:       status.SourceID,
		State:          string(status.State),
		LastOutcome:    string(status.LastOutcome),
		Online:         status.Online,
		LastSynced:     formatTime(status.LastSynced),
		Records:        status.Records,
		PendingChanges: status.PendingChanges,
		LastError:      status.LastError,
	}
	for _, f := range status.NeedsReview {
		out.NeedsReview = append(out.NeedsReview, string(f))
	}
	return jsonResult(req.Params.URI, out)
}

func (s *Server) handleHistoryResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.History == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	sourceID := extractSourceID(req.Params.URI, "history")
	if sourceID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	events, err := s.ports.History.List(ctx, sourceID, "", historyResourceLimit)
	if err != nil {
		return nil, fmt.Errorf("listing history: %w", err)
	}

	type eventInfo struct {
		RecordID       string `json:"record_id"`
		TrackingNumber string `json:"tracking_number"`
		Status         string `json:"status"`
		UpdateType     string `json:"update_type"`
		AppliedAt      string `json:"applied_at"`
	}
	infos := make([]eventInfo, len(events))
	for i, e := range events {
		infos[i] = eventInfo{
			RecordID:       e.RecordID,
			TrackingNumber: e.TrackingNumber,
			Status:         string(e.Status),
			UpdateType:     string(e.UpdateType),
			AppliedAt:      formatTime(e.AppliedAt),
		}
	}
	return jsonResult(req.Params.URI, infos)
}

// extractSourceID extracts the source ID from a URI like
// parcelsync://sources/{sourceId}/{kind}.
func extractSourceID(uri, kind string) string {
	const prefix = uriScheme + "sources/"
	suffix := "/" + kind

	if !strings.HasPrefix(uri, prefix) || !strings.HasSuffix(uri, suffix) {
		return ""
	}
	id := strings.TrimSuffix(strings.TrimPrefix(uri, prefix), suffix)
	if strings.Contains(id, "/") {
		return ""
	}
	return id
}
