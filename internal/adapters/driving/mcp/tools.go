package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/parcelsync/internal/core/domain"
	"github.com/custodia-labs/parcelsync/internal/core/ports/driving"
)

const defaultRecordLimit = 100

// RecordOutput is a delivery record as returned to clients.
type RecordOutput struct {
	ID             string `json:"id"`
	Row            int    `json:"row"`
	TrackingNumber string `json:"tracking_number"`
	Name           string `json:"name"`
	Phone          string `json:"phone,omitempty"`
	Address        string `json:"address"`
	Status         string `json:"status"`
	StatusDate     string `json:"status_date,omitempty"`
	AssignedTo     string `json:"assigned_to,omitempty"`
}

func toRecordOutput(r *domain.DeliveryRecord) RecordOutput {
	return RecordOutput{
		ID:             r.ID,
		Row:            r.Row,
		TrackingNumber: r.TrackingNumber,
		Name:           r.Name,
		Phone:          r.Phone,
		Address:        r.Address,
		Status:         string(r.Status),
		StatusDate:     r.StatusDate,
		AssignedTo:     r.AssignedTo,
	}
}

// ListRecordsInput is the input schema for list_records.
type ListRecordsInput struct {
	SourceID string `json:"source_id" jsonschema:"the source to read cached records from"`
	Status   string `json:"status,omitempty" jsonschema:"only return records with this status (pending, in_progress, delivered, failed, returned)"`
	Limit    int    `json:"limit,omitempty" jsonschema:"maximum number of records to return (default 100)"`
}

// ListRecordsOutput is the output schema for list_records.
type ListRecordsOutput struct {
	Records  []RecordOutput `json:"records"`
	Total    int            `json:"total"`
	SyncedAt string         `json:"synced_at,omitempty"`
}

// SyncSourceInput is the input schema for sync_source.
type SyncSourceInput struct {
	SourceID string `json:"source_id" jsonschema:"the source to fetch"`
}

// SyncSourceOutput is the output schema for sync_source.
type SyncSourceOutput struct {
	Records     int      `json:"records"`
	FromCache   bool     `json:"from_cache"`
	NeedsReview []string `json:"needs_review,omitempty"`
	SyncedAt    string   `json:"synced_at,omitempty"`
}

// SetStatusInput is the input schema for set_status.
type SetStatusInput struct {
	SourceID       string `json:"source_id" jsonschema:"the source the record belongs to"`
	RecordID       string `json:"record_id,omitempty" jsonschema:"record identifier; either this or tracking_number is required"`
	TrackingNumber string `json:"tracking_number,omitempty" jsonschema:"tracking number of the record"`
	Status         string `json:"status" jsonschema:"new status, canonical or a Hebrew/English keyword"`
	Batch          bool   `json:"batch,omitempty" jsonschema:"apply to every record of the same customer"`
}

// SetStatusOutput is the output schema for set_status.
type SetStatusOutput struct {
	Status   string   `json:"status"`
	Affected []string `json:"affected"`
}

// DrainQueueInput is the input schema for drain_queue.
type DrainQueueInput struct{}

// DrainQueueOutput is the output schema for drain_queue.
type DrainQueueOutput struct {
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Deferred  int `json:"deferred"`
}

// PendingChangesInput is the input schema for pending_changes.
type PendingChangesInput struct{}

// PendingChangeOutput is a queued change.
type PendingChangeOutput struct {
	ID             string `json:"id"`
	SourceID       string `json:"source_id"`
	TrackingNumber string `json:"tracking_number"`
	Status         string `json:"status"`
	UpdateType     string `json:"update_type"`
	EnqueuedAt     string `json:"enqueued_at"`
	RetryCount     int    `json:"retry_count"`
	LastError      string `json:"last_error,omitempty"`
}

// PendingChangesOutput is the output schema for pending_changes.
type PendingChangesOutput struct {
	Changes []PendingChangeOutput `json:"changes"`
	Count   int                   `json:"count"`
}

// CustomerGroupsInput is the input schema for customer_groups.
type CustomerGroupsInput struct {
	SourceID string `json:"source_id" jsonschema:"the source to group"`
}

// CustomerGroupOutput summarises one customer.
type CustomerGroupOutput struct {
	Key     string         `json:"key"`
	Name    string         `json:"name"`
	Records int            `json:"records"`
	Counts  map[string]int `json:"counts"`
}

// CustomerGroupsOutput is the output schema for customer_groups.
type CustomerGroupsOutput struct {
	Groups []CustomerGroupOutput `json:"groups"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_records",
		Description: "List cached delivery records of a source without contacting it",
	}, s.handleListRecords)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "sync_source",
		Description: "Fetch a source, reclassify its columns if needed and refresh the cache",
	}, s.handleSyncSource)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "set_status",
		Description: "Change the delivery status of a record, or of all records of its customer",
	}, s.handleSetStatus)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "drain_queue",
		Description: "Replay queued status changes against their sources",
	}, s.handleDrainQueue)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "pending_changes",
		Description: "List status changes waiting to be written to their sources",
	}, s.handlePendingChanges)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "customer_groups",
		Description: "Group cached records by customer with per-status counts",
	}, s.handleCustomerGroups)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func (s *Server) handleListRecords(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListRecordsInput,
) (*mcp.CallToolResult, ListRecordsOutput, error) {
	var filter domain.Status
	if input.Status != "" {
		st, ok := domain.MatchStatus(input.Status)
		if !ok {
			return nil, ListRecordsOutput{}, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidInput, input.Status)
		}
		filter = st
	}
	limit := input.Limit
	if limit <= 0 {
		limit = defaultRecordLimit
	}

	snap, err := s.ports.Sync.Records(ctx, input.SourceID)
	if err != nil {
		return nil, ListRecordsOutput{}, err
	}

	output := ListRecordsOutput{Records: []RecordOutput{}, SyncedAt: formatTime(snap.SyncedAt)}
	for i := range snap.Records {
		if filter != "" && snap.Records[i].Status != filter {
			continue
		}
		output.Total++
		if len(output.Records) < limit {
			output.Records = append(output.Records, toRecordOutput(&snap.Records[i]))
		}
	}
	return nil, output, nil
}

func (s *Server) handleSyncSource(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SyncSourceInput,
) (*mcp.CallToolResult, SyncSourceOutput, error) {
	snap, err := s.ports.Sync.Sync(ctx, input.SourceID)
	if err != nil {
		return nil, SyncSourceOutput{}, err
	}

	output := SyncSourceOutput{
		Records:   len(snap.Records),
		FromCache: snap.FromCache,
		SyncedAt:  formatTime(snap.SyncedAt),
	}
	if snap.Mapping != nil {
		for _, f := range snap.Mapping.NeedsReview {
			output.NeedsReview = append(output.NeedsReview, string(f))
		}
	}
	return nil, output, nil
}

func (s *Server) handleSetStatus(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SetStatusInput,
) (*mcp.CallToolResult, SetStatusOutput, error) {
	status, ok := domain.MatchStatus(input.Status)
	if !ok {
		return nil, SetStatusOutput{}, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidInput, input.Status)
	}
	updateType := domain.UpdateSingle
	if input.Batch {
		updateType = domain.UpdateBatch
	}

	refs, err := s.ports.Sync.SetStatus(ctx, driving.StatusRequest{
		SourceID:       input.SourceID,
		RecordID:       input.RecordID,
		TrackingNumber: input.TrackingNumber,
		Status:         status,
		UpdateType:     updateType,
	})
	if err != nil {
		return nil, SetStatusOutput{}, err
	}

	output := SetStatusOutput{Status: string(status), Affected: make([]string, len(refs))}
	for i, ref := range refs {
		output.Affected[i] = ref.TrackingNumber
	}
	return nil, output, nil
}

func (s *Server) handleDrainQueue(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ DrainQueueInput,
) (*mcp.CallToolResult, DrainQueueOutput, error) {
	res, err := s.ports.Sync.Drain(ctx)
	if err != nil {
		return nil, DrainQueueOutput{}, err
	}
	return nil, DrainQueueOutput{Succeeded: res.Succeeded, Failed: res.Failed, Deferred: res.Deferred}, nil
}

func (s *Server) handlePendingChanges(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ PendingChangesInput,
) (*mcp.CallToolResult, PendingChangesOutput, error) {
	output := PendingChangesOutput{Changes: []PendingChangeOutput{}}
	if s.ports.Queue == nil {
		return nil, output, nil
	}

	changes, err := s.ports.Queue.List(ctx)
	if err != nil {
		return nil, PendingChangesOutput{}, err
	}
	for _, c := range changes {
		output.Changes = append(output.Changes, PendingChangeOutput{
			ID:             c.ID,
			SourceID:       c.SourceID,
			TrackingNumber: c.TrackingNumber,
			Status:         string(c.NewStatus),
			UpdateType:     string(c.UpdateType),
			EnqueuedAt:     formatTime(c.EnqueuedAt),
			RetryCount:     c.RetryCount,
			LastError:      c.LastError,
		})
	}
	output.Count = len(output.Changes)
	return nil, output, nil
}

func (s *Server) handleCustomerGroups(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input CustomerGroupsInput,
) (*mcp.CallToolResult, CustomerGroupsOutput, error) {
	groups, err := s.ports.Sync.Groups(ctx, input.SourceID)
	if err != nil {
		return nil, CustomerGroupsOutput{}, err
	}

	output := CustomerGroupsOutput{Groups: make([]CustomerGroupOutput, len(groups))}
	for i, g := range groups {
		counts := make(map[string]int, len(g.Counts))
		for st, n := range g.Counts {
			counts[string(st)] = n
		}
		name := ""
		if len(g.Records) > 0 {
			name = g.Records[0].Name
		}
		output.Groups[i] = CustomerGroupOutput{
			Key:     g.Key,
			Name:    name,
			Records: len(g.Records),
			Counts:  counts,
		}
	}
	return nil, output, nil
}
