package sheets

import (
	"context"
	"fmt"
	"sync"

	"google.golang.org/api/sheets/v4"

	"github.com/custodia-labs/parcelsync/internal/connectors/google"
	"github.com/custodia-labs/parcelsync/internal/core/domain"
	"github.com/custodia-labs/parcelsync/internal/core/ports/driven"
	"github.com/custodia-labs/parcelsync/internal/logger"
)

// Ensure Connector implements the interface.
var _ driven.Connector = (*Connector)(nil)

// Connector reads and writes one spreadsheet range.
type Connector struct {
	sourceID string
	cfg      *Config
	svc      *sheets.Service
	limiter  *google.RateLimiter

	mu     sync.Mutex
	origin *origin
}

// New creates a Sheets connector around an existing service.
func New(sourceID string, cfg *Config, svc *sheets.Service, limiter *google.RateLimiter) *Connector {
	if limiter == nil {
		limiter = google.NewRateLimiter()
	}
	return &Connector{
		sourceID: sourceID,
		cfg:      cfg,
		svc:      svc,
		limiter:  limiter,
	}
}

// Build is the connector builder registered for domain.SourceTypeGoogleSheet.
func Build(ctx context.Context, source domain.Source) (driven.Connector, error) {
	cfg, err := ParseConfig(source)
	if err != nil {
		return nil, err
	}
	opts, err := google.ClientOptions(cfg.Credentials)
	if err != nil {
		return nil, fmt.Errorf("%w: source %s: %w", domain.ErrInvalidInput, source.ID, err)
	}
	svc, err := google.NewSheetsService(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return New(source.ID, cfg, svc, nil), nil
}

// Type returns the connector type identifier.
func (c *Connector) Type() string {
	return domain.SourceTypeGoogleSheet
}

// SourceID returns the source identifier.
func (c *Connector) SourceID() string {
	return c.sourceID
}

// resolveOrigin parses the configured range, looking up the first sheet's
// title when no range is configured. The result is cached.
func (c *Connector) resolveOrigin(ctx context.Context) (origin, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.origin != nil {
		return *c.origin, nil
	}

	if c.cfg.Range != "" {
		o, err := parseRange(c.cfg.Range)
		if err != nil {
			return origin{}, fmt.Errorf("%w: %w", domain.ErrSourceMalformed, err)
		}
		c.origin = &o
		return o, nil
	}

	var ss *sheets.Spreadsheet
	err := c.limiter.Do(ctx, func() error {
		var err error
		ss, err = c.svc.Spreadsheets.Get(c.cfg.SpreadsheetID).
			Fields("sheets.properties.title").
			Context(ctx).
			Do()
		return err
	})
	if err != nil {
		return origin{}, google.FetchError(err)
	}
	if len(ss.Sheets) == 0 || ss.Sheets[0].Properties == nil {
		return origin{}, fmt.Errorf("%w: spreadsheet %s has no sheets", domain.ErrSourceMalformed, c.cfg.SpreadsheetID)
	}

	o := origin{Sheet: ss.Sheets[0].Properties.Title, Row: 1}
	c.origin = &o
	return o, nil
}

// FetchRows reads the range. The first row is the header; rows are
// returned as displayed in the sheet.
func (c *Connector) FetchRows(ctx context.Context) (*domain.Sheet, error) {
	o, err := c.resolveOrigin(ctx)
	if err != nil {
		return nil, err
	}

	var resp *sheets.ValueRange
	err = c.limiter.Do(ctx, func() error {
		var err error
		resp, err = c.svc.Spreadsheets.Values.Get(c.cfg.SpreadsheetID, o.readRange(c.cfg.Range)).
			MajorDimension("ROWS").
			ValueRenderOption("FORMATTED_VALUE").
			Context(ctx).
			Do()
		return err
	})
	if err != nil {
		return nil, google.FetchError(err)
	}

	sheet := &domain.Sheet{}
	for i, row := range resp.Values {
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = cellString(v)
		}
		if i == 0 {
			sheet.Headers = cells
			continue
		}
		sheet.Rows = append(sheet.Rows, cells)
	}

	logger.Debug("sheets: fetched %d row(s) from %s", len(sheet.Rows), c.sourceID)
	return sheet, nil
}

func cellString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}

// PushStatus writes the status and status date cells of every affected
// record in a single batch request.
func (c *Connector) PushStatus(ctx context.Context, update domain.StatusUpdate) error {
	cells, err := update.Cells()
	if err != nil {
		return err
	}
	if len(cells) == 0 {
		return nil
	}

	o, err := c.resolveOrigin(ctx)
	if err != nil {
		return err
	}

	data := make([]*sheets.ValueRange, 0, len(cells))
	for _, cell := range cells {
		data = append(data, &sheets.ValueRange{
			Range:  o.cell(cell.Row, cell.Column),
			Values: [][]any{{cell.Value}},
		})
	}

	req := &sheets.BatchUpdateValuesRequest{
		ValueInputOption: "RAW",
		Data:             data,
	}
	err = c.limiter.Do(ctx, func() error {
		_, err := c.svc.Spreadsheets.Values.BatchUpdate(c.cfg.SpreadsheetID, req).Context(ctx).Do()
		return err
	})
	if err != nil {
		return google.PushError(err)
	}

	logger.Debug("sheets: wrote %d cell(s) to %s", len(cells), c.sourceID)
	return nil
}

// Close releases resources. The API client holds none.
func (c *Connector) Close() error {
	return nil
}
