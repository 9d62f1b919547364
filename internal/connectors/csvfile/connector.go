package csvfile

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/custodia-labs/parcelsync/internal/core/domain"
	"github.com/custodia-labs/parcelsync/internal/core/ports/driven"
	"github.com/custodia-labs/parcelsync/internal/logger"
)

// Ensure Connector implements the interfaces.
var (
	_ driven.Connector = (*Connector)(nil)
	_ driven.Watcher   = (*Connector)(nil)
)

// Connector reads and rewrites one CSV file.
type Connector struct {
	sourceID string
	cfg      *Config

	// mu serialises reads and rewrites of the file.
	mu sync.Mutex
}

// New creates a CSV connector.
func New(sourceID string, cfg *Config) *Connector {
	return &Connector{sourceID: sourceID, cfg: cfg}
}

// Build is the connector builder registered for domain.SourceTypeCSV.
func Build(_ context.Context, source domain.Source) (driven.Connector, error) {
	cfg, err := ParseConfig(source)
	if err != nil {
		return nil, err
	}
	return New(source.ID, cfg), nil
}

// Type returns the connector type identifier.
func (c *Connector) Type() string {
	return domain.SourceTypeCSV
}

// SourceID returns the source identifier.
func (c *Connector) SourceID() string {
	return c.sourceID
}

// table is the decoded file.
type table struct {
	records [][]string
	bom     bool
}

func (c *Connector) read() (*table, error) {
	raw, err := os.ReadFile(c.cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", domain.ErrSourceUnavailable, c.cfg.Path, err)
	}

	text, bom, err := c.cfg.Encoding.decode(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrSourceMalformed, err)
	}

	if strings.ContainsRune(text, 0) {
		return nil, fmt.Errorf("%w: %s contains NUL bytes; check the encoding setting", domain.ErrSourceMalformed, c.cfg.Path)
	}

	r := csv.NewReader(strings.NewReader(text))
	r.Comma = c.cfg.Delimiter
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s: %w", domain.ErrSourceMalformed, c.cfg.Path, err)
	}
	return &table{records: records, bom: bom}, nil
}

// FetchRows reads the file. The first record is the header.
func (c *Connector) FetchRows(ctx context.Context) (*domain.Sheet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	t, err := c.read()
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}

	sheet := &domain.Sheet{}
	if len(t.records) > 0 {
		sheet.Headers = t.records[0]
		sheet.Rows = t.records[1:]
	}
	return sheet, nil
}

// PushStatus rewrites the file with the status cells changed. The file is
// replaced atomically so a concurrent reader never sees half a file.
func (c *Connector) PushStatus(ctx context.Context, update domain.StatusUpdate) error {
	cells, err := update.Cells()
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	t, err := c.read()
	if err != nil {
		if errors.Is(err, domain.ErrSourceMalformed) {
			return fmt.Errorf("%w: %w", domain.ErrMutationRejected, err)
		}
		return err
	}

	for _, cell := range cells {
		// records[0] is the header, so data row n is records[n].
		if cell.Row >= len(t.records) {
			return fmt.Errorf("%w: row %d is beyond the end of %s", domain.ErrMutationRejected, cell.Row, c.cfg.Path)
		}
		row := t.records[cell.Row]
		for len(row) <= cell.Column {
			row = append(row, "")
		}
		row[cell.Column] = cell.Value
		t.records[cell.Row] = row
	}

	if err := c.write(t); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrSourceUnavailable, err)
	}
	logger.Debug("csv: wrote %d cell(s) to %s", len(cells), c.cfg.Path)
	return nil
}

func (c *Connector) write(t *table) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = c.cfg.Delimiter
	if err := w.WriteAll(t.records); err != nil {
		return fmt.Errorf("format csv: %w", err)
	}

	out, err := c.cfg.Encoding.encode(buf.String(), t.bom)
	if err != nil {
		return err
	}

	mode := os.FileMode(0644)
	if info, err := os.Stat(c.cfg.Path); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(c.cfg.Path), ".parcelsync-*.csv")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(out); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, c.cfg.Path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}

// Close releases resources.
func (c *Connector) Close() error {
	return nil
}
