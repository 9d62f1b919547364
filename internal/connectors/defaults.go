package connectors

import (
	"github.com/custodia-labs/parcelsync/internal/connectors/csvfile"
	"github.com/custodia-labs/parcelsync/internal/connectors/google/sheets"
	"github.com/custodia-labs/parcelsync/internal/core/domain"
)

// NewDefaultFactory returns a factory with every built-in connector.
func NewDefaultFactory() *Factory {
	f := NewFactory()
	f.Register(domain.SourceTypeGoogleSheet, sheets.Build)
	f.Register(domain.SourceTypeCSV, csvfile.Build)
	return f
}
