package domain

import (
	"fmt"
	"strings"
	"time"
)

// Source types understood by the connector factory.
const (
	// SourceTypeGoogleSheet reads and writes a Google Sheets range.
	SourceTypeGoogleSheet = "gsheet"

	// SourceTypeCSV reads and writes a local CSV file.
	SourceTypeCSV = "csv"
)

// Config keys understood by the built-in connectors.
const (
	ConfigSpreadsheetID = "spreadsheet_id"
	ConfigRange         = "range"
	ConfigCredentials   = "credentials_file"
	ConfigToken         = "token_file"
	ConfigAPIKey        = "api_key"
	ConfigPath          = "path"
	ConfigEncoding      = "encoding"
	ConfigDelimiter     = "delimiter"
)

// RequiredConfigKeys lists the config keys a source type cannot work without.
func RequiredConfigKeys(sourceType string) ([]string, bool) {
	switch sourceType {
	case SourceTypeGoogleSheet:
		return []string{ConfigSpreadsheetID}, true
	case SourceTypeCSV:
		return []string{ConfigPath}, true
	default:
		return nil, false
	}
}

// Source represents a configured remote spreadsheet.
type Source struct {
	// ID is the unique identifier for the source.
	ID string

	// Type identifies the connector type (e.g., "gsheet", "csv").
	Type string

	// Name is the human-readable name for this source.
	Name string

	// Config contains connector-specific configuration.
	Config map[string]string

	// CreatedAt is when the source was created.
	CreatedAt time.Time

	// UpdatedAt is when the source was last updated.
	UpdatedAt time.Time
}

// DisplayName returns the name with the source type when they differ.
func (s *Source) DisplayName() string {
	if s.Name == "" {
		return s.ID
	}
	if strings.Contains(strings.ToLower(s.Name), s.Type) {
		return s.Name
	}
	return fmt.Sprintf("%s (%s)", s.Name, s.Type)
}
