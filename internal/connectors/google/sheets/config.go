package sheets

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/parcelsync/internal/connectors/google"
	"github.com/custodia-labs/parcelsync/internal/core/domain"
)

// Config holds Google Sheets connector configuration.
type Config struct {
	SpreadsheetID string

	// Range is an A1 range; empty means the first sheet.
	Range string

	Credentials google.Credentials
}

// ParseConfig extracts configuration from a Source.
func ParseConfig(source domain.Source) (*Config, error) {
	id := strings.TrimSpace(source.Config[domain.ConfigSpreadsheetID])
	if id == "" {
		return nil, fmt.Errorf("%w: %s is required", domain.ErrInvalidInput, domain.ConfigSpreadsheetID)
	}

	cfg := &Config{
		SpreadsheetID: id,
		Range:         strings.TrimSpace(source.Config[domain.ConfigRange]),
		Credentials: google.Credentials{
			CredentialsFile: source.Config[domain.ConfigCredentials],
			TokenFile:       source.Config[domain.ConfigToken],
			APIKey:          source.Config[domain.ConfigAPIKey],
		},
	}

	if cfg.Range != "" {
		if _, err := parseRange(cfg.Range); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
		}
	}
	return cfg, nil
}
