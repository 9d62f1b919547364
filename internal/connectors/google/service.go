package google

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// SheetsScope is the OAuth scope needed to read and write values.
const SheetsScope = sheets.SpreadsheetsScope

// Credentials selects how a connector authenticates. Exactly one field is
// normally set; when several are, the first non-empty one in field order wins.
type Credentials struct {
	// CredentialsFile is a service account JSON key.
	CredentialsFile string

	// TokenFile is an OAuth2 token saved as JSON.
	TokenFile string

	// APIKey grants read-only access to public spreadsheets.
	APIKey string
}

// ErrNoCredentials is returned when no credential source is configured.
var ErrNoCredentials = errors.New("google: no credentials configured")

// ClientOptions turns credentials into API client options.
func ClientOptions(creds Credentials) ([]option.ClientOption, error) {
	switch {
	case creds.CredentialsFile != "":
		return []option.ClientOption{
			option.WithCredentialsFile(creds.CredentialsFile),
			option.WithScopes(SheetsScope),
		}, nil
	case creds.TokenFile != "":
		tok, err := LoadToken(creds.TokenFile)
		if err != nil {
			return nil, err
		}
		return []option.ClientOption{option.WithTokenSource(NewTokenSource(tok))}, nil
	case creds.APIKey != "":
		return []option.ClientOption{option.WithAPIKey(creds.APIKey)}, nil
	default:
		return nil, ErrNoCredentials
	}
}

// NewSheetsService creates a Google Sheets API service.
func NewSheetsService(ctx context.Context, opts ...option.ClientOption) (*sheets.Service, error) {
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return svc, nil
}
