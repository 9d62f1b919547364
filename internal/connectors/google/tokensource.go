package google

import (
	"encoding/json"
	"fmt"
	"os"

	"golang.org/x/oauth2"
)

// LoadToken reads an OAuth2 token saved as JSON (the format written by
// oauth2.Token's json tags, as produced by most OAuth helper tools).
func LoadToken(path string) (*oauth2.Token, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read token file: %w", err)
	}

	var tok oauth2.Token
	if err := json.Unmarshal(raw, &tok); err != nil {
		return nil, fmt.Errorf("parse token file %s: %w", path, err)
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("token file %s has no access_token", path)
	}
	if tok.TokenType == "" {
		tok.TokenType = "Bearer"
	}
	return &tok, nil
}

// NewTokenSource returns a TokenSource serving tok. Without an OAuth client
// configuration the token cannot be refreshed; once it expires calls fail
// as unauthorised and the token file must be renewed.
func NewTokenSource(tok *oauth2.Token) oauth2.TokenSource {
	return oauth2.ReuseTokenSource(tok, oauth2.StaticTokenSource(tok))
}
