package csvfile

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/parcelsync/internal/core/domain"
)

// Config holds CSV connector configuration.
type Config struct {
	Path      string
	Encoding  Encoding
	Delimiter rune
}

// ParseConfig extracts configuration from a Source.
func ParseConfig(source domain.Source) (*Config, error) {
	path := strings.TrimSpace(source.Config[domain.ConfigPath])
	if path == "" {
		return nil, fmt.Errorf("%w: %s is required", domain.ErrInvalidInput, domain.ConfigPath)
	}

	enc, err := ParseEncoding(source.Config[domain.ConfigEncoding])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}

	delim, err := parseDelimiter(source.Config[domain.ConfigDelimiter])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}

	return &Config{
		Path:      filepath.Clean(path),
		Encoding:  enc,
		Delimiter: delim,
	}, nil
}

func parseDelimiter(s string) (rune, error) {
	switch strings.ToLower(s) {
	case "":
		return ',', nil
	case "tab", `\t`:
		return '\t', nil
	}
	if utf8.RuneCountInString(s) != 1 {
		return 0, fmt.Errorf("delimiter %q must be a single character", s)
	}
	r, _ := utf8.DecodeRuneInString(s)
	if r == '"' || r == '\r' || r == '\n' || r == utf8.RuneError {
		return 0, fmt.Errorf("delimiter %q is not allowed", s)
	}
	return r, nil
}
