package normaliser

import (
	"strings"

	"github.com/custodia-labs/parcelsync/internal/core/domain"
)

// National significant number length bounds for the default country.
const (
	minNationalDigits = 8
	maxNationalDigits = 10
)

// Phone canonicalises a phone cell to +{country}{national} form. Values that
// carry a status word (a status typed into the phone column) and values that
// do not look like a number yield "".
func (n *Normaliser) Phone(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || domain.ContainsStatusKeyword(raw) {
		return ""
	}

	digits := stripNonDigits(raw)
	digits = strings.TrimPrefix(digits, "00")

	cc := n.cfg.CountryCode
	var national string
	switch {
	case strings.HasPrefix(digits, cc):
		national = digits[len(cc):]
	case strings.HasPrefix(digits, "0"):
		national = digits[1:]
	case len(digits) == 9 || len(digits) == 10:
		national = digits
	default:
		return ""
	}

	if len(national) < minNationalDigits || len(national) > maxNationalDigits {
		return ""
	}
	return "+" + cc + national
}

func stripNonDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
