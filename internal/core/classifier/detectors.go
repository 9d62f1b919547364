package classifier

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/custodia-labs/parcelsync/internal/core/domain"
)

var (
	s10Pattern      = regexp.MustCompile(`^[A-Za-z]{2}\d{9}[A-Za-z]{2}$`)
	trackingPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9\-]{5,29}$`)
	autoTracking    = regexp.MustCompile(`^AUTO-\d+$`)
	phoneChars      = regexp.MustCompile(`^\+?[\d\s\-().]{9,20}$`)
	emailPattern    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	urlPattern      = regexp.MustCompile(`^(?i)(https?://|www\.)`)
	datePatterns    = []*regexp.Regexp{
		regexp.MustCompile(`^\d{1,2}[/.\-]\d{1,2}[/.\-]\d{2,4}(\s+\d{1,2}:\d{2}(:\d{2})?)?$`),
		regexp.MustCompile(`^\d{4}[/.\-]\d{1,2}[/.\-]\d{1,2}([ T]\d{1,2}:\d{2}(:\d{2})?)?`),
	}
	streetWords = []string{
		"street", "st.", "road", "rd.", "avenue", "ave", "blvd", "apt",
		"רחוב", "רח'", "שדרות", "שד'", "דירה", "כניסה", "קומה",
	}
)

// digitCount counts ASCII digits.
func digitCount(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

func isPhoneLike(v string) bool {
	if !phoneChars.MatchString(v) {
		return false
	}
	d := digitCount(v)
	return d >= 9 && d <= 13
}

func isTrackingLike(v string) bool {
	if s10Pattern.MatchString(v) || autoTracking.MatchString(v) {
		return true
	}
	if !trackingPattern.MatchString(v) {
		return false
	}
	digits := digitCount(v)
	if hasLetter(v) {
		return digits >= 4
	}
	// Pure digit strings read as phone numbers unless they are too long.
	return digits >= 11 && !isPhoneLike(v)
}

func isDateLike(v string) bool {
	if strings.HasPrefix(v, domain.NameTagDate) {
		return true
	}
	for _, p := range datePatterns {
		if p.MatchString(v) {
			return true
		}
	}
	return false
}

func isEmail(v string) bool { return emailPattern.MatchString(v) }

func isURL(v string) bool { return urlPattern.MatchString(v) }

func isAddressLike(v string) bool {
	if isDateLike(v) || isPhoneLike(v) || isEmail(v) || isURL(v) {
		return false
	}
	lower := strings.ToLower(v)
	for _, w := range streetWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	words := len(strings.Fields(v))
	if words < 2 {
		return false
	}
	if strings.Contains(v, ",") {
		return true
	}
	return hasLetter(v) && digitCount(v) > 0 && digitCount(v) <= 6
}

func isNameShaped(v string) bool {
	n := utf8.RuneCountInString(v)
	if n < 2 || n > 40 {
		return false
	}
	words := len(strings.Fields(v))
	if words < 1 || words > 4 {
		return false
	}
	for _, r := range v {
		switch {
		case unicode.IsLetter(r), unicode.IsSpace(r):
		case r == '\'' || r == '-' || r == '.' || r == '"' || r == '׳' || r == '״':
		default:
			return false
		}
	}
	return !domain.ContainsStatusKeyword(v)
}

// script classifies the letters of a value.
type script int

const (
	scriptNone script = iota
	scriptHebrew
	scriptLatin
	scriptMixed
)

func scriptOf(v string) script {
	var hebrew, latin bool
	for _, r := range v {
		switch {
		case unicode.Is(unicode.Hebrew, r):
			hebrew = true
		case unicode.Is(unicode.Latin, r):
			latin = true
		}
	}
	switch {
	case hebrew && latin:
		return scriptMixed
	case hebrew:
		return scriptHebrew
	case latin:
		return scriptLatin
	default:
		return scriptNone
	}
}
