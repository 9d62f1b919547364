package classifier

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/custodia-labs/parcelsync/internal/core/domain"
)

// headerKeywords lists bilingual header vocabulary per field. Keywords are
// stored pre-normalised (see NormalizeHeader).
var headerKeywords = map[domain.Field][]string{
	domain.FieldTrackingNumber: {
		"tracking", "track", "barcode", "parcel", "shipment", "waybill", "awb",
		"מעקב", "ברקוד", "מספר משלוח", "משלוח", "חבילה",
	},
	domain.FieldName: {
		"name", "customer", "recipient", "client", "consignee",
		"שם", "לקוח", "נמען",
	},
	domain.FieldPhone: {
		"phone", "mobile", "tel", "cell", "telephone",
		"טלפון", "נייד", "פלאפון", "טל",
	},
	domain.FieldAddress: {
		"address", "street", "city", "destination",
		"כתובת", "רחוב", "עיר", "יישוב", "ישוב",
	},
	domain.FieldStatus: {
		"status", "state",
		"סטטוס", "מצב",
	},
	domain.FieldStatusDate: {
		"status date", "updated", "last update", "update date",
		"תאריך סטטוס", "תאריך עדכון", "עדכון",
	},
	domain.FieldScanDate: {
		"scan", "scanned", "date", "created",
		"סריקה", "תאריך", "נוצר",
	},
	domain.FieldAssignedTo: {
		"courier", "driver", "assigned", "assignee", "messenger",
		"שליח", "נהג", "מחלק",
	},
}

var headerTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeHeader folds a header label for keyword matching: Unicode
// normalised, combining marks (including Hebrew niqqud) removed, lowercased,
// separators collapsed to single spaces.
func NormalizeHeader(label string) string {
	folded, _, err := transform.String(headerTransformer, label)
	if err != nil {
		folded = label
	}
	folded = strings.ToLower(norm.NFKC.String(folded))

	var b strings.Builder
	space := false
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'' || r == '"' {
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
			continue
		}
		space = true
	}
	return b.String()
}

// headerMatch returns the length of the longest keyword of field found in
// the normalised label, or 0 when none matches.
func headerMatch(normalized string, field domain.Field) int {
	if normalized == "" {
		return 0
	}
	tokens := strings.Fields(normalized)
	best := 0
	for _, kw := range headerKeywords[field] {
		n := utf8.RuneCountInString(kw)
		if !keywordIn(normalized, tokens, kw, n) {
			continue
		}
		if n > best {
			best = n
		}
	}
	return best
}

// keywordIn matches short keywords as whole tokens and longer ones as
// substrings, so "tel" does not fire inside "hotel".
func keywordIn(normalized string, tokens []string, kw string, runeLen int) bool {
	if runeLen > 3 {
		return strings.Contains(normalized, kw)
	}
	for _, t := range tokens {
		if t == kw {
			return true
		}
	}
	return false
}

// headerFields returns the fields a label names. When a label matches
// several fields only the most specific (longest keyword) ones are kept, so
// "Status date" names statusDate rather than status.
func headerFields(label string) map[domain.Field]bool {
	normalized := NormalizeHeader(label)
	lengths := make(map[domain.Field]int)
	longest := 0
	for _, f := range domain.AllFields {
		if n := headerMatch(normalized, f); n > 0 {
			lengths[f] = n
			if n > longest {
				longest = n
			}
		}
	}
	out := make(map[domain.Field]bool, len(lengths))
	for f, n := range lengths {
		if n == longest {
			out[f] = true
		}
	}
	return out
}
