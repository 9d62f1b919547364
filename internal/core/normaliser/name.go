package normaliser

import (
	"regexp"
	"strings"

	"github.com/custodia-labs/parcelsync/internal/core/domain"
)

var (
	namedDate = []*regexp.Regexp{
		regexp.MustCompile(`^\d{1,2}[/.\-]\d{1,2}([/.\-]\d{2,4})?(\s+\d{1,2}:\d{2}(:\d{2})?)?$`),
		regexp.MustCompile(`^\d{4}[/.\-]\d{1,2}[/.\-]\d{1,2}([ T]\d{1,2}:\d{2}(:\d{2})?)?$`),
	}
	autoPlaceholder = regexp.MustCompile(`^(?i)AUTO-\d+$`)
)

// Name disambiguates a name cell. Dates, tracking placeholders and bare
// place names are tagged so grouping and display can tell them from real
// customer names. Already tagged values are returned unchanged.
func (n *Normaliser) Name(raw, trackingNumber string) (string, domain.NameKind) {
	v := strings.TrimSpace(raw)

	switch {
	case strings.HasPrefix(v, domain.NameTagDate):
		return v, domain.NameDate
	case strings.HasPrefix(v, domain.NameTagAuto):
		return v, domain.NameAuto
	case strings.HasPrefix(v, domain.NameTagLocation):
		return v, domain.NameLocation
	case v == "":
		return autoName(trackingNumber), domain.NameMissing
	case isDate(v):
		return domain.NameTagDate + " " + v, domain.NameDate
	case autoPlaceholder.MatchString(v), strings.EqualFold(v, trackingNumber):
		return autoName(trackingNumber), domain.NameAuto
	case n.isLocation(v):
		return domain.NameTagLocation + " " + v, domain.NameLocation
	}
	return v, domain.NameGiven
}

func autoName(trackingNumber string) string {
	return domain.NameTagAuto + " " + trackingNumber
}

func isDate(v string) bool {
	for _, p := range namedDate {
		if p.MatchString(v) {
			return true
		}
	}
	return false
}

func (n *Normaliser) isLocation(v string) bool {
	_, ok := n.locations[foldLocation(v)]
	return ok
}

func foldLocation(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	v = strings.ReplaceAll(v, "-", " ")
	return strings.Join(strings.Fields(v), " ")
}
