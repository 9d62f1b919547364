package domain

import "strings"

// Status is the closed set of delivery states.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusDelivered  Status = "delivered"
	StatusFailed     Status = "failed"
	StatusReturned   Status = "returned"
)

// AllStatuses lists every status in display order.
var AllStatuses = []Status{
	StatusPending,
	StatusInProgress,
	StatusDelivered,
	StatusFailed,
	StatusReturned,
}

// IsValid reports whether s is a canonical status.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusDelivered, StatusFailed, StatusReturned:
		return true
	default:
		return false
	}
}

// statusKeywords is the bilingual vocabulary, in match priority order.
// The first status whose keyword is contained in the value wins.
var statusKeywords = []struct {
	status   Status
	keywords []string
}{
	{StatusDelivered, []string{"delivered", "נמסר", "נמסרה", "הושלם", "בוצע", "completed"}},
	{StatusPending, []string{"pending", "waiting", "ממתין", "ממתינה", "טרם", "חדש"}},
	{StatusInProgress, []string{"in_progress", "in progress", "in transit", "out for delivery", "on the way", "בדרך", "בטיפול", "בחלוקה", "יצא לחלוקה"}},
	{StatusFailed, []string{"failed", "undeliverable", "נכשל", "נכשלה", "לא נמסר"}},
	{StatusReturned, []string{"returned", "return", "הוחזר", "הוחזרה", "חזר", "החזרה"}},
}

// negatedDelivery phrases contain a delivered keyword but mean something
// else. They are checked before the keyword table.
var negatedDelivery = []struct {
	phrase string
	status Status
}{
	{"טרם נמסר", StatusPending},
	{"not yet delivered", StatusPending},
	{"לא נמסר", StatusFailed},
	{"not delivered", StatusFailed},
	{"undelivered", StatusFailed},
}

// MatchStatus maps free text to a status by keyword containment.
// The second result is false when no keyword matched.
func MatchStatus(text string) (Status, bool) {
	v := strings.ToLower(strings.TrimSpace(text))
	if v == "" {
		return "", false
	}
	for _, n := range negatedDelivery {
		if strings.Contains(v, n.phrase) {
			return n.status, true
		}
	}
	for _, entry := range statusKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(v, kw) {
				return entry.status, true
			}
		}
	}
	return "", false
}

// ParseStatus maps free text to a status, defaulting to pending.
func ParseStatus(text string) Status {
	if s, ok := MatchStatus(text); ok {
		return s
	}
	return StatusPending
}

// ContainsStatusKeyword reports whether text mentions any status keyword.
func ContainsStatusKeyword(text string) bool {
	_, ok := MatchStatus(text)
	return ok
}

// StatusKeywords returns a copy of the keywords for one status.
func StatusKeywords(s Status) []string {
	for _, entry := range statusKeywords {
		if entry.status == s {
			return append([]string(nil), entry.keywords...)
		}
	}
	return nil
}
