package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Tags prefixed to names the normaliser synthesised.
const (
	NameTagDate     = "[DATE]"
	NameTagAuto     = "[AUTO]"
	NameTagLocation = "[LOCATION]"
)

// AddressUnknown is stored when a row carries no usable address.
const AddressUnknown = "Unknown address"

// StatusDateLayout is the layout used for status dates written by parcelsync.
const StatusDateLayout = "2006-01-02 15:04"

// NameKind records where a record's name came from.
type NameKind string

const (
	// NameGiven is a name taken from the source as-is.
	NameGiven NameKind = "given"
	// NameMissing is a name synthesised because the cell was empty.
	NameMissing NameKind = "missing"
	// NameDate is a date that leaked into the name column.
	NameDate NameKind = "date"
	// NameAuto is a tracking placeholder that leaked into the name column.
	NameAuto NameKind = "auto"
	// NameLocation is a bare place name that leaked into the name column.
	NameLocation NameKind = "location"
)

// DeliveryRecord is a normalised delivery row.
type DeliveryRecord struct {
	// ID is derived from the tracking number and row; never supplied by the source.
	ID string `json:"id"`

	// Row is the 1-based data row number in the source (header excluded).
	Row int `json:"row"`

	// TrackingNumber is unique within a batch after deduplication.
	TrackingNumber string `json:"tracking_number"`

	// TrackingGenerated is true when the tracking number is an AUTO placeholder.
	TrackingGenerated bool `json:"tracking_generated,omitempty"`

	Name     string   `json:"name"`
	NameKind NameKind `json:"name_kind"`

	// Phone is in +972 form, or empty when the source value was unusable.
	Phone string `json:"phone"`

	Address string `json:"address"`

	Status Status `json:"status"`

	// RawStatus is the source text the status was derived from.
	RawStatus string `json:"raw_status,omitempty"`

	StatusDate string `json:"status_date,omitempty"`
	ScanDate   string `json:"scan_date,omitempty"`
	AssignedTo string `json:"assigned_to,omitempty"`
}

// Ref returns a reference to the record suitable for remote mutations.
func (r *DeliveryRecord) Ref() RecordRef {
	return RecordRef{ID: r.ID, TrackingNumber: r.TrackingNumber, Row: r.Row}
}

// ApplyStatus sets the status and status date.
func (r *DeliveryRecord) ApplyStatus(status Status, statusDate string) {
	r.Status = status
	r.StatusDate = statusDate
}

// RecordRef points at a record in the remote store.
type RecordRef struct {
	ID             string `json:"id"`
	TrackingNumber string `json:"tracking_number"`
	Row            int    `json:"row"`
}

// IsInformativeName reports whether a name identifies a customer.
// Empty names, synthetic date/auto labels and bare tracking numbers do not.
func IsInformativeName(name, trackingNumber string) bool {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return false
	case strings.HasPrefix(name, NameTagDate), strings.HasPrefix(name, NameTagAuto):
		return false
	case trackingNumber != "" && strings.EqualFold(name, trackingNumber):
		return false
	}
	return true
}

// GroupKey derives the customer group a record belongs to.
//
// The key is the name when it is informative. Otherwise it is the leading
// address segment (text before the first comma or dash) when that segment has
// at least three characters, then the full address, then the tracking number.
func GroupKey(r *DeliveryRecord) string {
	if IsInformativeName(r.Name, r.TrackingNumber) {
		return strings.TrimSpace(r.Name)
	}

	address := strings.TrimSpace(r.Address)
	if address != "" && address != AddressUnknown {
		if idx := strings.IndexAny(address, ",-–"); idx > 0 {
			lead := strings.TrimSpace(address[:idx])
			if utf8.RuneCountInString(lead) >= 3 {
				return lead
			}
		}
		return address
	}

	return "#" + r.TrackingNumber
}

// SameCustomer reports whether b belongs in a batch update targeting a.
// Records must share a group key; when both carry a phone number the phones
// must agree too, which keeps two customers with the same display name apart.
func SameCustomer(a, b *DeliveryRecord) bool {
	if GroupKey(a) != GroupKey(b) {
		return false
	}
	if a.Phone != "" && b.Phone != "" && a.Phone != b.Phone {
		return false
	}
	return true
}

// FormatStatusDate renders a time in StatusDateLayout.
func FormatStatusDate(t time.Time) string {
	return t.Format(StatusDateLayout)
}
