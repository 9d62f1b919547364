package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// ColumnRef identifies a source column by position and label.
type ColumnRef struct {
	// Index is the zero-based column position.
	Index int `json:"index"`

	// Label is the header text at that position (may be empty).
	Label string `json:"label"`
}

// MappingOrigin records how a field got its column.
type MappingOrigin string

const (
	// OriginDetected means the greedy pass picked the column above threshold.
	OriginDetected MappingOrigin = "detected"
	// OriginFallback means a required field took the best leftover column.
	OriginFallback MappingOrigin = "fallback"
	// OriginPrior means the column was carried over from the previous mapping.
	OriginPrior MappingOrigin = "prior"
	// OriginManual means a user chose the column explicitly.
	OriginManual MappingOrigin = "manual"
)

// FieldMapping assigns source columns to semantic fields.
// A column is claimed by at most one field.
type FieldMapping struct {
	// SourceID is the source this mapping was inferred for.
	SourceID string `json:"source_id"`

	// Columns maps each assigned field to its column.
	Columns map[Field]ColumnRef `json:"columns"`

	// Confidence is a 0-100 score per assigned field.
	Confidence map[Field]int `json:"confidence"`

	// Origins records how each field was assigned.
	Origins map[Field]MappingOrigin `json:"origins"`

	// NeedsReview lists required fields whose confidence is too low to trust.
	NeedsReview []Field `json:"needs_review,omitempty"`

	// HeaderHash fingerprints the header set the mapping was built from.
	HeaderHash string `json:"header_hash"`
}

// NewFieldMapping returns an empty mapping for a source.
func NewFieldMapping(sourceID string) *FieldMapping {
	return &FieldMapping{
		SourceID:   sourceID,
		Columns:    make(map[Field]ColumnRef),
		Confidence: make(map[Field]int),
		Origins:    make(map[Field]MappingOrigin),
	}
}

// Column returns the column assigned to a field.
func (m *FieldMapping) Column(f Field) (ColumnRef, bool) {
	if m == nil {
		return ColumnRef{}, false
	}
	ref, ok := m.Columns[f]
	return ref, ok
}

// FieldForColumn returns the field that claims the given column index.
func (m *FieldMapping) FieldForColumn(index int) (Field, bool) {
	if m == nil {
		return "", false
	}
	for _, f := range AllFields {
		if ref, ok := m.Columns[f]; ok && ref.Index == index {
			return f, true
		}
	}
	return "", false
}

// Assign claims a column for a field, replacing any previous assignment.
func (m *FieldMapping) Assign(f Field, ref ColumnRef, confidence int, origin MappingOrigin) {
	m.Columns[f] = ref
	m.Confidence[f] = clampConfidence(confidence)
	m.Origins[f] = origin
}

// Unassign removes a field's column.
func (m *FieldMapping) Unassign(f Field) {
	delete(m.Columns, f)
	delete(m.Confidence, f)
	delete(m.Origins, f)
}

// MappedFields returns assigned fields in priority order.
func (m *FieldMapping) MappedFields() []Field {
	var fields []Field
	for _, f := range AllFields {
		if _, ok := m.Columns[f]; ok {
			fields = append(fields, f)
		}
	}
	return fields
}

// RefreshReview recomputes NeedsReview against a confidence threshold.
func (m *FieldMapping) RefreshReview(threshold int) {
	m.NeedsReview = nil
	for _, f := range RequiredFields {
		if _, ok := m.Columns[f]; !ok || m.Confidence[f] < threshold {
			m.NeedsReview = append(m.NeedsReview, f)
		}
	}
}

// Clone returns a deep copy.
func (m *FieldMapping) Clone() *FieldMapping {
	if m == nil {
		return nil
	}
	c := NewFieldMapping(m.SourceID)
	for f, ref := range m.Columns {
		c.Columns[f] = ref
	}
	for f, v := range m.Confidence {
		c.Confidence[f] = v
	}
	for f, o := range m.Origins {
		c.Origins[f] = o
	}
	if m.NeedsReview != nil {
		c.NeedsReview = append([]Field(nil), m.NeedsReview...)
	}
	c.HeaderHash = m.HeaderHash
	return c
}

func clampConfidence(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// HeaderHash fingerprints a header set. Labels are trimmed and lowercased so
// cosmetic edits to a header do not invalidate a cached mapping.
func HeaderHash(headers []string) string {
	h := sha256.New()
	for _, label := range headers {
		h.Write([]byte(strings.ToLower(strings.TrimSpace(label))))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}
