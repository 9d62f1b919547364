package classifier

import (
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/parcelsync/internal/core/domain"
)

// ColumnProfile summarises the sampled content of one column.
type ColumnProfile struct {
	Index int
	Label string
	// Normalized is the folded header label used for keyword matching.
	Normalized string

	// Samples counts non-empty sampled values.
	Samples int
	Unique  int

	Phone    int
	Tracking int
	Date     int
	Address  int
	Status   int
	NameLike int
	Email    int
	URL      int

	Hebrew int
	Latin  int
	Mixed  int

	AvgLength float64
	AvgWords  float64
}

// Rate returns hits as a fraction of non-empty samples.
func (p *ColumnProfile) Rate(hits int) float64 {
	if p.Samples == 0 {
		return 0
	}
	return float64(hits) / float64(p.Samples)
}

// Profile samples up to sampleSize rows of sheet and profiles every column.
func Profile(sheet *domain.Sheet, sampleSize int) []ColumnProfile {
	width := sheet.Width()
	rows := sheet.Rows
	if sampleSize > 0 && len(rows) > sampleSize {
		rows = rows[:sampleSize]
	}

	profiles := make([]ColumnProfile, width)
	for col := 0; col < width; col++ {
		label := ""
		if col < len(sheet.Headers) {
			label = strings.TrimSpace(sheet.Headers[col])
		}
		p := ColumnProfile{Index: col, Label: label, Normalized: NormalizeHeader(label)}

		seen := make(map[string]struct{})
		var totalLen, totalWords int
		for _, row := range rows {
			v := strings.TrimSpace(domain.CellAt(row, col))
			if v == "" {
				continue
			}
			p.Samples++
			seen[strings.ToLower(v)] = struct{}{}
			totalLen += utf8.RuneCountInString(v)
			totalWords += len(strings.Fields(v))
			observe(&p, v)
		}
		p.Unique = len(seen)
		if p.Samples > 0 {
			p.AvgLength = float64(totalLen) / float64(p.Samples)
			p.AvgWords = float64(totalWords) / float64(p.Samples)
		}
		profiles[col] = p
	}
	return profiles
}

func observe(p *ColumnProfile, v string) {
	if isPhoneLike(v) {
		p.Phone++
	}
	if isTrackingLike(v) {
		p.Tracking++
	}
	if isDateLike(v) {
		p.Date++
	}
	if isAddressLike(v) {
		p.Address++
	}
	if domain.ContainsStatusKeyword(v) {
		p.Status++
	}
	if isNameShaped(v) {
		p.NameLike++
	}
	if isEmail(v) {
		p.Email++
	}
	if isURL(v) {
		p.URL++
	}
	switch scriptOf(v) {
	case scriptHebrew:
		p.Hebrew++
	case scriptLatin:
		p.Latin++
	case scriptMixed:
		p.Mixed++
	}
}
