package classifier

import (
	"fmt"
	"math"

	"github.com/custodia-labs/parcelsync/internal/core/domain"
)

// Options carries per-call inputs to Classify.
type Options struct {
	// SourceID is stamped on the resulting mapping.
	SourceID string

	// Prior is the last accepted mapping for the source, if any.
	Prior *domain.FieldMapping

	// History holds recently accepted mappings, most recent first. It only
	// breaks score ties when Prior is absent or no longer applies.
	History []*domain.FieldMapping
}

// Classifier assigns sheet columns to semantic fields.
type Classifier struct {
	cfg Config
}

// New creates a classifier with the given configuration. Zero-valued
// thresholds take their defaults.
func New(cfg Config) *Classifier {
	return &Classifier{cfg: cfg.withDefaults()}
}

// Config returns the effective configuration.
func (c *Classifier) Config() Config {
	return c.cfg
}

// candidate is one column's score for one field.
type candidate struct {
	score  float64
	rate   float64
	header bool
}

// Classify infers a field mapping for sheet.
func (c *Classifier) Classify(sheet *domain.Sheet, opts Options) (*domain.FieldMapping, error) {
	if sheet == nil || sheet.Width() == 0 {
		return nil, fmt.Errorf("%w: sheet has no columns", domain.ErrSourceMalformed)
	}

	profiles := Profile(sheet, c.cfg.SampleSize)
	named := make([]map[domain.Field]bool, len(profiles))
	for i := range profiles {
		named[i] = headerFields(profiles[i].Label)
	}

	mapping := domain.NewFieldMapping(opts.SourceID)
	claimed := make(map[int]bool)

	usePrior := c.applyPrior(mapping, claimed, profiles, opts.Prior)

	history := opts.History
	if usePrior {
		history = nil
	}
	if len(history) > c.cfg.HistoryLimit {
		history = history[:c.cfg.HistoryLimit]
	}

	// Greedy pass in field priority order.
	for _, f := range domain.AllFields {
		if _, ok := mapping.Columns[f]; ok {
			continue
		}
		idx, cand, ok := c.best(f, profiles, named, claimed, history)
		if !ok || cand.score < c.cfg.MinAssignScore {
			continue
		}
		mapping.Assign(f, columnRef(profiles[idx]), c.detectedConfidence(cand), domain.OriginDetected)
		claimed[idx] = true
	}

	// Required fields take the best leftover column regardless of threshold.
	for _, f := range domain.RequiredFields {
		if _, ok := mapping.Columns[f]; ok {
			continue
		}
		idx, cand, ok := c.best(f, profiles, named, claimed, history)
		if !ok {
			continue
		}
		mapping.Assign(f, columnRef(profiles[idx]), c.fallbackConfidence(cand), domain.OriginFallback)
		claimed[idx] = true
	}

	mapping.HeaderHash = domain.HeaderHash(sheet.Headers)
	mapping.RefreshReview(c.cfg.ReviewConfidence)
	return mapping, nil
}

// applyPrior pre-seeds fields from prior when enough of its headers
// survive. It reports whether the prior was used.
func (c *Classifier) applyPrior(mapping *domain.FieldMapping, claimed map[int]bool, profiles []ColumnProfile, prior *domain.FieldMapping) bool {
	if prior == nil || len(prior.Columns) == 0 {
		return false
	}

	byLabel := make(map[string][]int)
	for _, p := range profiles {
		if p.Normalized != "" {
			byLabel[p.Normalized] = append(byLabel[p.Normalized], p.Index)
		}
	}

	found := 0
	for _, ref := range prior.Columns {
		if _, ok := byLabel[NormalizeHeader(ref.Label)]; ok {
			found++
		}
	}
	if float64(found)/float64(len(prior.Columns)) <= c.cfg.PriorOverlap {
		return false
	}

	for _, f := range domain.AllFields {
		ref, ok := prior.Columns[f]
		if !ok {
			continue
		}
		idx, ok := pickLabelled(byLabel[NormalizeHeader(ref.Label)], ref.Index, claimed)
		if !ok {
			continue
		}
		origin := domain.OriginPrior
		if prior.Origins[f] == domain.OriginManual {
			origin = domain.OriginManual
		}
		mapping.Assign(f, columnRef(profiles[idx]), prior.Confidence[f], origin)
		claimed[idx] = true
	}
	return true
}

// pickLabelled prefers the prior's own index among same-label columns,
// then the first unclaimed one.
func pickLabelled(indices []int, preferred int, claimed map[int]bool) (int, bool) {
	for _, i := range indices {
		if i == preferred && !claimed[i] {
			return i, true
		}
	}
	for _, i := range indices {
		if !claimed[i] {
			return i, true
		}
	}
	return 0, false
}

// best returns the highest scoring unclaimed column for f. Ties go to the
// column history last used for f, then to the lower index.
func (c *Classifier) best(f domain.Field, profiles []ColumnProfile, named []map[domain.Field]bool, claimed map[int]bool, history []*domain.FieldMapping) (int, candidate, bool) {
	preferred := historyLabel(f, history)

	bestIdx := -1
	var bestCand candidate
	for i := range profiles {
		if claimed[i] {
			continue
		}
		cand := c.score(f, &profiles[i], named[i])
		switch {
		case bestIdx < 0, cand.score > bestCand.score:
			bestIdx, bestCand = i, cand
		case cand.score == bestCand.score && preferred != "" &&
			profiles[i].Normalized == preferred && profiles[bestIdx].Normalized != preferred:
			bestIdx, bestCand = i, cand
		}
	}
	return bestIdx, bestCand, bestIdx >= 0
}

func historyLabel(f domain.Field, history []*domain.FieldMapping) string {
	for _, m := range history {
		if ref, ok := m.Column(f); ok {
			if label := NormalizeHeader(ref.Label); label != "" {
				return label
			}
		}
	}
	return ""
}

// score combines header intent, content hit rate, shape bonuses and
// negative evidence for one field and column. A header that names some
// other field counts against the column.
func (c *Classifier) score(f domain.Field, p *ColumnProfile, named map[domain.Field]bool) candidate {
	rate := c.hitRate(f, p)
	header := named[f]
	s := rate * c.cfg.PatternWeight
	switch {
	case header:
		s += c.cfg.HeaderWeight
	case len(named) > 0:
		s -= c.cfg.HeaderWeight / 2
	}
	if rate > 0 {
		s += c.bonus(f, p)
	}
	s -= p.Rate(p.Email+p.URL) * c.cfg.PatternWeight
	return candidate{score: s, rate: rate, header: header}
}

func (c *Classifier) hitRate(f domain.Field, p *ColumnProfile) float64 {
	switch f {
	case domain.FieldTrackingNumber:
		return p.Rate(p.Tracking)
	case domain.FieldName:
		return p.Rate(p.NameLike)
	case domain.FieldPhone:
		return p.Rate(p.Phone)
	case domain.FieldAddress:
		return p.Rate(p.Address)
	case domain.FieldStatus:
		return p.Rate(p.Status)
	case domain.FieldStatusDate, domain.FieldScanDate:
		return p.Rate(p.Date)
	case domain.FieldAssignedTo:
		return p.Rate(p.NameLike) * c.cfg.AssigneeShapeWeight
	default:
		return 0
	}
}

func (c *Classifier) bonus(f domain.Field, p *ColumnProfile) float64 {
	switch f {
	case domain.FieldTrackingNumber:
		if p.Samples >= 2 && float64(p.Unique)/float64(p.Samples) >= c.cfg.UniqueRatio {
			return c.cfg.UniqueBonus
		}
	case domain.FieldName:
		if p.AvgWords >= c.cfg.NameMinWords && p.AvgWords <= c.cfg.NameMaxWords {
			return c.cfg.NameBonus
		}
	case domain.FieldAddress:
		if p.AvgLength >= c.cfg.AddressMinAvgLength {
			return c.cfg.AddressBonus
		}
	case domain.FieldStatus:
		if p.Unique <= c.cfg.StatusMaxUnique {
			return c.cfg.StatusBonus
		}
	case domain.FieldAssignedTo:
		limit := p.Samples / 5
		if limit < 3 {
			limit = 3
		}
		if p.Samples >= 5 && p.Unique <= limit {
			return c.cfg.AssigneeBonus
		}
	}
	return 0
}

// detectedConfidence maps a greedy assignment to 0..100: a header match is
// worth 55 plus up to 45 from content, content alone up to 85.
func (c *Classifier) detectedConfidence(cand candidate) int {
	rate := math.Min(cand.rate, 1)
	if cand.header {
		return int(math.Round(55 + 45*rate))
	}
	return int(math.Round(85 * rate))
}

func (c *Classifier) fallbackConfidence(cand candidate) int {
	conf := int(math.Round(float64(c.cfg.FallbackConfidenceCap) * math.Min(cand.rate, 1)))
	if conf > c.cfg.FallbackConfidenceCap {
		conf = c.cfg.FallbackConfidenceCap
	}
	return conf
}

func columnRef(p ColumnProfile) domain.ColumnRef {
	return domain.ColumnRef{Index: p.Index, Label: p.Label}
}
