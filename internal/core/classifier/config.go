package classifier

// Config is the single table of classifier weights and thresholds.
type Config struct {
	// SampleSize bounds how many rows are profiled per column.
	SampleSize int

	// HeaderWeight is added when the header names the field. It dominates
	// the score so explicit header intent beats content sniffing.
	HeaderWeight float64

	// PatternWeight scales the content hit rate (0..1).
	PatternWeight float64

	// MinAssignScore is the lowest score the greedy pass accepts.
	MinAssignScore float64

	// UniqueBonus rewards tracking columns whose values are (almost) all distinct.
	UniqueBonus float64
	// UniqueRatio is the distinct/non-empty ratio that earns UniqueBonus.
	UniqueRatio float64

	// StatusBonus rewards status columns with few distinct values.
	StatusBonus float64
	// StatusMaxUnique is the distinct-value ceiling for StatusBonus.
	StatusMaxUnique int

	// AddressBonus rewards long free-text columns as addresses.
	AddressBonus float64
	// AddressMinAvgLength is the average value length that earns AddressBonus.
	AddressMinAvgLength float64

	// NameBonus rewards columns averaging NameMinWords..NameMaxWords words.
	NameBonus    float64
	NameMinWords float64
	NameMaxWords float64

	// AssigneeBonus rewards low-cardinality name-shaped columns as couriers.
	AssigneeBonus float64
	// AssigneeShapeWeight scales the name-shape hit rate for couriers.
	AssigneeShapeWeight float64

	// PriorOverlap is the fraction of prior fields whose header must still
	// exist for the prior mapping to be preferred.
	PriorOverlap float64

	// ReviewConfidence is the confidence under which a required field is
	// flagged for manual resolution.
	ReviewConfidence int

	// FallbackConfidenceCap bounds the confidence of best-effort assignments.
	FallbackConfidenceCap int

	// HistoryLimit bounds how many accepted mappings are consulted.
	HistoryLimit int
}

// DefaultConfig returns the tuned defaults.
func DefaultConfig() Config {
	return Config{
		SampleSize:            50,
		HeaderWeight:          100,
		PatternWeight:         60,
		MinAssignScore:        20,
		UniqueBonus:           15,
		UniqueRatio:           0.9,
		StatusBonus:           15,
		StatusMaxUnique:       10,
		AddressBonus:          10,
		AddressMinAvgLength:   15,
		NameBonus:             10,
		NameMinWords:          1.5,
		NameMaxWords:          4,
		AssigneeBonus:         10,
		AssigneeShapeWeight:   0.5,
		PriorOverlap:          0.5,
		ReviewConfidence:      50,
		FallbackConfidenceCap: 30,
		HistoryLimit:          5,
	}
}

// withDefaults fills zero-valued thresholds from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.SampleSize <= 0 {
		c.SampleSize = d.SampleSize
	}
	if c.HeaderWeight == 0 {
		c.HeaderWeight = d.HeaderWeight
	}
	if c.PatternWeight == 0 {
		c.PatternWeight = d.PatternWeight
	}
	if c.MinAssignScore == 0 {
		c.MinAssignScore = d.MinAssignScore
	}
	if c.PriorOverlap == 0 {
		c.PriorOverlap = d.PriorOverlap
	}
	if c.ReviewConfidence == 0 {
		c.ReviewConfidence = d.ReviewConfidence
	}
	if c.FallbackConfidenceCap == 0 {
		c.FallbackConfidenceCap = d.FallbackConfidenceCap
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = d.HistoryLimit
	}
	return c
}
