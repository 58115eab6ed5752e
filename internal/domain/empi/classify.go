package empi

import "fmt"

// Thresholds partitions the [0, 1] score range into three classification
// bands. Low is exclusive for NO_MATCH, High is inclusive for MATCH.
type Thresholds struct {
	Low  float64
	High float64
}

// NewThresholds validates and returns a threshold pair.
func NewThresholds(low, high float64) (Thresholds, error) {
	if low <= 0 || low >= 1 {
		return Thresholds{}, fmt.Errorf("low threshold must be in (0, 1), got %v", low)
	}
	if high <= low || high > 1 {
		return Thresholds{}, fmt.Errorf("high threshold must be in (low, 1], got %v", high)
	}
	return Thresholds{Low: low, High: high}, nil
}

// Classify maps a comparison to its match band. A shared external identifier
// is always a MATCH regardless of the demographic score.
func (t Thresholds) Classify(c Comparison) MatchResult {
	if c.EIDMatch {
		return MatchResultMatch
	}
	switch {
	case c.Score >= t.High:
		return MatchResultMatch
	case c.Score >= t.Low:
		return MatchResultPossibleMatch
	default:
		return MatchResultNoMatch
	}
}
