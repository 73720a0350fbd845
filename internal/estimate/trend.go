package estimate

import "math"

// stableRatio is the relative difference under which two averages count as
// the same level.
const stableRatio = 0.05

// TrendLabel describes where a tracked value is heading.
type TrendLabel int

const (
	TrendStable TrendLabel = iota
	TrendIncreasing
	TrendDecreasing
)

func (t TrendLabel) String() string {
	switch t {
	case TrendIncreasing:
		return "increasing"
	case TrendDecreasing:
		return "decreasing"
	default:
		return "stable"
	}
}

// Confidence is a coarse measure of how much history backs a value.
type Confidence int

const (
	ConfidenceLow Confidence = iota
	ConfidenceMedium
	ConfidenceHigh
	ConfidenceVeryHigh
)

func (c Confidence) String() string {
	switch c {
	case ConfidenceMedium:
		return "medium"
	case ConfidenceHigh:
		return "high"
	case ConfidenceVeryHigh:
		return "very high"
	default:
		return "low"
	}
}

// ClassifyTrend compares a short-term average against a long-term one.
func ClassifyTrend(short, long float64) TrendLabel {
	if long == 0 {
		switch {
		case short > 0:
			return TrendIncreasing
		case short < 0:
			return TrendDecreasing
		default:
			return TrendStable
		}
	}
	if math.Abs(short-long)/math.Abs(long) < stableRatio {
		return TrendStable
	}
	if short > long {
		return TrendIncreasing
	}
	return TrendDecreasing
}

// ConfidenceFor maps an accepted sample count to a tier. The steps line up
// with the smoother's blend bands.
func ConfidenceFor(samples int) Confidence {
	switch {
	case samples >= 10:
		return ConfidenceVeryHigh
	case samples >= 6:
		return ConfidenceHigh
	case samples >= 2:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// Classify returns both the trend label and the confidence tier.
func Classify(short, long float64, samples int) (TrendLabel, Confidence) {
	return ClassifyTrend(short, long), ConfidenceFor(samples)
}
