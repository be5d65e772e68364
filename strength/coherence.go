package strength

import (
	"ufotrader/market"
)

// CoherenceLevel classifies cross-timeframe agreement.
type CoherenceLevel string

const (
	CoherenceStrong   CoherenceLevel = "strong"
	CoherenceModerate CoherenceLevel = "moderate"
	CoherenceWeak     CoherenceLevel = "weak"
)

// CoherenceMetric measures how well a currency's strength agrees across
// timeframes in direction and magnitude.
type CoherenceMetric struct {
	Direction float64
	Magnitude float64
	Overall   float64
	Level     CoherenceLevel
	Dominant  Bias
}

// DetectCoherence scores agreement of a currency's latest strength values
// across timeframes. It needs at least two timeframes; fewer yields the
// zero, weak metric.
func DetectCoherence(byTimeframe map[market.Timeframe]float64) CoherenceMetric {
	m := CoherenceMetric{Level: CoherenceWeak, Dominant: Bearish}
	if len(byTimeframe) < 2 {
		return m
	}

	values := make([]float64, 0, len(byTimeframe))
	for _, v := range byTimeframe {
		values = append(values, v)
	}

	var positive, negative int
	for _, v := range values {
		if v > 0 {
			positive++
		} else if v < 0 {
			negative++
		}
	}
	m.Direction = float64(max(positive, negative)) / float64(len(values))
	if positive > negative {
		m.Dominant = Bullish
	}

	m.Magnitude = magnitudeCoherence(values)
	m.Overall = (m.Direction + m.Magnitude) / 2

	switch {
	case m.Overall >= 0.8:
		m.Level = CoherenceStrong
	case m.Overall >= 0.6:
		m.Level = CoherenceModerate
	}
	return m
}

// magnitudeCoherence is 1 minus the stddev of min-max-scaled values, so
// identical magnitudes score 1.0. Result is clamped to [0,1].
func magnitudeCoherence(values []float64) float64 {
	lo, hi := values[0], values[0]
	for _, v := range values {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if hi-lo == 0 {
		return 1.0
	}
	scaled := make([]float64, len(values))
	for i, v := range values {
		scaled[i] = (v - lo) / (hi - lo)
	}
	c := 1 - stddev(scaled)
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
