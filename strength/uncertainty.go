package strength

// OverallState labels the whole basket's condition on one timeframe.
type OverallState string

const (
	TrendingMarket  OverallState = "trending_market"
	RangingMarket   OverallState = "ranging_market"
	UncertainMarket OverallState = "uncertain_market"
	MixedMarket     OverallState = "mixed_market"
)

// Confidence drives position-size scaling.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// ScalingFor maps confidence to the recommended position-size factor.
func ScalingFor(c Confidence) float64 {
	switch c {
	case ConfidenceHigh:
		return 1.0
	case ConfidenceMedium:
		return 0.75
	default:
		return 0.5
	}
}

// UncertaintyMetric summarizes the mix of oscillation classes across the
// basket on one timeframe.
type UncertaintyMetric struct {
	UncertainRatio   float64
	OscillationRatio float64
	TrendRatio       float64
	State            OverallState
	Confidence       Confidence
	PositionScaling  float64
}

// AnalyzeUncertainty derives the overall market state by majority rule over
// per-currency oscillation classes. An empty input yields the neutral
// uncertain state.
func AnalyzeUncertainty(osc map[string]OscillationMetric) UncertaintyMetric {
	m := UncertaintyMetric{
		State:           UncertainMarket,
		Confidence:      ConfidenceLow,
		PositionScaling: ScalingFor(ConfidenceLow),
	}
	total := len(osc)
	if total == 0 {
		return m
	}

	var uncertain, oscillating, trending int
	for _, o := range osc {
		switch o.State {
		case StateUncertain:
			uncertain++
		case StateOscillating:
			oscillating++
		case StateTrending:
			trending++
		}
	}

	m.UncertainRatio = float64(uncertain) / float64(total)
	m.OscillationRatio = float64(oscillating) / float64(total)
	m.TrendRatio = float64(trending) / float64(total)

	switch {
	case m.TrendRatio > 0.6:
		m.State, m.Confidence = TrendingMarket, ConfidenceHigh
	case m.OscillationRatio > 0.5:
		m.State, m.Confidence = RangingMarket, ConfidenceMedium
	case m.UncertainRatio > 0.4:
		m.State, m.Confidence = UncertainMarket, ConfidenceLow
	default:
		m.State, m.Confidence = MixedMarket, ConfidenceMedium
	}
	m.PositionScaling = ScalingFor(m.Confidence)
	return m
}
