package strength

import "math"

// MarketState classifies a single currency's recent strength behaviour.
type MarketState string

const (
	StateTrending      MarketState = "trending"
	StateMeanReversion MarketState = "mean_reversion_opportunity"
	StateOscillating   MarketState = "oscillating"
	StateUncertain     MarketState = "uncertain"
)

// Bias is the direction of the latest strength value relative to its mean.
type Bias string

const (
	Bullish Bias = "bullish"
	Bearish Bias = "bearish"
)

// OscillationMetric describes how a currency's strength has been moving
// inside the lookback window.
type OscillationMetric struct {
	ZScore        float64
	Volatility    float64
	Reversals     int
	State         MarketState
	MeanReversion bool
	Bias          Bias
}

const (
	trendZScore        = 1.5
	oscillationMinVol  = 0.5
	oscillationMinRevs = 3
)

// DetectOscillation classifies the last lookback points of a strength
// series. Degenerate input (short series, zero variance) yields the neutral
// uncertain state rather than an error.
func DetectOscillation(series []float64, lookback int, reversionThreshold float64) OscillationMetric {
	window := tail(series, lookback)
	m := OscillationMetric{State: StateUncertain, Bias: Bearish}
	if len(window) == 0 {
		return m
	}

	mu := mean(window)
	m.Volatility = stddev(window)
	last := window[len(window)-1]
	if m.Volatility > 0 {
		m.ZScore = (last - mu) / m.Volatility
	}
	if last > mu {
		m.Bias = Bullish
	}
	m.Reversals = countReversals(window)
	m.MeanReversion = math.Abs(m.ZScore) > reversionThreshold

	switch {
	case oneSidedTail(window, mu, 3) && math.Abs(m.ZScore) > trendZScore:
		m.State = StateTrending
	case m.MeanReversion:
		m.State = StateMeanReversion
	case m.Reversals >= oscillationMinRevs && m.Volatility > oscillationMinVol:
		m.State = StateOscillating
	}
	return m
}

// countReversals counts sign flips in the first differences of a series.
func countReversals(series []float64) int {
	if len(series) < 3 {
		return 0
	}
	diffs := make([]float64, 0, len(series)-1)
	for i := 1; i < len(series); i++ {
		diffs = append(diffs, series[i]-series[i-1])
	}
	n := 0
	for i := 1; i < len(diffs); i++ {
		if (diffs[i-1] > 0 && diffs[i] < 0) || (diffs[i-1] < 0 && diffs[i] > 0) {
			n++
		}
	}
	return n
}

// oneSidedTail reports whether the last n points all sit strictly on the
// same side of the mean.
func oneSidedTail(series []float64, mu float64, n int) bool {
	if len(series) < n {
		return false
	}
	t := series[len(series)-n:]
	above, below := true, true
	for _, v := range t {
		if v <= mu {
			above = false
		}
		if v >= mu {
			below = false
		}
	}
	return above || below
}
