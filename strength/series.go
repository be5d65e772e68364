// Package strength derives per-currency strength indices from cross-pair
// price bars and classifies the market state they imply.
package strength

import (
	"ufotrader/market"

	"gonum.org/v1/gonum/stat"
)

// DefaultWindow is the rolling-mean window applied to raw strength sums.
const DefaultWindow = 20

// Variation returns the percent change between consecutive bar closes.
// The first element is 0, as is any entry that cannot be computed
// (zero previous close). It never fails.
func Variation(bars []market.Bar) []float64 {
	if len(bars) == 0 {
		return nil
	}
	out := make([]float64, len(bars))
	for i := 1; i < len(bars); i++ {
		prev := bars[i-1].Close
		if prev == 0 {
			continue
		}
		out[i] = (bars[i].Close - prev) / prev * 100
	}
	return out
}

// Cumulative returns the prefix sum of a variation series.
func Cumulative(variation []float64) []float64 {
	out := make([]float64, len(variation))
	sum := 0.0
	for i, v := range variation {
		sum += v
		out[i] = sum
	}
	return out
}

// Strength aggregates cumulative variation into one series per currency in
// the basket. A pair contributes positively to its base currency and
// negatively to its quote, so for any pair AB the raw contribution to A is
// exactly -1 times the contribution to B. The signed sum is then smoothed
// with a rolling mean of width window; positions with fewer than window
// samples are zero, not dropped.
func Strength(cumulative map[market.Pair][]float64, basket []string, window int) map[string][]float64 {
	if window <= 0 {
		window = DefaultWindow
	}

	n := -1
	for _, series := range cumulative {
		if n < 0 || len(series) < n {
			n = len(series)
		}
	}
	if n <= 0 {
		out := make(map[string][]float64, len(basket))
		for _, ccy := range basket {
			out[ccy] = nil
		}
		return out
	}

	out := make(map[string][]float64, len(basket))
	for _, ccy := range basket {
		raw := make([]float64, n)
		for pair, series := range cumulative {
			switch ccy {
			case pair.Base:
				for i := 0; i < n; i++ {
					raw[i] += series[i]
				}
			case pair.Quote:
				for i := 0; i < n; i++ {
					raw[i] -= series[i]
				}
			}
		}
		out[ccy] = rollingMean(raw, window)
	}
	return out
}

// rollingMean smooths a series with a fixed window; entries before the
// window fills are zero.
func rollingMean(series []float64, window int) []float64 {
	out := make([]float64, len(series))
	if len(series) < window {
		return out
	}
	sum := 0.0
	for i, v := range series {
		sum += v
		if i >= window {
			sum -= series[i-window]
		}
		if i >= window-1 {
			out[i] = sum / float64(window)
		}
	}
	return out
}

// mean and stddev thin-wrap gonum so empty input degrades to zero instead
// of NaN: downstream risk logic must always receive a value.
func mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

func stddev(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	return stat.StdDev(data, nil)
}

func tail(series []float64, n int) []float64 {
	if len(series) <= n {
		return series
	}
	return series[len(series)-n:]
}
