package strength

import (
	"time"

	"ufotrader/market"
)

// Snapshot is one cycle's complete strength picture: the smoothed series per
// timeframe per currency plus the derived analyses. A snapshot is immutable
// once produced; the next cycle supersedes it rather than mutating it. The
// analysis fields always carry neutral defaults, so a single shape flows
// through the whole pipeline.
type Snapshot struct {
	Time        time.Time
	Strength    map[market.Timeframe]map[string][]float64
	Oscillation map[market.Timeframe]map[string]OscillationMetric
	Uncertainty map[market.Timeframe]UncertaintyMetric
	Coherence   map[string]CoherenceMetric
}

// Latest returns the most recent strength value for a currency on a
// timeframe, or 0 when missing.
func (s *Snapshot) Latest(tf market.Timeframe, currency string) float64 {
	if s == nil {
		return 0
	}
	series := s.Series(tf, currency)
	if len(series) == 0 {
		return 0
	}
	return series[len(series)-1]
}

// LatestAny returns the most recent strength for the primary timeframe,
// falling back to any timeframe that has the currency. Missing everywhere
// yields neutral 0.
func (s *Snapshot) LatestAny(currency string) float64 {
	if s == nil {
		return 0
	}
	if series := s.Series(market.Primary, currency); len(series) > 0 {
		return series[len(series)-1]
	}
	for tf := range s.Strength {
		if series := s.Series(tf, currency); len(series) > 0 {
			return series[len(series)-1]
		}
	}
	return 0
}

// Has reports whether any timeframe carries strength data for a currency.
func (s *Snapshot) Has(currency string) bool {
	if s == nil {
		return false
	}
	for tf := range s.Strength {
		if len(s.Strength[tf][currency]) > 0 {
			return true
		}
	}
	return false
}

// Series returns the full smoothed series for a currency on a timeframe,
// nil when missing.
func (s *Snapshot) Series(tf market.Timeframe, currency string) []float64 {
	if s == nil {
		return nil
	}
	byCcy, ok := s.Strength[tf]
	if !ok {
		return nil
	}
	return byCcy[currency]
}

// TrailingMean averages the last n values of a currency's series on a
// timeframe; shorter series average what is there, empty yields 0.
func (s *Snapshot) TrailingMean(tf market.Timeframe, currency string, n int) float64 {
	return mean(tail(s.Series(tf, currency), n))
}
