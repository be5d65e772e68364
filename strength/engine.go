package strength

import (
	"time"

	"github.com/rs/zerolog"

	"ufotrader/market"
)

// Engine turns raw multi-timeframe price bars into Snapshots. All derivation
// functions are pure and total over well-formed input; malformed input
// degrades to neutral values.
type Engine struct {
	basket             []string
	window             int
	lookback           int
	reversionThreshold float64
	log                zerolog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithWindow overrides the rolling-mean window (and oscillation lookback).
func WithWindow(w int) Option {
	return func(e *Engine) {
		if w > 0 {
			e.window = w
			e.lookback = w
		}
	}
}

// WithReversionThreshold overrides the mean-reversion z-score threshold.
func WithReversionThreshold(z float64) Option {
	return func(e *Engine) {
		if z > 0 {
			e.reversionThreshold = z
		}
	}
}

// NewEngine builds an engine for the given currency basket.
func NewEngine(basket []string, log zerolog.Logger, opts ...Option) *Engine {
	e := &Engine{
		basket:             basket,
		window:             DefaultWindow,
		lookback:           DefaultWindow,
		reversionThreshold: 2.0,
		log:                log.With().Str("component", "strength").Logger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Basket returns the engine's currency basket.
func (e *Engine) Basket() []string { return e.basket }

// Analyze runs the full derivation pipeline for one cycle: variation →
// cumulative sum → signed strength aggregation → rolling mean, then the
// oscillation, uncertainty and coherence analyses.
func (e *Engine) Analyze(bars map[market.Timeframe]map[market.Pair][]market.Bar, now time.Time) *Snapshot {
	snap := &Snapshot{
		Time:        now,
		Strength:    make(map[market.Timeframe]map[string][]float64, len(bars)),
		Oscillation: make(map[market.Timeframe]map[string]OscillationMetric, len(bars)),
		Uncertainty: make(map[market.Timeframe]UncertaintyMetric, len(bars)),
		Coherence:   make(map[string]CoherenceMetric, len(e.basket)),
	}

	for tf, byPair := range bars {
		cumulative := make(map[market.Pair][]float64, len(byPair))
		for pair, series := range byPair {
			cumulative[pair] = Cumulative(Variation(series))
		}
		snap.Strength[tf] = Strength(cumulative, e.basket, e.window)

		osc := make(map[string]OscillationMetric, len(e.basket))
		for _, ccy := range e.basket {
			osc[ccy] = DetectOscillation(snap.Strength[tf][ccy], e.lookback, e.reversionThreshold)
		}
		snap.Oscillation[tf] = osc
		snap.Uncertainty[tf] = AnalyzeUncertainty(osc)
	}

	for _, ccy := range e.basket {
		byTF := make(map[market.Timeframe]float64, len(snap.Strength))
		for tf := range snap.Strength {
			if series := snap.Series(tf, ccy); len(series) > 0 {
				byTF[tf] = series[len(series)-1]
			}
		}
		snap.Coherence[ccy] = DetectCoherence(byTF)
	}

	e.log.Debug().
		Time("at", now).
		Int("timeframes", len(snap.Strength)).
		Msg("snapshot produced")

	return snap
}
