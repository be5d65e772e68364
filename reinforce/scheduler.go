// Package reinforce is the event-driven layer between main decision cycles:
// it watches open positions and live prices on a fast tick, detects triggers
// that cannot wait for the next full analysis, and sizes compensation trades
// under hard per-position caps and cooldowns.
package reinforce

import (
	"time"

	"github.com/rs/zerolog"

	"ufotrader/ledger"
	"ufotrader/session"
)

// VolatilityState tracks the market regime inferred from spreads. It scales
// both the check frequency and the reinforcement size.
type VolatilityState string

const (
	VolatilityNormal  VolatilityState = "normal"
	VolatilityHigh    VolatilityState = "high"
	VolatilityExtreme VolatilityState = "extreme"
)

// Config holds the scheduler tunables. Zero values fall back to defaults.
type Config struct {
	// Interval is the base time between reinforcement checks.
	Interval time.Duration `yaml:"interval"`
	// VolatilityMultiplier divides the interval when volatility is high;
	// it is doubled again when extreme.
	VolatilityMultiplier float64 `yaml:"volatility_multiplier"`
	// PriceMovePips is the adverse-or-favorable move, in pips from entry,
	// that raises a price-movement event.
	PriceMovePips float64 `yaml:"price_move_pips"`
	// RapidLossPct raises a critical event when a position's loss reaches
	// this percentage of the reference balance.
	RapidLossPct     float64 `yaml:"rapid_loss_pct"`
	ReferenceBalance float64 `yaml:"reference_balance"`
	// StrengthChangeThreshold is the deviation of a currency's latest
	// strength from its trailing 3-sample average that raises an event.
	StrengthChangeThreshold float64 `yaml:"strength_change_threshold"`
	// BaseFraction of the original volume a reinforcement starts from,
	// before event, session and volatility scaling.
	BaseFraction float64 `yaml:"base_fraction"`
	// MaxPerPosition and Cooldown are hard gates checked before any
	// sizing math.
	MaxPerPosition int           `yaml:"max_per_position"`
	Cooldown       time.Duration `yaml:"cooldown"`
	// NormalSpread is the baseline spread used as a volatility proxy.
	NormalSpread float64 `yaml:"normal_spread"`
}

// DefaultConfig returns the standard scheduler settings.
func DefaultConfig() Config {
	return Config{
		Interval:                5 * time.Minute,
		VolatilityMultiplier:    2.0,
		PriceMovePips:           20,
		RapidLossPct:            2.0,
		ReferenceBalance:        10000,
		StrengthChangeThreshold: 1.5,
		BaseFraction:            0.3,
		MaxPerPosition:          3,
		Cooldown:                15 * time.Minute,
		NormalSpread:            0.0001,
	}
}

// Scheduler decides when to look for reinforcement triggers and how big a
// compensation trade may be. It is not safe for concurrent use; the trading
// loop serializes cycles against shared state.
type Scheduler struct {
	cfg   Config
	clock *session.Clock
	book  *ledger.Ledger
	log   zerolog.Logger

	volatility VolatilityState
	lastCheck  time.Time
}

// NewScheduler builds a Scheduler; cfg zero values take defaults.
func NewScheduler(cfg Config, clock *session.Clock, book *ledger.Ledger, log zerolog.Logger) *Scheduler {
	def := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.VolatilityMultiplier <= 0 {
		cfg.VolatilityMultiplier = def.VolatilityMultiplier
	}
	if cfg.PriceMovePips <= 0 {
		cfg.PriceMovePips = def.PriceMovePips
	}
	if cfg.RapidLossPct <= 0 {
		cfg.RapidLossPct = def.RapidLossPct
	}
	if cfg.ReferenceBalance <= 0 {
		cfg.ReferenceBalance = def.ReferenceBalance
	}
	if cfg.StrengthChangeThreshold <= 0 {
		cfg.StrengthChangeThreshold = def.StrengthChangeThreshold
	}
	if cfg.BaseFraction <= 0 {
		cfg.BaseFraction = def.BaseFraction
	}
	if cfg.MaxPerPosition <= 0 {
		cfg.MaxPerPosition = def.MaxPerPosition
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = def.Cooldown
	}
	if cfg.NormalSpread <= 0 {
		cfg.NormalSpread = def.NormalSpread
	}
	return &Scheduler{
		cfg:        cfg,
		clock:      clock,
		book:       book,
		log:        log.With().Str("component", "reinforce").Logger(),
		volatility: VolatilityNormal,
	}
}

// Volatility returns the regime inferred from the most recent spreads seen
// during sizing.
func (s *Scheduler) Volatility() VolatilityState { return s.volatility }

// ShouldCheck reports whether enough time has passed since the last check.
// High volatility shortens the interval by the configured multiplier,
// extreme volatility by twice that. The first call always checks.
func (s *Scheduler) ShouldCheck(now time.Time) bool {
	if s.lastCheck.IsZero() {
		return true
	}
	interval := s.cfg.Interval
	switch s.volatility {
	case VolatilityHigh:
		interval = time.Duration(float64(interval) / s.cfg.VolatilityMultiplier)
	case VolatilityExtreme:
		interval = time.Duration(float64(interval) / (s.cfg.VolatilityMultiplier * 2))
	}
	return now.Sub(s.lastCheck) >= interval
}

// MarkChecked stamps the completion of a reinforcement check pass.
func (s *Scheduler) MarkChecked(now time.Time) { s.lastCheck = now }

// volatilityAdjustment derives a sizing multiplier from the current spread
// against the normal-spread baseline and updates the volatility regime as a
// side effect.
func (s *Scheduler) volatilityAdjustment(spread float64) float64 {
	if spread <= 0 {
		s.volatility = VolatilityNormal
		return 1.0
	}
	switch ratio := spread / s.cfg.NormalSpread; {
	case ratio > 3.0:
		s.volatility = VolatilityExtreme
		return 0.7
	case ratio > 2.0:
		s.volatility = VolatilityHigh
		return 0.85
	default:
		s.volatility = VolatilityNormal
		return 1.0
	}
}
