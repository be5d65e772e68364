// Package risk gates trade opening, detects portfolio-level exit
// conditions and decides whether losing positions are reinforced or closed.
package risk

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"ufotrader/session"
)

// Config holds the controller's thresholds. Zero values fall back to the
// documented defaults via DefaultConfig().
type Config struct {
	// EquityStopPct is the portfolio drawdown that mandates closing every
	// open position, as a negative percentage.
	EquityStopPct float64 `yaml:"equity_stop_pct"`

	// Position-count bands for the diversification logic.
	MaxConcurrent int `yaml:"max_concurrent"`
	Target        int `yaml:"target"`
	MinForSession int `yaml:"min_for_session"`

	// ExitChangeThreshold is the strength change versus the previous
	// snapshot's trailing average that counts as an exit signal.
	ExitChangeThreshold float64 `yaml:"exit_change_threshold"`
	// ForceCloseSignals is how many simultaneous signals force closing the
	// affected positions.
	ForceCloseSignals int `yaml:"force_close_signals"`

	// Timing-error classification for reinforcement decisions. These were
	// tuned empirically in production; keep them configurable rather than
	// re-deriving semantics.
	EarlyEntryAge  time.Duration `yaml:"early_entry_age"`
	LateEntryAge   time.Duration `yaml:"late_entry_age"`
	AdverseMovePct float64       `yaml:"adverse_move_pct"`

	// StandardLossThreshold is the P&L below which a minor-timing losing
	// position still earns a standard reinforcement.
	StandardLossThreshold float64 `yaml:"standard_loss_threshold"`

	// MaxReinforcements caps compensation trades per original position.
	MaxReinforcements int `yaml:"max_reinforcements"`
}

// DefaultConfig returns the documented risk thresholds.
func DefaultConfig() Config {
	return Config{
		EquityStopPct:         -5.0,
		MaxConcurrent:         9,
		Target:                4,
		MinForSession:         2,
		ExitChangeThreshold:   2.0,
		ForceCloseSignals:     3,
		EarlyEntryAge:         15 * time.Minute,
		LateEntryAge:          30 * time.Minute,
		AdverseMovePct:        1.0,
		StandardLossThreshold: -1.5,
		MaxReinforcements:     3,
	}
}

// Controller evaluates portfolio-level risk each cycle. It holds no
// position state of its own.
type Controller struct {
	cfg   Config
	clock *session.Clock
	log   zerolog.Logger
}

// NewController builds a controller; cfg zero values take defaults.
func NewController(cfg Config, clock *session.Clock, log zerolog.Logger) *Controller {
	def := DefaultConfig()
	if cfg.EquityStopPct >= 0 {
		cfg.EquityStopPct = def.EquityStopPct
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = def.MaxConcurrent
	}
	if cfg.Target <= 0 {
		cfg.Target = def.Target
	}
	if cfg.MinForSession <= 0 {
		cfg.MinForSession = def.MinForSession
	}
	if cfg.ExitChangeThreshold <= 0 {
		cfg.ExitChangeThreshold = def.ExitChangeThreshold
	}
	if cfg.ForceCloseSignals <= 0 {
		cfg.ForceCloseSignals = def.ForceCloseSignals
	}
	if cfg.EarlyEntryAge <= 0 {
		cfg.EarlyEntryAge = def.EarlyEntryAge
	}
	if cfg.LateEntryAge <= 0 {
		cfg.LateEntryAge = def.LateEntryAge
	}
	if cfg.AdverseMovePct <= 0 {
		cfg.AdverseMovePct = def.AdverseMovePct
	}
	if cfg.StandardLossThreshold >= 0 {
		cfg.StandardLossThreshold = def.StandardLossThreshold
	}
	if cfg.MaxReinforcements <= 0 {
		cfg.MaxReinforcements = def.MaxReinforcements
	}
	return &Controller{
		cfg:   cfg,
		clock: clock,
		log:   log.With().Str("component", "risk").Logger(),
	}
}

// CheckEquityStop reports whether portfolio drawdown breached the equity
// stop. On breach the contract is close every open position; that action
// supersedes any per-position analysis for the cycle.
func (c *Controller) CheckEquityStop(balance, equity float64) (bool, string) {
	if balance <= 0 {
		return false, "invalid account balance"
	}
	drawdown := (equity - balance) / balance * 100
	if drawdown <= c.cfg.EquityStopPct {
		return true, fmt.Sprintf("portfolio stop breached: %.2f%% (limit %.2f%%)", drawdown, c.cfg.EquityStopPct)
	}
	return false, fmt.Sprintf("portfolio healthy: %.2f%% drawdown", drawdown)
}

// GateNewTrades decides whether new trades may be opened. The ordering is
// load-bearing and preserved from observed behaviour: the diversification
// floor (step 4) is checked before the equity stop (step 5), so a
// below-minimum book is allowed to grow even while the soft equity warning
// holds. Session, session-end and the hard position ceiling still outrank
// the floor. See DESIGN.md; this may well be an inherited bug, but the
// precedence is contractual.
func (c *Controller) GateNewTrades(now time.Time, events []session.Event, positionCount int, balance, equity float64) (bool, string) {
	// 1. Tradable session.
	if ok, reason := c.clock.ShouldTrade(now); !ok {
		return false, "not trading: " + reason
	}
	// 2. Session ending.
	if end, reason := c.clock.ShouldEndSession(now, events); end {
		return false, "session ending: " + reason
	}
	// 3. Hard ceiling.
	if positionCount >= c.cfg.MaxConcurrent {
		return false, fmt.Sprintf("maximum diversification reached (%d/%d)", positionCount, c.cfg.MaxConcurrent)
	}
	// 4. Diversification floor.
	if positionCount < c.cfg.MinForSession {
		return true, fmt.Sprintf("building diversification: %d/%d minimum positions", positionCount, c.cfg.MinForSession)
	}
	// 5. Equity stop.
	if breached, reason := c.CheckEquityStop(balance, equity); breached {
		return false, "portfolio stop: " + reason
	}
	// 6. Below target.
	if positionCount < c.cfg.Target {
		return true, fmt.Sprintf("quality opportunity available: %d/%d target positions", positionCount, c.cfg.Target)
	}
	// 7. Ceiling was checked in step 3.
	return true, fmt.Sprintf("additional diversification possible: %d/%d max positions", positionCount, c.cfg.MaxConcurrent)
}
