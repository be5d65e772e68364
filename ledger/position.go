// Package ledger owns the open and closed position sets and the portfolio
// equity derived from them.
package ledger

import (
	"time"

	"ufotrader/market"
)

// CloseReason records why a position left the open set.
type CloseReason string

const (
	CloseTakeProfit   CloseReason = "profit target"
	CloseStopLoss     CloseReason = "stop loss"
	CloseTimeExit     CloseReason = "time-based exit"
	CloseTrailingStop CloseReason = "trailing stop"
	CloseSessionEnd   CloseReason = "session end"
	CloseEquityStop   CloseReason = "portfolio equity stop"
	CloseExitSignal   CloseReason = "strength exit signal"
	CloseThesisLost   CloseReason = "analysis changed"
	CloseManual       CloseReason = "manual"
)

// Position is a single open or closed trade. It is owned exclusively by the
// Ledger: created on execution, mutated on every mark, moved to the closed
// set on any close condition.
type Position struct {
	Ticket     string
	Pair       market.Pair
	Direction  market.Direction
	Volume     float64
	EntryPrice float64

	// Mark-to-market state.
	MarkPrice float64
	MarkTime  time.Time
	PnL       float64
	// PeakPnL only ever increases once set; the trailing stop keys off it.
	PeakPnL float64

	OpenTime time.Time

	// Reinforcement lineage: the original position's ticket and how many
	// compensation trades have been attached to this one.
	ParentTicket   string
	Reinforcements int

	// Set only when closed.
	CloseReason CloseReason
	ClosePrice  float64
	CloseTime   time.Time
}

// Open reports whether the position is still in the open set.
func (p *Position) Open() bool { return p.CloseReason == "" }

// Age is the time since the position was opened.
func (p *Position) Age(now time.Time) time.Duration { return now.Sub(p.OpenTime) }

// AdverseMovePct is the percentage the price has moved against the entry,
// positive when losing, 0 when flat or winning.
func (p *Position) AdverseMovePct() float64 {
	if p.EntryPrice == 0 {
		return 0
	}
	move := (p.MarkPrice - p.EntryPrice) / p.EntryPrice * 100
	if p.Direction == market.Sell {
		move = -move
	}
	if move < 0 {
		return -move
	}
	return 0
}

// mark recomputes P&L from a price. P&L is the signed price difference
// (negated for SELL) times volume times the pair's pip multiplier. Marking
// twice with the same price and time changes nothing.
func (p *Position) mark(price float64, at time.Time) {
	diff := price - p.EntryPrice
	if p.Direction == market.Sell {
		diff = -diff
	}
	p.MarkPrice = price
	p.MarkTime = at
	p.PnL = diff * p.Volume * p.Pair.PipMultiplier()
	if p.PnL > p.PeakPnL {
		p.PeakPnL = p.PnL
	}
}

// Rules are the close-rule thresholds, checked in fixed precedence:
// take-profit, stop-loss, time exit, trailing stop.
type Rules struct {
	TakeProfit     float64       `yaml:"take_profit"`     // close when PnL exceeds this, default +75
	StopLoss       float64       `yaml:"stop_loss"`       // close when PnL falls below this, default -50
	MaxAge         time.Duration `yaml:"max_age"`         // close past this age, default 240 min
	TrailingArm    float64       `yaml:"trailing_arm"`    // peak PnL that arms the trailing stop, default 30
	TrailingRetain float64       `yaml:"trailing_retain"` // fraction of peak that must be retained, default 0.7
}

// DefaultRules returns the documented close thresholds.
func DefaultRules() Rules {
	return Rules{
		TakeProfit:     75,
		StopLoss:       -50,
		MaxAge:         240 * time.Minute,
		TrailingArm:    30,
		TrailingRetain: 0.7,
	}
}

// Evaluate returns the close reason for a position, or "" to keep it open.
// Precedence is load-bearing: a position that qualifies for both take-profit
// and time exit closes for take-profit.
func (r Rules) Evaluate(p *Position, now time.Time) CloseReason {
	switch {
	case p.PnL > r.TakeProfit:
		return CloseTakeProfit
	case p.PnL < r.StopLoss:
		return CloseStopLoss
	case now.Sub(p.OpenTime) > r.MaxAge:
		return CloseTimeExit
	case p.PeakPnL > r.TrailingArm && p.PnL < p.PeakPnL*r.TrailingRetain:
		return CloseTrailingStop
	}
	return ""
}
