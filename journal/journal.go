// Package journal persists the trading history a run produces: closed
// trades and periodic equity snapshots. Sinks are external collaborators;
// a failed write is logged upstream and never interrupts the loop.
package journal

import (
	"time"

	"ufotrader/ledger"
)

type TradeRecord struct {
	Ticket       string
	Symbol       string
	Direction    string
	Volume       float64
	EntryPrice   float64
	ExitPrice    float64
	OpenTime     time.Time
	CloseTime    time.Time
	RealizedPL   float64
	Reason       string
	ParentTicket string
}

type EquitySnapshot struct {
	Time          time.Time
	Balance       float64
	Realized      float64
	Unrealized    float64
	Equity        float64
	DrawdownPct   float64
	OpenPositions int
}

type Journal interface {
	RecordTrade(TradeRecord) error
	RecordEquity(EquitySnapshot) error
	Close() error
}

// FromPosition flattens a closed position into its journal row.
func FromPosition(p *ledger.Position) TradeRecord {
	return TradeRecord{
		Ticket:       p.Ticket,
		Symbol:       p.Pair.Symbol(),
		Direction:    string(p.Direction),
		Volume:       p.Volume,
		EntryPrice:   p.EntryPrice,
		ExitPrice:    p.ClosePrice,
		OpenTime:     p.OpenTime,
		CloseTime:    p.CloseTime,
		RealizedPL:   p.PnL,
		Reason:       string(p.CloseReason),
		ParentTicket: p.ParentTicket,
	}
}

// FromPortfolio flattens a portfolio snapshot into its journal row.
func FromPortfolio(pf ledger.Portfolio, at time.Time) EquitySnapshot {
	return EquitySnapshot{
		Time:          at,
		Balance:       pf.InitialBalance,
		Realized:      pf.Realized,
		Unrealized:    pf.Unrealized,
		Equity:        pf.Equity,
		DrawdownPct:   pf.DrawdownPct,
		OpenPositions: pf.OpenPositions,
	}
}

// Nop discards everything; the simulator default when no sink is wanted.
type Nop struct{}

func (Nop) RecordTrade(TradeRecord) error { return nil }

func (Nop) RecordEquity(EquitySnapshot) error { return nil }

func (Nop) Close() error { return nil }
