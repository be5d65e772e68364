package reinforce

import (
	"fmt"
	"math"
	"time"

	"ufotrader/ledger"
	"ufotrader/market"
	"ufotrader/strength"
)

// EventType names a market trigger the scheduler reacts to.
type EventType string

const (
	EventPriceMove      EventType = "price_movement"
	EventRapidLoss      EventType = "rapid_loss"
	EventStrengthChange EventType = "strength_change"
)

// Priority ranks an event for the sizing table.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Event is one detected market trigger. Position-scoped events carry the
// ticket; strength-change events carry the currency instead.
type Event struct {
	Type      EventType
	Priority  Priority
	Time      time.Time
	Ticket    string
	Currency  string
	Magnitude float64
	Reason    string
}

// DetectEvents scans open positions and the latest strength snapshot for
// triggers that warrant an off-cycle reinforcement look:
//
//   - price moved at least PriceMovePips from entry, in either direction;
//   - a losing position's P&L reached RapidLossPct of the reference balance;
//   - a currency's latest strength deviates from the previous snapshot's
//     trailing 3-sample average by more than StrengthChangeThreshold.
//
// Missing prices or snapshots skip their checks rather than fail.
func (s *Scheduler) DetectEvents(positions []*ledger.Position, lookup func(market.Pair) (market.Price, bool),
	current, previous *strength.Snapshot, now time.Time) []Event {

	var events []Event
	for _, p := range positions {
		if lookup != nil {
			if price, ok := lookup(p.Pair); ok && p.EntryPrice > 0 {
				pips := math.Abs(price.Mid()-p.EntryPrice) / p.Pair.PipSize()
				if pips >= s.cfg.PriceMovePips {
					prio := PriorityMedium
					if pips > s.cfg.PriceMovePips*2 {
						prio = PriorityHigh
					}
					events = append(events, Event{
						Type:      EventPriceMove,
						Priority:  prio,
						Time:      now,
						Ticket:    p.Ticket,
						Magnitude: pips,
						Reason:    fmt.Sprintf("%s moved %.1f pips from entry", p.Pair.Symbol(), pips),
					})
				}
			}
		}

		if p.PnL < 0 {
			lossPct := math.Abs(p.PnL) / s.cfg.ReferenceBalance * 100
			if lossPct >= s.cfg.RapidLossPct {
				events = append(events, Event{
					Type:      EventRapidLoss,
					Priority:  PriorityCritical,
					Time:      now,
					Ticket:    p.Ticket,
					Magnitude: lossPct,
					Reason:    fmt.Sprintf("%s losing %.2f%% of reference balance", p.Pair.Symbol(), lossPct),
				})
			}
		}
	}

	events = append(events, s.strengthChanges(current, previous, now)...)
	return events
}

// strengthChanges compares the primary timeframe of two snapshots. The
// latest value against the previous snapshot's trailing 3-sample average
// flags currencies whose signal shifted between main cycles.
func (s *Scheduler) strengthChanges(current, previous *strength.Snapshot, now time.Time) []Event {
	if current == nil || previous == nil {
		return nil
	}
	curByCcy, ok := current.Strength[market.Primary]
	if !ok {
		return nil
	}
	prevByCcy, ok := previous.Strength[market.Primary]
	if !ok {
		return nil
	}

	var events []Event
	for ccy := range curByCcy {
		if _, ok := prevByCcy[ccy]; !ok {
			continue
		}
		latest := current.Latest(market.Primary, ccy)
		avg := previous.TrailingMean(market.Primary, ccy, 3)
		change := math.Abs(latest - avg)
		if change <= s.cfg.StrengthChangeThreshold {
			continue
		}
		prio := PriorityMedium
		if change > 2.5 {
			prio = PriorityHigh
		}
		dir := "weakening"
		if latest > avg {
			dir = "strengthening"
		}
		events = append(events, Event{
			Type:      EventStrengthChange,
			Priority:  prio,
			Time:      now,
			Currency:  ccy,
			Magnitude: change,
			Reason:    fmt.Sprintf("%s %s by %.2f", ccy, dir, change),
		})
	}
	return events
}
