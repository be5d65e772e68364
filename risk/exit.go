package risk

import (
	"fmt"
	"math"

	"ufotrader/ledger"
	"ufotrader/market"
	"ufotrader/strength"
)

// ExitSignal flags a currency whose strength moved sharply between two
// snapshots.
type ExitSignal struct {
	Currency  string
	Timeframe market.Timeframe
	Change    float64
	Direction string // strengthening or weakening
	Reason    string
}

// ExitSignals compares the latest strength per currency against the
// previous snapshot's trailing-5 average, per timeframe present in both.
// Changes beyond the threshold become signals. A nil previous snapshot
// yields none.
func (c *Controller) ExitSignals(current, previous *strength.Snapshot) []ExitSignal {
	if current == nil || previous == nil {
		return nil
	}

	var out []ExitSignal
	for tf := range current.Strength {
		prevByCcy, ok := previous.Strength[tf]
		if !ok {
			continue
		}
		for ccy := range current.Strength[tf] {
			if _, ok := prevByCcy[ccy]; !ok {
				continue
			}
			latest := current.Latest(tf, ccy)
			avg := previous.TrailingMean(tf, ccy, 5)
			change := latest - avg
			if math.Abs(change) <= c.cfg.ExitChangeThreshold {
				continue
			}
			dir := "weakening"
			if change > 0 {
				dir = "strengthening"
			}
			out = append(out, ExitSignal{
				Currency:  ccy,
				Timeframe: tf,
				Change:    change,
				Direction: dir,
				Reason:    fmt.Sprintf("%s %s on %s", ccy, dir, tf),
			})
		}
	}
	return out
}

// ForcedCloseTickets returns the positions that must close when the signal
// count reaches the forced-closure trigger: every open position whose pair
// references an affected currency on either side. Below the trigger it
// returns nil.
func (c *Controller) ForcedCloseTickets(signals []ExitSignal, positions []*ledger.Position) []string {
	if len(signals) < c.cfg.ForceCloseSignals {
		return nil
	}
	affected := make(map[string]bool, len(signals))
	for _, s := range signals {
		affected[s.Currency] = true
	}
	var out []string
	for _, p := range positions {
		if affected[p.Pair.Base] || affected[p.Pair.Quote] {
			out = append(out, p.Ticket)
		}
	}
	return out
}

// CoherenceIssue flags a currency whose timeframes disagree on direction.
type CoherenceIssue struct {
	Currency       string
	Recommendation string
}

// CoherenceIssues lists currencies with weak cross-timeframe direction
// agreement; positions referencing them deserve a close review.
func (c *Controller) CoherenceIssues(snap *strength.Snapshot) []CoherenceIssue {
	if snap == nil {
		return nil
	}
	var out []CoherenceIssue
	for ccy, coh := range snap.Coherence {
		if coh.Direction > 0 && coh.Direction < 1.0 {
			out = append(out, CoherenceIssue{
				Currency:       ccy,
				Recommendation: "timeframe divergence - consider closing positions",
			})
		}
	}
	return out
}
