package risk

import (
	"fmt"
	"time"

	"ufotrader/ledger"
	"ufotrader/market"
	"ufotrader/strength"
)

// PlanKind names the reinforcement sizing rule that produced a plan.
type PlanKind string

const (
	PlanCompensateEarly PlanKind = "compensate_early_entry"
	PlanCompensateLate  PlanKind = "compensate_late_entry"
	PlanStandard        PlanKind = "standard_reinforcement"
)

// Plan is a sized compensation trade for a losing position whose thesis
// still holds. AdditionalLots never exceeds the original volume.
type Plan struct {
	Kind           PlanKind
	AdditionalLots float64
	Reason         string
	TimingError    string
	AdverseMovePct float64
}

// Advice is the per-position verdict of a reinforcement review.
type Advice string

const (
	AdviceHold      Advice = "hold"
	AdviceClose     Advice = "close"
	AdviceReinforce Advice = "reinforce"
)

// ShouldReinforce decides the fate of one open position against the latest
// strength snapshot:
//
//   - thesis lost (stronger currency no longer matches the direction):
//     close, never reinforce;
//   - thesis holds and the position is losing: classify the entry-timing
//     error and produce a sized plan;
//   - otherwise hold.
//
// The returned reason is always set; the plan is nil unless the advice is
// AdviceReinforce.
func (c *Controller) ShouldReinforce(p *ledger.Position, snap *strength.Snapshot, now time.Time) (Advice, string, *Plan) {
	if snap == nil || !snap.Has(p.Pair.Base) || !snap.Has(p.Pair.Quote) {
		return AdviceHold, "missing analysis data", nil
	}

	base := snap.LatestAny(p.Pair.Base)
	quote := snap.LatestAny(p.Pair.Quote)

	thesisHolds := base > quote
	if p.Direction == market.Sell {
		thesisHolds = quote > base
	}
	if !thesisHolds {
		return AdviceClose, fmt.Sprintf("analysis changed: %s vs %s - close position", p.Pair.Base, p.Pair.Quote), nil
	}
	if p.PnL >= 0 {
		return AdviceHold, "hold position: analysis valid, no reinforcement needed", nil
	}
	if p.Reinforcements >= c.cfg.MaxReinforcements {
		return AdviceHold, fmt.Sprintf("reinforcement cap reached (%d/%d)", p.Reinforcements, c.cfg.MaxReinforcements), nil
	}

	adverse := p.AdverseMovePct()
	age := p.Age(now)

	var plan *Plan
	switch {
	case adverse > c.cfg.AdverseMovePct && age < c.cfg.EarlyEntryAge:
		plan = &Plan{
			Kind:           PlanCompensateEarly,
			AdditionalLots: clampLots(p.Volume*0.5, p.Volume),
			Reason:         "compensating early entry - analysis still valid",
			TimingError:    "too_early",
			AdverseMovePct: adverse,
		}
	case adverse > c.cfg.AdverseMovePct && age < c.cfg.LateEntryAge:
		plan = &Plan{
			Kind:           PlanCompensateLate,
			AdditionalLots: clampLots(p.Volume*0.3, p.Volume*0.5),
			Reason:         "compensating late entry - averaging position",
			TimingError:    "too_late",
			AdverseMovePct: adverse,
		}
	case p.PnL < c.cfg.StandardLossThreshold:
		plan = &Plan{
			Kind:           PlanStandard,
			AdditionalLots: clampLots(p.Volume*0.4, p.Volume),
			Reason:         "analysis confirms direction despite drawdown",
			TimingError:    "minor_timing_issue",
			AdverseMovePct: adverse,
		}
	default:
		return AdviceHold, "hold position: analysis valid, no reinforcement needed", nil
	}

	return AdviceReinforce, fmt.Sprintf("reinforce %s: %s", p.Pair.Symbol(), plan.Reason), plan
}

// clampLots bounds a plan size to [MinimumLot, limit].
func clampLots(lots, limit float64) float64 {
	if lots > limit {
		lots = limit
	}
	if lots < market.MinimumLot {
		lots = market.MinimumLot
	}
	return lots
}
