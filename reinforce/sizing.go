package reinforce

import (
	"fmt"
	"time"

	"ufotrader/ledger"
	"ufotrader/market"
)

// Plan is a sized compensation trade produced for one event against one
// position. AdditionalLots is bounded to [MinimumLot, original volume].
type Plan struct {
	Event          Event
	AdditionalLots float64
	Reason         string
}

// eventMultipliers scales the base size by event type and priority.
// Unlisted combinations fall back to 1.0.
var eventMultipliers = map[EventType]map[Priority]float64{
	EventPriceMove: {
		PriorityHigh:   1.2,
		PriorityMedium: 1.0,
		PriorityLow:    0.8,
	},
	EventRapidLoss: {
		PriorityCritical: 1.5,
		PriorityHigh:     1.3,
		PriorityMedium:   1.1,
	},
	EventStrengthChange: {
		PriorityHigh:   1.4,
		PriorityMedium: 1.1,
		PriorityLow:    0.9,
	},
}

// SizeReinforcement turns an event into a sized plan for a position, or
// explains why it is blocked. The per-position cap and the cooldown window
// are hard gates consulted against the ledger's reinforcement record before
// any sizing math runs.
//
// The size starts at BaseFraction of the original volume and is scaled by
// the event multiplier, the session multiplier, and the spread-derived
// volatility multiplier, then clamped to [MinimumLot, original volume].
func (s *Scheduler) SizeReinforcement(p *ledger.Position, ev Event, spread float64, now time.Time) (*Plan, string) {
	rec, _ := s.book.Record(p.Ticket)
	if rec.Count >= s.cfg.MaxPerPosition {
		return nil, fmt.Sprintf("maximum reinforcements reached (%d/%d)", rec.Count, s.cfg.MaxPerPosition)
	}
	if !rec.LastTime.IsZero() {
		if since := now.Sub(rec.LastTime); since < s.cfg.Cooldown {
			return nil, fmt.Sprintf("cooling period active (%.1f min remaining)",
				(s.cfg.Cooldown - since).Minutes())
		}
	}

	eventMult := 1.0
	if byPrio, ok := eventMultipliers[ev.Type]; ok {
		if m, ok := byPrio[ev.Priority]; ok {
			eventMult = m
		}
	}
	sessionMult := s.clock.Multiplier(now)
	volMult := s.volatilityAdjustment(spread)

	lots := p.Volume * s.cfg.BaseFraction * eventMult * sessionMult * volMult
	if lots > p.Volume {
		lots = p.Volume
	}
	if lots < market.MinimumLot {
		lots = market.MinimumLot
	}

	s.log.Debug().
		Str("ticket", p.Ticket).
		Str("event", string(ev.Type)).
		Str("priority", string(ev.Priority)).
		Float64("event_mult", eventMult).
		Float64("session_mult", sessionMult).
		Float64("volatility_mult", volMult).
		Float64("lots", lots).
		Msg("reinforcement sized")

	return &Plan{
		Event:          ev,
		AdditionalLots: lots,
		Reason:         fmt.Sprintf("dynamic reinforcement: %s (%s priority)", ev.Type, ev.Priority),
	}, "reinforcement calculated"
}

// RecordExecution stamps an executed plan so the cap and cooldown gates see
// it on the next pass.
func (s *Scheduler) RecordExecution(p *ledger.Position, plan *Plan, now time.Time) {
	s.book.RecordReinforcement(p.Ticket, plan.AdditionalLots, now)
	s.lastCheck = now
	s.log.Info().
		Str("ticket", p.Ticket).
		Float64("lots", plan.AdditionalLots).
		Str("event", string(plan.Event.Type)).
		Msg("reinforcement recorded")
}
