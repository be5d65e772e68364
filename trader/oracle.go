package trader

import (
	"context"
	"fmt"
	"math"
	"time"

	"ufotrader/broker"
	"ufotrader/ledger"
	"ufotrader/market"
)

// maxProposalRiskPct caps the estimated combined risk of one proposal
// batch, just under the portfolio equity stop so a single batch cannot trip
// it on its own. Risk per trade is estimated at 1% per 0.1 lots.
const maxProposalRiskPct = 4.5

// consultOracle asks the decision generator for a proposal batch and
// executes the validated actions. Proposals are untrusted: every action is
// checked for symbol validity, direction consistency and volume bounds, and
// invalid ones are skipped, logged, never fatal. New trades are only
// executed when the risk gate allows them; closes always apply.
func (t *Trader) consultOracle(ctx context.Context, allowNew bool, gateReason string, now time.Time) {
	pf := t.book.Portfolio()
	open := t.book.OpenPositions()
	tickets := make([]string, len(open))
	for i, p := range open {
		tickets[i] = p.Ticket
	}

	var readings map[string]float64
	if t.current != nil {
		readings = make(map[string]float64)
		for _, ccy := range market.Currencies {
			if t.current.Has(ccy) {
				readings[ccy] = t.current.LatestAny(ccy)
			}
		}
	}

	actions, err := t.col.Oracle.ProposeActions(ctx, broker.OracleInput{
		Time:         now,
		Session:      t.clock.State(now),
		Equity:       pf.Equity,
		Balance:      pf.InitialBalance,
		OpenTickets:  tickets,
		TradeAllowed: allowNew,
		AllowReason:  gateReason,
		Strength:     readings,
	})
	if err != nil {
		t.log.Warn().Err(err).Msg("oracle unavailable")
		return
	}
	if len(actions) == 0 {
		return
	}

	scale := riskScale(actions)
	if scale < 1.0 {
		t.log.Warn().Float64("scale", scale).Msg("scaling proposal volumes to portfolio risk cap")
	}

	for _, a := range actions {
		switch a.Kind {
		case broker.ActionNewTrade:
			if !allowNew {
				t.log.Info().Str("symbol", a.Symbol).Str("reason", gateReason).
					Msg("new trade blocked by gate")
				continue
			}
			t.executeNewTrade(ctx, a, scale, now)
		case broker.ActionCloseTrade:
			if err := t.validateClose(a); err != nil {
				t.log.Warn().Err(err).Str("ticket", a.Ticket).Msg("rejected close action")
				continue
			}
			t.closeTicket(ctx, a.Ticket, ledger.CloseManual, now)
		default:
			t.log.Warn().Str("action", string(a.Kind)).Msg("unknown oracle action")
		}
	}
}

func (t *Trader) executeNewTrade(ctx context.Context, a broker.Action, scale float64, now time.Time) {
	pair, dir, volume, err := t.validateNewTrade(a)
	if err != nil {
		t.log.Warn().Err(err).Str("symbol", a.Symbol).Msg("rejected trade action")
		return
	}

	volume = math.Max(market.MinimumLot, math.Round(volume*scale*100)/100)

	price, err := t.col.Data.GetPrice(ctx, pair)
	if err != nil {
		t.log.Warn().Err(err).Str("symbol", pair.Symbol()).Msg("no price for proposed trade")
		return
	}
	venueTicket, err := t.col.Gateway.Open(ctx, pair, dir, volume)
	if err != nil {
		t.log.Error().Err(err).Str("symbol", pair.Symbol()).Msg("trade execution failed")
		return
	}

	entry := price.Ask
	if dir == market.Sell {
		entry = price.Bid
	}
	p := t.book.Open(pair, dir, volume, entry, now, "")
	t.venue[p.Ticket] = venueTicket
}

// validateNewTrade vets one proposed trade: a parseable known currency
// pair, a recognized direction, and a volume at or above the minimum lot
// (zero volume takes a 0.1 default, matching the proposal contract).
func (t *Trader) validateNewTrade(a broker.Action) (market.Pair, market.Direction, float64, error) {
	pair, err := market.ParsePair(a.Symbol)
	if err != nil {
		return market.Pair{}, "", 0, err
	}
	dir, ok := market.ParseDirection(a.Direction)
	if !ok {
		return market.Pair{}, "", 0, fmt.Errorf("invalid direction %q", a.Direction)
	}
	volume := a.Volume
	if volume == 0 {
		volume = 0.1
	}
	if volume < market.MinimumLot {
		return market.Pair{}, "", 0, fmt.Errorf("volume %.3f below minimum lot", a.Volume)
	}
	return pair, dir, volume, nil
}

func (t *Trader) validateClose(a broker.Action) error {
	if a.Ticket == "" {
		return fmt.Errorf("close action without ticket")
	}
	if p := t.book.Find(a.Ticket); p == nil || !p.Open() {
		return fmt.Errorf("unknown or closed ticket %s", a.Ticket)
	}
	return nil
}

// riskScale estimates the combined risk of a batch's new trades at 1% per
// 0.1 lots and returns the factor that keeps it under the proposal cap.
func riskScale(actions []broker.Action) float64 {
	var total float64
	for _, a := range actions {
		if a.Kind != broker.ActionNewTrade {
			continue
		}
		volume := a.Volume
		if volume == 0 {
			volume = 0.1
		}
		total += volume / 0.1
	}
	if total <= maxProposalRiskPct {
		return 1.0
	}
	return maxProposalRiskPct / total
}
