package trader

import (
	"context"
	"time"

	"ufotrader/journal"
	"ufotrader/ledger"
	"ufotrader/market"
	"ufotrader/risk"
	"ufotrader/session"
)

// MainCycle runs one full decision pass: refresh the strength snapshot,
// mark the book, apply portfolio-level closes in precedence order (equity
// stop, session end, exit signals), review each position for closure or
// reinforcement, then gate and execute any proposed new trades.
//
// Collaborator failures degrade: missing data skips the affected step and
// the cycle continues with what it has.
func (t *Trader) MainCycle(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	events := t.fetchEvents(ctx, now)

	snap := t.engine.Analyze(t.fetchBars(ctx), now)
	t.previous, t.current = t.current, snap

	t.markBook(ctx, now)

	pf := t.book.Portfolio()
	if breached, reason := t.risk.CheckEquityStop(pf.InitialBalance, pf.Equity); breached {
		t.log.Warn().Str("reason", reason).Msg("equity stop breached, closing all positions")
		t.closeAll(ctx, ledger.CloseEquityStop, now)
		t.recordEquity(now)
		return nil
	}

	if end, reason := t.clock.ShouldEndSession(now, events); end {
		t.log.Info().Str("reason", reason).Msg("session ending, closing all positions")
		t.closeAll(ctx, ledger.CloseSessionEnd, now)
		t.recordEquity(now)
		return nil
	}

	signals := t.risk.ExitSignals(t.current, t.previous)
	if forced := t.risk.ForcedCloseTickets(signals, t.book.OpenPositions()); len(forced) > 0 {
		t.log.Warn().Int("signals", len(signals)).Int("positions", len(forced)).
			Msg("strength exit signals force closures")
		for _, ticket := range forced {
			t.closeTicket(ctx, ticket, ledger.CloseExitSignal, now)
		}
	}

	t.reviewPositions(ctx, now)

	pf = t.book.Portfolio()
	allowed, reason := t.risk.GateNewTrades(now, events, pf.OpenPositions, pf.InitialBalance, pf.Equity)
	t.log.Debug().Bool("allowed", allowed).Str("reason", reason).Msg("trade gate evaluated")
	if t.col.Oracle != nil {
		t.consultOracle(ctx, allowed, reason, now)
	}

	t.recordEquity(now)
	return nil
}

// MonitoringCycle runs the fast pass between main cycles: re-mark every
// open position, apply the per-position close rules, and when due, scan for
// reinforcement triggers and execute sized compensation trades.
func (t *Trader) MonitoringCycle(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.markBook(ctx, now)

	for _, p := range t.book.ApplyCloseRules(now) {
		t.closeVenue(ctx, p)
		t.recordTrade(p)
	}

	if t.sched.ShouldCheck(now) {
		t.runReinforcementCheck(ctx, now)
		t.sched.MarkChecked(now)
	}

	t.recordEquity(now)
	return nil
}

// reviewPositions applies the per-position verdicts from the latest
// snapshot: close when the thesis is gone, reinforce when timing-error
// compensation is warranted.
func (t *Trader) reviewPositions(ctx context.Context, now time.Time) {
	for _, p := range t.book.OpenPositions() {
		advice, reason, plan := t.risk.ShouldReinforce(p, t.current, now)
		switch advice {
		case risk.AdviceClose:
			t.log.Info().Str("ticket", p.Ticket).Str("reason", reason).Msg("closing position")
			t.closeTicket(ctx, p.Ticket, ledger.CloseThesisLost, now)
		case risk.AdviceReinforce:
			t.log.Info().Str("ticket", p.Ticket).Str("reason", reason).
				Float64("lots", plan.AdditionalLots).Msg("reinforcing position")
			t.executeReinforcement(ctx, p, plan.AdditionalLots, now)
		}
	}
}

// runReinforcementCheck reacts to market events detected since the last
// pass. Each position-scoped event is sized independently; the ledger's
// reinforcement record enforces the cap and cooldown across events.
func (t *Trader) runReinforcementCheck(ctx context.Context, now time.Time) {
	open := t.book.OpenPositions()
	if len(open) == 0 {
		return
	}

	lookup := func(pair market.Pair) (market.Price, bool) {
		price, err := t.col.Data.GetPrice(ctx, pair)
		if err != nil {
			return market.Price{}, false
		}
		return price, true
	}

	for _, ev := range t.sched.DetectEvents(open, lookup, t.current, t.previous, now) {
		if ev.Ticket == "" {
			continue
		}
		p := t.book.Find(ev.Ticket)
		if p == nil || !p.Open() {
			continue
		}

		// A detected event is not enough on its own; the directional
		// thesis must still hold.
		if advice, _, _ := t.risk.ShouldReinforce(p, t.current, now); advice != risk.AdviceReinforce {
			continue
		}

		var spread float64
		if price, ok := lookup(p.Pair); ok {
			spread = price.Spread()
		}
		plan, status := t.sched.SizeReinforcement(p, ev, spread, now)
		if plan == nil {
			t.log.Debug().Str("ticket", p.Ticket).Str("status", status).Msg("reinforcement blocked")
			continue
		}
		if t.executeReinforcement(ctx, p, plan.AdditionalLots, now) {
			t.sched.RecordExecution(p, plan, now)
		}
	}
}

// executeReinforcement opens a compensation trade in the same direction as
// the parent. The gateway fill price is authoritative for the new position.
func (t *Trader) executeReinforcement(ctx context.Context, parent *ledger.Position, lots float64, now time.Time) bool {
	price, err := t.col.Data.GetPrice(ctx, parent.Pair)
	if err != nil {
		t.log.Warn().Err(err).Str("ticket", parent.Ticket).Msg("no price for reinforcement")
		return false
	}
	venueTicket, err := t.col.Gateway.Open(ctx, parent.Pair, parent.Direction, lots)
	if err != nil {
		t.log.Error().Err(err).Str("ticket", parent.Ticket).Msg("reinforcement execution failed")
		return false
	}

	entry := price.Ask
	if parent.Direction == market.Sell {
		entry = price.Bid
	}
	p := t.book.Open(parent.Pair, parent.Direction, lots, entry, now, parent.Ticket)
	t.venue[p.Ticket] = venueTicket
	return true
}

// markBook re-marks every open position from live quotes, falling back to
// the last known price where a quote is missing.
func (t *Trader) markBook(ctx context.Context, now time.Time) {
	t.book.MarkAll(func(pair market.Pair) (float64, bool) {
		price, err := t.col.Data.GetPrice(ctx, pair)
		if err != nil {
			return 0, false
		}
		return price.Mid(), true
	}, now)
}

// fetchBars collects bar history for every configured pair on every
// analysis timeframe. Pairs without data are skipped; the strength engine
// degrades to neutral values for anything missing.
func (t *Trader) fetchBars(ctx context.Context) map[market.Timeframe]map[market.Pair][]market.Bar {
	out := make(map[market.Timeframe]map[market.Pair][]market.Bar, len(market.Timeframes))
	for _, tf := range market.Timeframes {
		byPair := make(map[market.Pair][]market.Bar, len(t.pairs))
		for _, pair := range t.pairs {
			bars, err := t.col.Data.GetBars(ctx, pair, tf, t.cfg.Strength.BarCount)
			if err != nil {
				t.log.Debug().Err(err).Str("symbol", pair.Symbol()).Str("timeframe", string(tf)).
					Msg("no bars")
				continue
			}
			byPair[pair] = bars
		}
		if len(byPair) > 0 {
			out[tf] = byPair
		}
	}
	return out
}

func (t *Trader) fetchEvents(ctx context.Context, now time.Time) []session.Event {
	if t.col.Calendar == nil {
		return nil
	}
	events, err := t.col.Calendar.GetEvents(ctx, now)
	if err != nil {
		t.log.Warn().Err(err).Msg("calendar unavailable")
		return nil
	}
	return events
}

// closeTicket closes one position on the book and flattens it at the
// venue. The book close happens regardless of gateway outcome so equity
// never counts a position the strategy has abandoned.
func (t *Trader) closeTicket(ctx context.Context, ticket string, reason ledger.CloseReason, now time.Time) {
	p := t.book.Close(ticket, reason, now)
	if p == nil {
		return
	}
	t.closeVenue(ctx, p)
	t.recordTrade(p)
}

func (t *Trader) closeAll(ctx context.Context, reason ledger.CloseReason, now time.Time) {
	for _, p := range t.book.CloseAll(reason, now) {
		t.closeVenue(ctx, p)
		t.recordTrade(p)
	}
}

func (t *Trader) closeVenue(ctx context.Context, p *ledger.Position) {
	venueTicket, ok := t.venue[p.Ticket]
	if !ok {
		return
	}
	delete(t.venue, p.Ticket)
	if err := t.col.Gateway.Close(ctx, venueTicket); err != nil {
		t.log.Error().Err(err).Str("ticket", p.Ticket).Str("venue_ticket", venueTicket).
			Msg("venue close failed")
	}
}

func (t *Trader) recordTrade(p *ledger.Position) {
	if err := t.col.Journal.RecordTrade(journal.FromPosition(p)); err != nil {
		t.log.Error().Err(err).Str("ticket", p.Ticket).Msg("journal trade write failed")
	}
}

func (t *Trader) recordEquity(now time.Time) {
	if err := t.col.Journal.RecordEquity(journal.FromPortfolio(t.book.Portfolio(), now)); err != nil {
		t.log.Error().Err(err).Msg("journal equity write failed")
	}
}
