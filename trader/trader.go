// Package trader runs the trading loop: a slow main cycle that re-derives
// the strength snapshot and applies portfolio decisions, and a fast
// monitoring cycle that marks positions, applies close rules and reacts to
// reinforcement triggers. Both cycles share one mutable book and are
// serialized by a mutex.
package trader

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"ufotrader/broker"
	"ufotrader/config"
	"ufotrader/journal"
	"ufotrader/ledger"
	"ufotrader/market"
	"ufotrader/reinforce"
	"ufotrader/risk"
	"ufotrader/session"
	"ufotrader/strength"
)

// Collaborators are the external services a Trader drives. Data and Gateway
// are required; a nil Oracle disables new-trade proposals and a nil Journal
// discards history.
type Collaborators struct {
	Data     broker.MarketDataSource
	Calendar broker.EconomicCalendarSource
	Gateway  broker.TradeGateway
	Oracle   broker.DecisionOracle
	Journal  journal.Journal
}

type Trader struct {
	mu  sync.Mutex
	cfg *config.Config
	log zerolog.Logger

	pairs  []market.Pair
	engine *strength.Engine
	clock  *session.Clock
	risk   *risk.Controller
	book   *ledger.Ledger
	sched  *reinforce.Scheduler
	col    Collaborators

	// now is injectable so simulation and wall-clock runs share the loop.
	now func() time.Time

	// venue maps ledger tickets to gateway tickets.
	venue map[string]string

	current  *strength.Snapshot
	previous *strength.Snapshot
}

// New wires a Trader from configuration and collaborators.
func New(cfg *config.Config, col Collaborators, log zerolog.Logger) (*Trader, error) {
	if col.Data == nil {
		return nil, errors.New("trader: market data source is required")
	}
	if col.Gateway == nil {
		return nil, errors.New("trader: trade gateway is required")
	}
	if col.Journal == nil {
		col.Journal = journal.Nop{}
	}

	log = log.With().Str("component", "trader").Logger()

	pairs := make([]market.Pair, 0, len(cfg.Basket.Pairs))
	for _, sym := range cfg.Basket.Pairs {
		p, err := market.ParsePair(sym)
		if err != nil {
			log.Warn().Str("symbol", sym).Err(err).Msg("skipping configured pair")
			continue
		}
		pairs = append(pairs, p)
	}
	if len(pairs) == 0 {
		pairs = market.MajorPairs
	}

	basket := cfg.Basket.Currencies
	if len(basket) == 0 {
		basket = market.Currencies
	}

	clock := session.NewClock(cfg.Session)
	book := ledger.New(cfg.Account.Balance, cfg.Rules, log)

	return &Trader{
		cfg:   cfg,
		log:   log,
		pairs: pairs,
		engine: strength.NewEngine(basket, log,
			strength.WithWindow(cfg.Strength.Window),
			strength.WithReversionThreshold(cfg.Strength.ReversionThreshold)),
		clock: clock,
		book:  book,
		risk:  risk.NewController(cfg.Risk, clock, log),
		sched: reinforce.NewScheduler(cfg.Reinforce, clock, book, log),
		col:   col,
		now:   time.Now,
		venue: make(map[string]string),
	}, nil
}

// Book exposes the position ledger, mainly for inspection and tests.
func (t *Trader) Book() *ledger.Ledger { return t.book }

// SetClock replaces the wall clock, so a simulation can step through a
// trading day at its own pace. Call before the first cycle.
func (t *Trader) SetClock(now func() time.Time) { t.now = now }

// Snapshot returns the most recent strength snapshot, nil before the first
// completed main cycle.
func (t *Trader) Snapshot() *strength.Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// Run drives both cycles until the context is canceled. The main cycle
// fires once immediately so a fresh start trades without waiting out the
// first interval.
func (t *Trader) Run(ctx context.Context) error {
	if err := t.MainCycle(ctx); err != nil {
		t.log.Error().Err(err).Msg("main cycle failed")
	}

	c := cron.New()
	if _, err := c.AddFunc("@every "+t.cfg.Trader.MainInterval.String(), func() {
		if err := t.MainCycle(ctx); err != nil {
			t.log.Error().Err(err).Msg("main cycle failed")
		}
	}); err != nil {
		return err
	}
	if _, err := c.AddFunc("@every "+t.cfg.Trader.MonitoringInterval.String(), func() {
		if err := t.MonitoringCycle(ctx); err != nil {
			t.log.Error().Err(err).Msg("monitoring cycle failed")
		}
	}); err != nil {
		return err
	}

	c.Start()
	t.log.Info().
		Dur("main_interval", t.cfg.Trader.MainInterval).
		Dur("monitoring_interval", t.cfg.Trader.MonitoringInterval).
		Msg("trading loop started")

	<-ctx.Done()
	stop := c.Stop()
	<-stop.Done()
	t.log.Info().Msg("trading loop stopped")
	return nil
}
