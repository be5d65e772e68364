package trader

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ufotrader/broker"
	"ufotrader/broker/sim"
	"ufotrader/config"
	"ufotrader/ledger"
	"ufotrader/market"
)

var (
	eurusd = market.Pair{Base: "EUR", Quote: "USD"}
	usdjpy = market.Pair{Base: "USD", Quote: "JPY"}

	// Friday 2025-08-08 10:00 UTC: London session, no cutoff near.
	cycleTime = time.Date(2025, 8, 8, 10, 0, 0, 0, time.UTC)
)

type fixture struct {
	trader  *Trader
	feed    *sim.Feed
	gateway *sim.Gateway
	oracle  *sim.Oracle
	now     time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	feed := sim.NewFeed()
	gateway := sim.NewGateway(feed)
	oracle := &sim.Oracle{}

	cfg := config.Default()
	cfg.Basket.Pairs = []string{"EURUSD", "USDJPY"}

	tr, err := New(cfg, Collaborators{
		Data:     feed,
		Calendar: &sim.Calendar{},
		Gateway:  gateway,
		Oracle:   oracle,
	}, zerolog.New(io.Discard))
	require.NoError(t, err)

	f := &fixture{trader: tr, feed: feed, gateway: gateway, oracle: oracle, now: cycleTime}
	tr.now = func() time.Time { return f.now }

	feed.SetPrice(eurusd, market.Price{Bid: 1.0999, Ask: 1.1001, Time: cycleTime})
	feed.SetPrice(usdjpy, market.Price{Bid: 149.99, Ask: 150.01, Time: cycleTime})
	f.loadTrend()
	return f
}

// loadTrend scripts a gentle EUR uptrend against USD on every timeframe so
// analysis yields EUR stronger than USD and a long EURUSD thesis holds.
func (f *fixture) loadTrend() {
	for _, tf := range market.Timeframes {
		barsUp := make([]market.Bar, 40)
		barsDown := make([]market.Bar, 40)
		for i := range barsUp {
			ts := f.now.Add(time.Duration(i-40) * 5 * time.Minute)
			up := 1.1 * (1 + 0.0004*float64(i))
			down := 150.0 * (1 - 0.0004*float64(i))
			barsUp[i] = market.Bar{Time: ts, Open: up, High: up, Low: up, Close: up}
			barsDown[i] = market.Bar{Time: ts, Open: down, High: down, Low: down, Close: down}
		}
		f.feed.LoadBars(eurusd, tf, barsUp)
		f.feed.LoadBars(usdjpy, tf, barsDown)
	}
}

func TestNewRequiresCollaborators(t *testing.T) {
	t.Parallel()

	_, err := New(config.Default(), Collaborators{}, zerolog.New(io.Discard))
	assert.Error(t, err)

	_, err = New(config.Default(), Collaborators{Data: sim.NewFeed()}, zerolog.New(io.Discard))
	assert.Error(t, err)
}

func TestMainCycleExecutesOracleProposals(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	f.oracle.Queue(
		broker.Action{Kind: broker.ActionNewTrade, Symbol: "EURUSD", Direction: "BUY", Volume: 0.10},
		broker.Action{Kind: broker.ActionNewTrade, Symbol: "BADSYM", Direction: "BUY", Volume: 0.10},
		broker.Action{Kind: broker.ActionNewTrade, Symbol: "USDJPY", Direction: "sideways", Volume: 0.10},
	)

	require.NoError(t, f.trader.MainCycle(ctx))

	open := f.trader.Book().OpenPositions()
	require.Len(t, open, 1)
	p := open[0]
	assert.Equal(t, eurusd, p.Pair)
	assert.Equal(t, market.Buy, p.Direction)
	// Buys fill at the ask.
	assert.InDelta(t, 1.1001, p.EntryPrice, 1e-9)

	// The snapshot is published after the cycle.
	require.NotNil(t, f.trader.Snapshot())
	assert.True(t, f.trader.Snapshot().Has("EUR"))

	// A proposed close by ticket flattens the position.
	f.oracle.Queue(broker.Action{Kind: broker.ActionCloseTrade, Ticket: p.Ticket})
	f.now = f.now.Add(5 * time.Minute)
	require.NoError(t, f.trader.MainCycle(ctx))
	assert.Empty(t, f.trader.Book().OpenPositions())
	closed := f.trader.Book().ClosedPositions()
	require.Len(t, closed, 1)
	assert.Equal(t, ledger.CloseManual, closed[0].CloseReason)
}

func TestMainCycleScalesOversizedProposals(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	// 1.0 lots estimates 10% risk; the 4.5% cap scales it to 0.45.
	f.oracle.Queue(broker.Action{Kind: broker.ActionNewTrade, Symbol: "EURUSD", Direction: "BUY", Volume: 1.0})
	require.NoError(t, f.trader.MainCycle(ctx))

	open := f.trader.Book().OpenPositions()
	require.Len(t, open, 1)
	assert.InDelta(t, 0.45, open[0].Volume, 1e-9)
}

func TestMainCycleEquityStopClosesEverything(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	f.oracle.Queue(
		broker.Action{Kind: broker.ActionNewTrade, Symbol: "EURUSD", Direction: "BUY", Volume: 1.0},
	)
	require.NoError(t, f.trader.MainCycle(ctx))
	require.Len(t, f.trader.Book().OpenPositions(), 1)

	// 1200 pips against the 0.45 lot long loses $540: past the -5% stop.
	f.feed.SetPrice(eurusd, market.Price{Bid: 0.9800, Ask: 0.9802, Time: f.now})
	f.now = f.now.Add(40 * time.Minute)
	require.NoError(t, f.trader.MainCycle(ctx))

	assert.Empty(t, f.trader.Book().OpenPositions())
	closed := f.trader.Book().ClosedPositions()
	require.Len(t, closed, 1)
	assert.Equal(t, ledger.CloseEquityStop, closed[0].CloseReason)
	assert.Less(t, f.trader.Book().Portfolio().DrawdownPct, -5.0)
}

func TestMainCycleSessionEndClosesEverything(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	f.oracle.Queue(broker.Action{Kind: broker.ActionNewTrade, Symbol: "EURUSD", Direction: "BUY", Volume: 0.10})
	require.NoError(t, f.trader.MainCycle(ctx))
	require.Len(t, f.trader.Book().OpenPositions(), 1)

	// Friday 20:30 UTC is 21:30 London: past the weekend flatten cutoff.
	f.now = time.Date(2025, 8, 8, 20, 30, 0, 0, time.UTC)
	require.NoError(t, f.trader.MainCycle(ctx))

	assert.Empty(t, f.trader.Book().OpenPositions())
	closed := f.trader.Book().ClosedPositions()
	require.Len(t, closed, 1)
	assert.Equal(t, ledger.CloseSessionEnd, closed[0].CloseReason)
}

func TestMonitoringCycleAppliesCloseRules(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	f.oracle.Queue(broker.Action{Kind: broker.ActionNewTrade, Symbol: "EURUSD", Direction: "BUY", Volume: 0.10})
	require.NoError(t, f.trader.MainCycle(ctx))
	ticket := f.trader.Book().OpenPositions()[0].Ticket
	venueTicket := f.trader.venue[ticket]

	// +80 pips on 0.1 lots is +$80, past the +$75 profit target.
	f.feed.SetPrice(eurusd, market.Price{Bid: 1.1080, Ask: 1.1082, Time: f.now})
	f.now = f.now.Add(5 * time.Minute)
	require.NoError(t, f.trader.MonitoringCycle(ctx))

	assert.Empty(t, f.trader.Book().OpenPositions())
	closed := f.trader.Book().ClosedPositions()
	require.Len(t, closed, 1)
	assert.Equal(t, ledger.CloseTakeProfit, closed[0].CloseReason)

	// The venue was flattened too.
	fill, ok := f.gateway.Fill(venueTicket)
	require.True(t, ok)
	assert.True(t, fill.Closed)
}

func TestMonitoringCycleReinforcesOnPriceMove(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	f.oracle.Queue(broker.Action{Kind: broker.ActionNewTrade, Symbol: "EURUSD", Direction: "BUY", Volume: 1.0})
	require.NoError(t, f.trader.MainCycle(ctx))
	require.Len(t, f.trader.Book().OpenPositions(), 1)
	parent := f.trader.Book().OpenPositions()[0]
	require.InDelta(t, 0.45, parent.Volume, 1e-9)

	// 25 pips against the long: a price-movement event and an $11.25 loss,
	// small enough to survive the close rules while the EUR thesis holds.
	// Standard reinforcement sizing: 0.45 * 0.3 = 0.135 lots.
	f.feed.SetPrice(eurusd, market.Price{Bid: 1.0975, Ask: 1.0977, Time: f.now})
	f.now = f.now.Add(6 * time.Minute)
	require.NoError(t, f.trader.MonitoringCycle(ctx))

	open := f.trader.Book().OpenPositions()
	require.Len(t, open, 2)
	child := open[1]
	assert.Equal(t, parent.Ticket, child.ParentTicket)
	assert.Equal(t, market.Buy, child.Direction)
	assert.InDelta(t, 0.135, child.Volume, 1e-9)
	assert.LessOrEqual(t, child.Volume, parent.Volume)
	assert.Equal(t, 1, f.trader.Book().Find(parent.Ticket).Reinforcements)

	rec, ok := f.trader.Book().Record(parent.Ticket)
	require.True(t, ok)
	assert.Equal(t, 1, rec.Count)
	assert.InDelta(t, child.Volume, rec.TotalVolume, 1e-9)

	// Cooldown blocks an immediate second reinforcement.
	f.now = f.now.Add(6 * time.Minute)
	require.NoError(t, f.trader.MonitoringCycle(ctx))
	assert.Len(t, f.trader.Book().OpenPositions(), 2)
}

func TestMainCycleDegradesWithoutData(t *testing.T) {
	t.Parallel()

	feed := sim.NewFeed()
	cfg := config.Default()
	tr, err := New(cfg, Collaborators{Data: feed, Gateway: sim.NewGateway(feed)}, zerolog.New(io.Discard))
	require.NoError(t, err)
	tr.now = func() time.Time { return cycleTime }

	// No bars, no prices, no oracle: the cycle still completes and
	// publishes an empty snapshot.
	require.NoError(t, tr.MainCycle(context.Background()))
	require.NotNil(t, tr.Snapshot())
	assert.False(t, tr.Snapshot().Has("EUR"))
	assert.Empty(t, tr.Book().OpenPositions())
}
