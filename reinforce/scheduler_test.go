package reinforce

import (
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ufotrader/ledger"
	"ufotrader/market"
	"ufotrader/session"
	"ufotrader/strength"
)

func newTestScheduler(t *testing.T) (*Scheduler, *ledger.Ledger) {
	t.Helper()
	log := zerolog.New(io.Discard)
	book := ledger.New(10000, ledger.DefaultRules(), log)
	return NewScheduler(DefaultConfig(), session.NewClock(session.Config{}), book, log), book
}

// Friday 2025-08-08 10:00 UTC is 11:00 London, mid London session.
var londonMorning = time.Date(2025, 8, 8, 10, 0, 0, 0, time.UTC)

func TestShouldCheckInterval(t *testing.T) {
	t.Parallel()

	s, _ := newTestScheduler(t)
	now := londonMorning

	// First call always checks.
	assert.True(t, s.ShouldCheck(now))
	s.MarkChecked(now)

	assert.False(t, s.ShouldCheck(now.Add(4*time.Minute)))
	assert.True(t, s.ShouldCheck(now.Add(5*time.Minute)))

	// High volatility halves the 5-minute interval.
	s.volatility = VolatilityHigh
	assert.True(t, s.ShouldCheck(now.Add(150*time.Second)))
	assert.False(t, s.ShouldCheck(now.Add(2*time.Minute)))

	// Extreme volatility halves it again.
	s.volatility = VolatilityExtreme
	assert.True(t, s.ShouldCheck(now.Add(75*time.Second)))
	assert.False(t, s.ShouldCheck(now.Add(1*time.Minute)))
}

func TestVolatilityAdjustment(t *testing.T) {
	t.Parallel()

	s, _ := newTestScheduler(t)

	assert.InDelta(t, 1.0, s.volatilityAdjustment(0.0001), 1e-9)
	assert.Equal(t, VolatilityNormal, s.Volatility())

	assert.InDelta(t, 0.85, s.volatilityAdjustment(0.00025), 1e-9)
	assert.Equal(t, VolatilityHigh, s.Volatility())

	assert.InDelta(t, 0.7, s.volatilityAdjustment(0.0004), 1e-9)
	assert.Equal(t, VolatilityExtreme, s.Volatility())

	// Missing spread data never scales the size.
	assert.InDelta(t, 1.0, s.volatilityAdjustment(0), 1e-9)
	assert.Equal(t, VolatilityNormal, s.Volatility())
}

func TestDetectEvents(t *testing.T) {
	t.Parallel()

	s, book := newTestScheduler(t)
	eurusd := market.Pair{Base: "EUR", Quote: "USD"}
	usdjpy := market.Pair{Base: "USD", Quote: "JPY"}

	long := book.Open(eurusd, market.Buy, 0.10, 1.1000, londonMorning, "")
	short := book.Open(usdjpy, market.Sell, 0.10, 150.00, londonMorning, "")

	prices := map[string]market.Price{
		// 25 pips above entry: price-movement event, medium priority.
		eurusd.Symbol(): {Bid: 1.10249, Ask: 1.10251},
		// 10 pips, below the 20-pip trigger.
		usdjpy.Symbol(): {Bid: 150.099, Ask: 150.101},
	}
	lookup := func(p market.Pair) (market.Price, bool) {
		price, ok := prices[p.Symbol()]
		return price, ok
	}

	events := s.DetectEvents(book.OpenPositions(), lookup, nil, nil, londonMorning)
	require.Len(t, events, 1)
	assert.Equal(t, EventPriceMove, events[0].Type)
	assert.Equal(t, PriorityMedium, events[0].Priority)
	assert.Equal(t, long.Ticket, events[0].Ticket)
	assert.InDelta(t, 25.0, events[0].Magnitude, 0.5)

	// Past double the trigger the priority rises.
	prices[eurusd.Symbol()] = market.Price{Bid: 1.1045, Ask: 1.1045}
	events = s.DetectEvents(book.OpenPositions(), lookup, nil, nil, londonMorning)
	require.Len(t, events, 1)
	assert.Equal(t, PriorityHigh, events[0].Priority)

	// A loss of 2% of the reference balance is critical. The 45-pip price
	// move on the long still fires alongside it.
	book.Mark(short.Ticket, 152.00, londonMorning)
	if assert.InDelta(t, -200, short.PnL, 1e-6) {
		events = s.DetectEvents(book.OpenPositions(), lookup, nil, nil, londonMorning)
		require.Len(t, events, 2)
		assert.Equal(t, EventRapidLoss, events[1].Type)
		assert.Equal(t, PriorityCritical, events[1].Priority)
		assert.Equal(t, short.Ticket, events[1].Ticket)
		assert.InDelta(t, 2.0, events[1].Magnitude, 1e-9)
	}
}

func TestDetectStrengthChangeEvents(t *testing.T) {
	t.Parallel()

	s, _ := newTestScheduler(t)

	prev := &strength.Snapshot{Strength: map[market.Timeframe]map[string][]float64{
		market.Primary: {
			"EUR": {1.0, 1.0, 1.0},
			"USD": {0.0, 0.0, 0.0},
		},
	}}
	cur := &strength.Snapshot{Strength: map[market.Timeframe]map[string][]float64{
		market.Primary: {
			"EUR": {2.7}, // +1.7 vs trailing-3 mean of 1.0
			"USD": {1.0}, // +1.0, under the 1.5 threshold
		},
	}}

	events := s.DetectEvents(nil, nil, cur, prev, londonMorning)
	require.Len(t, events, 1)
	assert.Equal(t, EventStrengthChange, events[0].Type)
	assert.Equal(t, "EUR", events[0].Currency)
	assert.Equal(t, PriorityMedium, events[0].Priority)

	// Beyond 2.5 the priority rises.
	cur.Strength[market.Primary]["EUR"] = []float64{3.6}
	events = s.DetectEvents(nil, nil, cur, prev, londonMorning)
	require.Len(t, events, 1)
	assert.Equal(t, PriorityHigh, events[0].Priority)

	// Missing snapshots skip the check.
	assert.Empty(t, s.DetectEvents(nil, nil, cur, nil, londonMorning))
	assert.Empty(t, s.DetectEvents(nil, nil, nil, prev, londonMorning))
}

func TestSizeReinforcement(t *testing.T) {
	t.Parallel()

	s, book := newTestScheduler(t)
	p := book.Open(market.Pair{Base: "EUR", Quote: "USD"}, market.Buy, 0.10, 1.1000, londonMorning, "")
	ev := Event{Type: EventRapidLoss, Priority: PriorityCritical, Ticket: p.Ticket}

	// London session (x1.0), normal spread (x1.0), critical rapid loss
	// (x1.5): 0.10 * 0.3 * 1.5 = 0.045.
	plan, status := s.SizeReinforcement(p, ev, 0.0001, londonMorning)
	require.NotNil(t, plan, status)
	assert.InDelta(t, 0.045, plan.AdditionalLots, 1e-9)

	// The overlap session scales up, an extreme spread scales down:
	// 0.10 * 0.3 * 1.5 * 1.5 * 0.7 = 0.04725.
	overlap := time.Date(2025, 8, 8, 13, 0, 0, 0, time.UTC) // 14:00 London
	plan, _ = s.SizeReinforcement(p, ev, 0.0004, overlap)
	require.NotNil(t, plan)
	assert.InDelta(t, 0.04725, plan.AdditionalLots, 1e-9)
	assert.Equal(t, VolatilityExtreme, s.Volatility())

	// Unknown event/priority pairs fall back to the bare base fraction.
	plan, _ = s.SizeReinforcement(p, Event{Type: EventPriceMove, Priority: PriorityCritical}, 0.0001, londonMorning)
	require.NotNil(t, plan)
	assert.InDelta(t, 0.03, plan.AdditionalLots, 1e-9)

	// Size never exceeds the original volume.
	big := book.Open(market.Pair{Base: "GBP", Quote: "USD"}, market.Buy, 0.01, 1.2500, londonMorning, "")
	plan, _ = s.SizeReinforcement(big, ev, 0.0001, overlap)
	require.NotNil(t, plan)
	assert.InDelta(t, 0.01, plan.AdditionalLots, 1e-9)
	assert.GreaterOrEqual(t, plan.AdditionalLots, market.MinimumLot)
}

func TestSizeReinforcementHardGates(t *testing.T) {
	t.Parallel()

	s, book := newTestScheduler(t)
	p := book.Open(market.Pair{Base: "EUR", Quote: "USD"}, market.Buy, 0.10, 1.1000, londonMorning, "")
	ev := Event{Type: EventPriceMove, Priority: PriorityMedium, Ticket: p.Ticket}

	plan, status := s.SizeReinforcement(p, ev, 0.0001, londonMorning)
	require.NotNil(t, plan)
	s.RecordExecution(p, plan, londonMorning)

	// Cooldown blocks for 15 minutes after an execution.
	plan, status = s.SizeReinforcement(p, ev, 0.0001, londonMorning.Add(10*time.Minute))
	assert.Nil(t, plan)
	assert.Contains(t, status, "cooling period")

	later := londonMorning.Add(16 * time.Minute)
	plan, _ = s.SizeReinforcement(p, ev, 0.0001, later)
	require.NotNil(t, plan)
	s.RecordExecution(p, plan, later)

	later = later.Add(16 * time.Minute)
	plan, _ = s.SizeReinforcement(p, ev, 0.0001, later)
	require.NotNil(t, plan)
	s.RecordExecution(p, plan, later)

	// Third execution reaches the cap; the gate holds regardless of time.
	plan, status = s.SizeReinforcement(p, ev, 0.0001, later.Add(time.Hour))
	assert.Nil(t, plan)
	assert.Contains(t, status, "maximum reinforcements")
}
