// Package sim provides in-memory collaborators for back-testing and tests:
// a scripted market-data feed, an instant-fill gateway, a static calendar,
// and a scripted decision oracle. All satisfy the broker interfaces.
package sim

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ufotrader/broker"
	"ufotrader/internal/id"
	"ufotrader/market"
	"ufotrader/session"
)

// Feed serves scripted bars and quotes. Missing data reports
// ErrDataUnavailable the way a disconnected gateway would.
type Feed struct {
	mu     sync.Mutex
	bars   map[market.Timeframe]map[string][]market.Bar
	prices map[string]market.Price
}

func NewFeed() *Feed {
	return &Feed{
		bars:   make(map[market.Timeframe]map[string][]market.Bar),
		prices: make(map[string]market.Price),
	}
}

// LoadBars replaces the bar history for a pair and timeframe.
func (f *Feed) LoadBars(pair market.Pair, tf market.Timeframe, bars []market.Bar) {
	f.mu.Lock()
	defer f.mu.Unlock()
	byPair, ok := f.bars[tf]
	if !ok {
		byPair = make(map[string][]market.Bar)
		f.bars[tf] = byPair
	}
	byPair[pair.Symbol()] = bars
}

// SetPrice sets the current quote for a pair.
func (f *Feed) SetPrice(pair market.Pair, price market.Price) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prices[pair.Symbol()] = price
}

func (f *Feed) GetBars(ctx context.Context, pair market.Pair, tf market.Timeframe, count int) ([]market.Bar, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	bars, ok := f.bars[tf][pair.Symbol()]
	if !ok || len(bars) == 0 {
		return nil, fmt.Errorf("%w: no bars for %s %s", broker.ErrDataUnavailable, pair, tf)
	}
	if count > 0 && len(bars) > count {
		bars = bars[len(bars)-count:]
	}
	out := make([]market.Bar, len(bars))
	copy(out, bars)
	return out, nil
}

func (f *Feed) GetPrice(ctx context.Context, pair market.Pair) (market.Price, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	price, ok := f.prices[pair.Symbol()]
	if !ok {
		return market.Price{}, fmt.Errorf("%w: no price for %s", broker.ErrDataUnavailable, pair)
	}
	return price, nil
}

// Fill is one executed sim order.
type Fill struct {
	Ticket    string
	Pair      market.Pair
	Direction market.Direction
	Volume    float64
	Price     float64
	Time      time.Time
	Closed    bool
}

// Gateway fills orders instantly at the current quote of a data source:
// asks for buys, bids for sells. Paired with a live MarketDataSource it is
// a paper-trading gateway.
type Gateway struct {
	mu     sync.Mutex
	quotes broker.MarketDataSource
	fills  map[string]*Fill

	// FailNext forces the next Open to fail, for execution-error paths.
	FailNext bool
}

func NewGateway(quotes broker.MarketDataSource) *Gateway {
	return &Gateway{quotes: quotes, fills: make(map[string]*Fill)}
}

func (g *Gateway) Open(ctx context.Context, pair market.Pair, dir market.Direction, volume float64) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.FailNext {
		g.FailNext = false
		return "", fmt.Errorf("%w: rejected by sim", broker.ErrExecution)
	}
	price, err := g.quotes.GetPrice(ctx, pair)
	if err != nil {
		return "", fmt.Errorf("%w: %s", broker.ErrExecution, err)
	}
	fillPrice := price.Ask
	if dir == market.Sell {
		fillPrice = price.Bid
	}

	ticket := id.New()
	g.fills[ticket] = &Fill{
		Ticket:    ticket,
		Pair:      pair,
		Direction: dir,
		Volume:    volume,
		Price:     fillPrice,
		Time:      price.Time,
	}
	return ticket, nil
}

func (g *Gateway) Close(ctx context.Context, ticket string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	fill, ok := g.fills[ticket]
	if !ok {
		return fmt.Errorf("%w: unknown ticket %s", broker.ErrExecution, ticket)
	}
	fill.Closed = true
	return nil
}

// Fill returns a copy of the fill for a ticket.
func (g *Gateway) Fill(ticket string) (Fill, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	fill, ok := g.fills[ticket]
	if !ok {
		return Fill{}, false
	}
	return *fill, true
}

// Calendar serves a fixed event list regardless of date.
type Calendar struct {
	Events []session.Event
}

func (c *Calendar) GetEvents(ctx context.Context, date time.Time) ([]session.Event, error) {
	return c.Events, nil
}

// Oracle replays a scripted action list, one batch per cycle.
type Oracle struct {
	mu      sync.Mutex
	batches [][]broker.Action
}

// Queue appends one cycle's worth of proposed actions.
func (o *Oracle) Queue(actions ...broker.Action) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.batches = append(o.batches, actions)
}

func (o *Oracle) ProposeActions(ctx context.Context, input broker.OracleInput) ([]broker.Action, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.batches) == 0 {
		return nil, nil
	}
	batch := o.batches[0]
	o.batches = o.batches[1:]
	return batch, nil
}
