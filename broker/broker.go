// Package broker defines the collaborator interfaces the trading core
// consumes: market data, the economic calendar, trade execution, and the
// external decision generator. The core treats all of them as synchronous
// calls that either return a value or fail with a reported error; retries
// and backoff live behind these interfaces.
package broker

import (
	"context"
	"errors"
	"time"

	"ufotrader/market"
	"ufotrader/session"
)

var (
	// ErrDataUnavailable reports missing bars, prices or events, typically
	// a disconnected gateway. Consumers degrade to neutral output instead
	// of propagating it.
	ErrDataUnavailable = errors.New("market data unavailable")
	// ErrExecution reports a failed order. The attempted position is never
	// created; the cycle continues.
	ErrExecution = errors.New("order execution failed")
)

// MarketDataSource supplies ordered price history and live quotes.
type MarketDataSource interface {
	// GetBars returns up to count bars for a pair and timeframe, oldest
	// first.
	GetBars(ctx context.Context, pair market.Pair, tf market.Timeframe, count int) ([]market.Bar, error)
	// GetPrice returns the current quote for a pair.
	GetPrice(ctx context.Context, pair market.Pair) (market.Price, error)
}

// EconomicCalendarSource supplies scheduled economic events for a date.
// An empty result is valid and must not block session logic.
type EconomicCalendarSource interface {
	GetEvents(ctx context.Context, date time.Time) ([]session.Event, error)
}

// TradeGateway executes orders against the venue.
type TradeGateway interface {
	// Open submits a market order and returns the venue ticket.
	Open(ctx context.Context, pair market.Pair, dir market.Direction, volume float64) (string, error)
	// Close flattens a previously opened ticket.
	Close(ctx context.Context, ticket string) error
}

// ActionKind is the verb of a proposed action.
type ActionKind string

const (
	ActionNewTrade   ActionKind = "new_trade"
	ActionCloseTrade ActionKind = "close_trade"
)

// Action is one proposed trading step from the decision generator. It is
// untrusted input: symbol, direction and volume are validated against the
// current book before anything reaches the gateway.
type Action struct {
	Kind      ActionKind `yaml:"action" json:"action"`
	Symbol    string     `yaml:"symbol" json:"symbol"`
	Direction string     `yaml:"direction" json:"direction"`
	Volume    float64    `yaml:"volume" json:"volume"`
	Ticket    string     `yaml:"trade_id" json:"trade_id"`
}

// DecisionOracle produces the proposed action list for a cycle. Plan
// generation is external; the core only validates and executes.
type DecisionOracle interface {
	ProposeActions(ctx context.Context, input OracleInput) ([]Action, error)
}

// OracleInput is the market context handed to the decision generator.
type OracleInput struct {
	Time         time.Time
	Session      session.State
	Equity       float64
	Balance      float64
	OpenTickets  []string
	AllowReason  string
	TradeAllowed bool

	// Strength holds the latest per-currency strength readings.
	Strength map[string]float64
}
