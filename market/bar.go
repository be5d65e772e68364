// Package market defines the instruments, price bars and quotes the rest of
// the system trades on.
package market

import "time"

// Timeframe identifies a bar aggregation period.
type Timeframe string

const (
	M5  Timeframe = "M5"
	M15 Timeframe = "M15"
	H1  Timeframe = "H1"
	H4  Timeframe = "H4"
	D1  Timeframe = "D1"
)

// Timeframes lists every supported timeframe, shortest first. M5 is the
// primary timeframe for strength lookups.
var Timeframes = []Timeframe{M5, M15, H1, H4, D1}

// Primary is the timeframe used when a single strength value is needed.
const Primary = M5

// Bar is one OHLC candle for a symbol at a timeframe. Bars are ordered and
// append-only per (symbol, timeframe).
type Bar struct {
	Time  time.Time
	Open  float64
	High  float64
	Low   float64
	Close float64
}

// Price is a dealable quote at a point in time.
type Price struct {
	Bid  float64
	Ask  float64
	Time time.Time
}

func (p Price) Mid() float64    { return (p.Bid + p.Ask) / 2 }
func (p Price) Spread() float64 { return p.Ask - p.Bid }

// Direction is the side of a position.
type Direction string

const (
	Buy  Direction = "BUY"
	Sell Direction = "SELL"
)

// ParseDirection validates a direction label from untrusted input.
func ParseDirection(s string) (Direction, bool) {
	switch Direction(s) {
	case Buy:
		return Buy, true
	case Sell:
		return Sell, true
	}
	return "", false
}
