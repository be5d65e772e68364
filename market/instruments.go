package market

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidSymbol marks a malformed or unrecognized currency pair. Actions
// carrying one are rejected before they reach the trade gateway.
var ErrInvalidSymbol = errors.New("invalid symbol")

// MinimumLot is the smallest tradable volume in lots.
const MinimumLot = 0.01

// Currencies we derive strength for. Pairs are only valid if both legs are
// in this set.
var Currencies = []string{"EUR", "USD", "GBP", "JPY", "CHF", "AUD", "NZD", "CAD"}

var currencySet = func() map[string]bool {
	m := make(map[string]bool, len(Currencies))
	for _, c := range Currencies {
		m[c] = true
	}
	return m
}()

// KnownCurrency reports whether c is part of the tradable basket.
func KnownCurrency(c string) bool { return currencySet[c] }

// Pair is a currency cross: base quoted in quote.
type Pair struct {
	Base  string
	Quote string
}

func (p Pair) Symbol() string { return p.Base + p.Quote }
func (p Pair) String() string { return p.Symbol() }

// Contains reports whether ccy is either leg of the pair.
func (p Pair) Contains(ccy string) bool { return p.Base == ccy || p.Quote == ccy }

// PipMultiplier converts a raw price difference into P&L units per lot.
// JPY-quoted pairs tick in hundredths, everything else in ten-thousandths.
func (p Pair) PipMultiplier() float64 {
	if p.Quote == "JPY" {
		return 1000
	}
	return 10000
}

// PipSize is the price move equal to one pip for this pair.
func (p Pair) PipSize() float64 {
	if p.Quote == "JPY" {
		return 0.01
	}
	return 0.0001
}

// ParsePair reads a symbol like "EURUSD", "EUR/USD" or "EURUSD-ECN"
// (broker feed suffixes are stripped) into a Pair. Both legs must be known
// currencies.
func ParsePair(symbol string) (Pair, error) {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if i := strings.Index(s, "-"); i >= 0 {
		s = s[:i]
	}
	s = strings.ReplaceAll(s, "/", "")
	s = strings.ReplaceAll(s, "_", "")

	if len(s) != 6 {
		return Pair{}, fmt.Errorf("parse pair %q: %w", symbol, ErrInvalidSymbol)
	}

	p := Pair{Base: s[:3], Quote: s[3:]}
	if !KnownCurrency(p.Base) || !KnownCurrency(p.Quote) || p.Base == p.Quote {
		return Pair{}, fmt.Errorf("parse pair %q: %w", symbol, ErrInvalidSymbol)
	}
	return p, nil
}

// MajorPairs is the default basket of crosses the strength engine watches.
var MajorPairs = []Pair{
	{"EUR", "USD"},
	{"GBP", "USD"},
	{"AUD", "USD"},
	{"NZD", "USD"},
	{"USD", "JPY"},
	{"USD", "CHF"},
	{"USD", "CAD"},
	{"EUR", "GBP"},
	{"EUR", "JPY"},
	{"GBP", "JPY"},
}
