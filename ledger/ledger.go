package ledger

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"ufotrader/internal/id"
	"ufotrader/market"
)

// Ledger is the single owner of position and reinforcement-record state.
// All methods are safe for concurrent use; the open slice keeps insertion
// order so close passes are deterministic for identical inputs.
type Ledger struct {
	mu sync.Mutex

	initialBalance float64
	realized       float64
	open           []*Position
	closed         []*Position
	records        map[string]*ReinforcementRecord
	rules          Rules
	log            zerolog.Logger
}

// New creates a ledger with the given starting balance and close rules.
func New(initialBalance float64, rules Rules, log zerolog.Logger) *Ledger {
	return &Ledger{
		initialBalance: initialBalance,
		records:        make(map[string]*ReinforcementRecord),
		rules:          rules,
		log:            log.With().Str("component", "ledger").Logger(),
	}
}

// Open creates a position with peak P&L zero and no close reason. parent is
// the original position's ticket for reinforcement trades, empty for
// originals. The assigned ticket is returned via the position.
func (l *Ledger) Open(pair market.Pair, dir market.Direction, volume, entryPrice float64, at time.Time, parent string) *Position {
	l.mu.Lock()
	defer l.mu.Unlock()

	p := &Position{
		Ticket:       id.New(),
		Pair:         pair,
		Direction:    dir,
		Volume:       volume,
		EntryPrice:   entryPrice,
		MarkPrice:    entryPrice,
		MarkTime:     at,
		OpenTime:     at,
		ParentTicket: parent,
	}
	l.open = append(l.open, p)

	if parent != "" {
		if pp := l.findLocked(parent); pp != nil {
			pp.Reinforcements++
		}
	}

	l.log.Info().
		Str("ticket", p.Ticket).
		Str("symbol", pair.Symbol()).
		Str("direction", string(dir)).
		Float64("volume", volume).
		Float64("entry", entryPrice).
		Str("parent", parent).
		Msg("position opened")
	return p
}

// Mark marks a single position to a price.
func (l *Ledger) Mark(ticket string, price float64, at time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if p := l.findLocked(ticket); p != nil {
		p.mark(price, at)
	}
}

// MarkAll marks every open position using prices from lookup. A pair with no
// available price keeps its last marked price rather than marking at an
// undefined value. All marks complete before any close rule runs.
func (l *Ledger) MarkAll(lookup func(market.Pair) (float64, bool), at time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, p := range l.open {
		price, ok := lookup(p.Pair)
		if !ok {
			price = p.MarkPrice
		}
		p.mark(price, at)
	}
}

// ApplyCloseRules evaluates the close rules against every open position in
// insertion order and closes the ones that fire. The closed positions are
// returned in the order they were applied.
func (l *Ledger) ApplyCloseRules(now time.Time) []*Position {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []*Position
	for _, p := range l.open {
		if reason := l.rules.Evaluate(p, now); reason != "" {
			out = append(out, p)
			l.closeLocked(p, reason, now)
		}
	}
	l.removeClosedLocked()
	return out
}

// Close closes one position by ticket. Returns the position, or nil if the
// ticket is unknown or already closed.
func (l *Ledger) Close(ticket string, reason CloseReason, now time.Time) *Position {
	l.mu.Lock()
	defer l.mu.Unlock()

	p := l.findLocked(ticket)
	if p == nil {
		return nil
	}
	l.closeLocked(p, reason, now)
	l.removeClosedLocked()
	return p
}

// CloseAll closes every open position in insertion order with one reason;
// the equity-stop and session-end contracts use it.
func (l *Ledger) CloseAll(reason CloseReason, now time.Time) []*Position {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]*Position, 0, len(l.open))
	for _, p := range l.open {
		out = append(out, p)
		l.closeLocked(p, reason, now)
	}
	l.open = l.open[:0]
	return out
}

// closeLocked moves realized P&L and discards the reinforcement record.
// Equity is always recomputed from realized + unrealized, never incremented
// ad hoc, so the aggregates cannot drift from position state.
func (l *Ledger) closeLocked(p *Position, reason CloseReason, now time.Time) {
	p.CloseReason = reason
	p.ClosePrice = p.MarkPrice
	p.CloseTime = now
	l.realized += p.PnL
	l.closed = append(l.closed, p)
	delete(l.records, p.Ticket)

	l.log.Info().
		Str("ticket", p.Ticket).
		Str("symbol", p.Pair.Symbol()).
		Str("reason", string(reason)).
		Float64("pnl", p.PnL).
		Msg("position closed")
}

func (l *Ledger) removeClosedLocked() {
	kept := l.open[:0]
	for _, p := range l.open {
		if p.Open() {
			kept = append(kept, p)
		}
	}
	l.open = kept
}

func (l *Ledger) findLocked(ticket string) *Position {
	for _, p := range l.open {
		if p.Ticket == ticket {
			return p
		}
	}
	return nil
}

// Find returns an open position by ticket, nil when absent.
func (l *Ledger) Find(ticket string) *Position {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.findLocked(ticket)
}

// OpenPositions returns the open set in insertion order.
func (l *Ledger) OpenPositions() []*Position {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*Position, len(l.open))
	copy(out, l.open)
	return out
}

// ClosedPositions returns the closed history in close order.
func (l *Ledger) ClosedPositions() []*Position {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*Position, len(l.closed))
	copy(out, l.closed)
	return out
}
