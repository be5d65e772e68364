package ledger

// Portfolio is a derived view of account health. Every field is recomputed
// from position state on each call; nothing here is stored independently.
type Portfolio struct {
	InitialBalance float64
	Realized       float64
	Unrealized     float64
	Equity         float64
	DrawdownPct    float64
	OpenPositions  int
}

// Portfolio computes the current snapshot: equity = initial + realized +
// sum of open unrealized P&L, drawdown as percent of initial balance.
func (l *Ledger) Portfolio() Portfolio {
	l.mu.Lock()
	defer l.mu.Unlock()

	var unrealized float64
	for _, p := range l.open {
		unrealized += p.PnL
	}
	equity := l.initialBalance + l.realized + unrealized

	var drawdown float64
	if l.initialBalance > 0 {
		drawdown = (equity - l.initialBalance) / l.initialBalance * 100
	}

	return Portfolio{
		InitialBalance: l.initialBalance,
		Realized:       l.realized,
		Unrealized:     unrealized,
		Equity:         equity,
		DrawdownPct:    drawdown,
		OpenPositions:  len(l.open),
	}
}
