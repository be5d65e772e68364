package journal

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

type SQLiteJournal struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		return nil, err
	}

	return &SQLiteJournal{db: db}, nil
}

func (j *SQLiteJournal) RecordTrade(t TradeRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO trades
		(ticket, symbol, direction, volume, entry_price, exit_price, open_time, close_time, realized_pl, reason, parent_ticket)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.Ticket, t.Symbol, t.Direction, t.Volume, t.EntryPrice,
		t.ExitPrice, t.OpenTime, t.CloseTime, t.RealizedPL, t.Reason, t.ParentTicket,
	)
	return err
}

func (j *SQLiteJournal) RecordEquity(e EquitySnapshot) error {
	_, err := j.db.Exec(`
		INSERT INTO equity
		(time, balance, realized, unrealized, equity, drawdown_pct, open_positions)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.Time, e.Balance, e.Realized, e.Unrealized, e.Equity, e.DrawdownPct, e.OpenPositions,
	)
	return err
}

// ListTrades returns every journaled trade, oldest close first.
func (j *SQLiteJournal) ListTrades() ([]TradeRecord, error) {
	rows, err := j.db.Query(`
		SELECT ticket, symbol, direction, volume, entry_price, exit_price,
		       open_time, close_time, realized_pl, reason, parent_ticket
		FROM trades ORDER BY close_time`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		var t TradeRecord
		if err := rows.Scan(&t.Ticket, &t.Symbol, &t.Direction, &t.Volume, &t.EntryPrice,
			&t.ExitPrice, &t.OpenTime, &t.CloseTime, &t.RealizedPL, &t.Reason, &t.ParentTicket); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}
