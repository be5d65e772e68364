package journal

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) (*SQLiteJournal, string) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")

	j, err := NewSQLite(path)
	require.NoError(t, err)

	return j, path
}

func TestSQLiteSchemaCreated(t *testing.T) {
	t.Parallel()

	j, path := newTestSQLite(t)
	assert.NoError(t, j.Close())

	db, err := sql.Open("sqlite3", path)
	assert.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type='table' AND name IN ('trades','equity')`)
	assert.NoError(t, err)
	defer rows.Close()

	found := map[string]bool{}
	for rows.Next() {
		var name string
		assert.NoError(t, rows.Scan(&name))
		found[name] = true
	}
	assert.NoError(t, rows.Err())

	assert.True(t, found["trades"])
	assert.True(t, found["equity"])
}

func TestSQLiteRecordAndListTrades(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	t.Cleanup(func() { _ = j.Close() })

	open := time.Date(2025, 8, 8, 9, 0, 0, 0, time.UTC)

	first := TradeRecord{
		Ticket:     "T1",
		Symbol:     "EURUSD",
		Direction:  "BUY",
		Volume:     0.10,
		EntryPrice: 1.1000,
		ExitPrice:  1.1080,
		OpenTime:   open,
		CloseTime:  open.Add(2 * time.Hour),
		RealizedPL: 80,
		Reason:     "profit target",
	}
	second := TradeRecord{
		Ticket:       "T2",
		Symbol:       "USDJPY",
		Direction:    "SELL",
		Volume:       0.05,
		EntryPrice:   150.00,
		ExitPrice:    150.60,
		OpenTime:     open,
		CloseTime:    open.Add(time.Hour),
		RealizedPL:   -30,
		Reason:       "stop loss",
		ParentTicket: "T1",
	}
	assert.NoError(t, j.RecordTrade(first))
	assert.NoError(t, j.RecordTrade(second))

	trades, err := j.ListTrades()
	require.NoError(t, err)
	require.Len(t, trades, 2)

	// Ordered by close time, not insertion.
	assert.Equal(t, "T2", trades[0].Ticket)
	assert.Equal(t, "T1", trades[0].ParentTicket)
	assert.Equal(t, "T1", trades[1].Ticket)
	assert.Equal(t, "BUY", trades[1].Direction)
	assert.InDelta(t, 80, trades[1].RealizedPL, 1e-9)
}

func TestSQLiteRecordEquity(t *testing.T) {
	t.Parallel()

	j, path := newTestSQLite(t)

	snap := EquitySnapshot{
		Time:          time.Date(2025, 8, 8, 10, 0, 0, 0, time.UTC),
		Balance:       10000,
		Realized:      50,
		Unrealized:    -25,
		Equity:        10025,
		DrawdownPct:   0.25,
		OpenPositions: 2,
	}
	assert.NoError(t, j.RecordEquity(snap))
	assert.NoError(t, j.Close())

	db, err := sql.Open("sqlite3", path)
	assert.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var (
		equity float64
		open   int
	)
	err = db.QueryRow(`SELECT equity, open_positions FROM equity`).Scan(&equity, &open)
	assert.NoError(t, err)
	assert.InDelta(t, 10025, equity, 1e-9)
	assert.Equal(t, 2, open)
}
