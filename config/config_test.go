package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trader.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	t.Parallel()

	cfg := Default()
	assert.Equal(t, "USD", cfg.Account.Currency)
	assert.InDelta(t, 10000, cfg.Account.Balance, 1e-9)
	assert.Equal(t, 20, cfg.Strength.Window)
	assert.Equal(t, 40*time.Minute, cfg.Trader.MainInterval)
	assert.Equal(t, 5*time.Minute, cfg.Trader.MonitoringInterval)
	assert.Equal(t, "none", cfg.Journal.Type)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.InDelta(t, -5.0, cfg.Risk.EquityStopPct, 1e-9)
	assert.Equal(t, 20, cfg.Session.EndOfDayHour)
	assert.InDelta(t, 75, cfg.Rules.TakeProfit, 1e-9)
	assert.Equal(t, 15*time.Minute, cfg.Reinforce.Cooldown)
}

func TestLoadOverridesDefaults(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
account:
  balance: 25000
basket:
  pairs: [EURUSD, USDJPY]
strength:
  window: 30
trader:
  main_interval: 20m
risk:
  equity_stop_pct: -3.0
  max_concurrent: 5
close_rules:
  take_profit: 100
journal:
  type: sqlite
  db_path: /tmp/run.db
logging:
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.InDelta(t, 25000, cfg.Account.Balance, 1e-9)
	assert.Equal(t, []string{"EURUSD", "USDJPY"}, cfg.Basket.Pairs)
	assert.Equal(t, 30, cfg.Strength.Window)
	assert.Equal(t, 20*time.Minute, cfg.Trader.MainInterval)
	assert.InDelta(t, -3.0, cfg.Risk.EquityStopPct, 1e-9)
	assert.Equal(t, 5, cfg.Risk.MaxConcurrent)
	assert.InDelta(t, 100, cfg.Rules.TakeProfit, 1e-9)
	assert.Equal(t, "sqlite", cfg.Journal.Type)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// Untouched sections keep their defaults.
	assert.Equal(t, "USD", cfg.Account.Currency)
	assert.Equal(t, 5*time.Minute, cfg.Trader.MonitoringInterval)
	assert.Equal(t, 3, cfg.Reinforce.MaxPerPosition)
}

func TestLoadDegradesToDefaults(t *testing.T) {
	t.Parallel()

	// Missing file.
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
	require.NotNil(t, cfg)
	assert.InDelta(t, 10000, cfg.Account.Balance, 1e-9)

	// Malformed numeric.
	cfg, err = Load(writeConfig(t, "account:\n  balance: not-a-number\n"))
	assert.Error(t, err)
	require.NotNil(t, cfg)
	assert.InDelta(t, 10000, cfg.Account.Balance, 1e-9)

	// Out-of-range value fails validation and resolves to defaults.
	cfg, err = Load(writeConfig(t, "strength:\n  window: -5\n"))
	assert.Error(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, 20, cfg.Strength.Window)

	// Unknown journal type likewise.
	cfg, err = Load(writeConfig(t, "journal:\n  type: parquet\n"))
	assert.Error(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, "none", cfg.Journal.Type)
}

func TestSaveRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out.yaml")
	cfg := Default()
	cfg.Account.Balance = 42000
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.InDelta(t, 42000, loaded.Account.Balance, 1e-9)
	assert.Equal(t, cfg.Risk.MaxConcurrent, loaded.Risk.MaxConcurrent)
}
