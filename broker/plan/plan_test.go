package plan

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ufotrader/broker"
)

func TestProposeActionsConsumesFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
actions:
  - action: new_trade
    symbol: EURUSD
    direction: BUY
    volume: 0.1
  - action: close_trade
    trade_id: abc123
`), 0o644))

	oracle := NewFile(path)
	actions, err := oracle.ProposeActions(context.Background(), broker.OracleInput{})
	require.NoError(t, err)
	require.Len(t, actions, 2)
	assert.Equal(t, broker.ActionNewTrade, actions[0].Kind)
	assert.Equal(t, "EURUSD", actions[0].Symbol)
	assert.InDelta(t, 0.1, actions[0].Volume, 1e-9)
	assert.Equal(t, broker.ActionCloseTrade, actions[1].Kind)
	assert.Equal(t, "abc123", actions[1].Ticket)

	// The file is consumed; the next cycle sees nothing.
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
	actions, err = oracle.ProposeActions(context.Background(), broker.OracleInput{})
	require.NoError(t, err)
	assert.Empty(t, actions)
}

func TestProposeActionsMalformedFileStays(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte("actions: [what"), 0o644))

	oracle := NewFile(path)
	_, err := oracle.ProposeActions(context.Background(), broker.OracleInput{})
	require.Error(t, err)

	_, statErr := os.Stat(path)
	assert.NoError(t, statErr)
}
