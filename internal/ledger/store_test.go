package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestOpenAndCloseTrade(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	rec := &TradeRecord{
		Symbol:     "BTCUSDT",
		Side:       "LONG",
		EntryPrice: 50000,
		Quantity:   0.004,
		Leverage:   5,
		SLPrice:    49000,
		TPPrice:    52500,
		Notional:   200,
		TraceID:    "trace-1",
	}
	require.NoError(t, l.OpenTrade(ctx, rec))
	require.NotZero(t, rec.ID)
	assert.Equal(t, TradeStatusOpen, rec.Status)

	open, err := l.LatestOpenTrade(ctx)
	require.NoError(t, err)
	require.NotNil(t, open)
	assert.Equal(t, rec.ID, open.ID)

	closedAt := time.Now()
	require.NoError(t, l.CloseTrade(ctx, rec.ID, 52500, closedAt, 10, 50))

	open, err = l.LatestOpenTrade(ctx)
	require.NoError(t, err)
	assert.Nil(t, open)

	closed, err := l.ClosedTrades(ctx, 10)
	require.NoError(t, err)
	require.Len(t, closed, 1)
	assert.Equal(t, TradeStatusClosed, closed[0].Status)
	assert.InDelta(t, 52500.0, closed[0].ExitPrice, 1e-9)
	assert.InDelta(t, 10.0, closed[0].ProfitLoss, 1e-9)
}

// Exit fields are written once. A second close must fail, not overwrite.
func TestCloseTradeIsWriteOnce(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	rec := &TradeRecord{Symbol: "BTCUSDT", Side: "SHORT", EntryPrice: 60000, Quantity: 0.002}
	require.NoError(t, l.OpenTrade(ctx, rec))
	require.NoError(t, l.CloseTrade(ctx, rec.ID, 58000, time.Now(), 4, 3.3))

	err := l.CloseTrade(ctx, rec.ID, 59000, time.Now(), 2, 1.6)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPersistence)

	closed, err := l.ClosedTrades(ctx, 0)
	require.NoError(t, err)
	require.Len(t, closed, 1)
	assert.InDelta(t, 58000.0, closed[0].ExitPrice, 1e-9)
}

func TestCloseUnknownTradeFails(t *testing.T) {
	l := newTestLedger(t)
	err := l.CloseTrade(context.Background(), 999, 1, time.Now(), 0, 0)
	assert.ErrorIs(t, err, ErrPersistence)
}

func TestAppendDecisionAndLink(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	d := &Decision{
		TraceID:      "trace-2",
		Price:        50000,
		Direction:    "LONG",
		Conviction:   0.7,
		WinLossRatio: 2,
		Leverage:     5,
		SLPct:        0.02,
		TPPct:        0.05,
		Rationale:    "trend continuation",
	}
	require.NoError(t, l.AppendDecision(ctx, d))
	require.NotZero(t, d.ID)
	assert.NotZero(t, d.TSUnix)

	rec := &TradeRecord{Symbol: "BTCUSDT", Side: "LONG", TraceID: "trace-2"}
	require.NoError(t, l.OpenTrade(ctx, rec))
	require.NoError(t, l.LinkDecision(ctx, d.ID, rec.ID))

	decisions, err := l.RecentDecisions(ctx, 5)
	require.NoError(t, err)
	require.Len(t, decisions, 1)
	require.NotNil(t, decisions[0].TradeID)
	assert.Equal(t, rec.ID, *decisions[0].TradeID)
}

func TestStatsWindow(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	old := &TradeRecord{Symbol: "BTCUSDT", Side: "LONG", OpenedAtUnix: time.Now().Add(-30 * 24 * time.Hour).Unix()}
	require.NoError(t, l.OpenTrade(ctx, old))
	require.NoError(t, l.CloseTrade(ctx, old.ID, 1, time.Now(), -5, -1))

	recent := &TradeRecord{Symbol: "BTCUSDT", Side: "LONG"}
	require.NoError(t, l.OpenTrade(ctx, recent))
	require.NoError(t, l.CloseTrade(ctx, recent.ID, 1, time.Now(), 20, 2))

	all, err := l.Stats(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, all.TotalTrades)

	week, err := l.Stats(ctx, 7*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, week.TotalTrades)
	assert.InDelta(t, 20.0, week.TotalProfitLoss, 1e-9)
}
