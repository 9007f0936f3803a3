package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Ginaitlady/AI-auto-trading-Bitcoin/internal/gateway/exchange"
	"github.com/Ginaitlady/AI-auto-trading-Bitcoin/internal/ledger"
	"github.com/Ginaitlady/AI-auto-trading-Bitcoin/internal/market"
	"github.com/Ginaitlady/AI-auto-trading-Bitcoin/internal/oracle"
	"github.com/Ginaitlady/AI-auto-trading-Bitcoin/internal/position"
	"github.com/Ginaitlady/AI-auto-trading-Bitcoin/internal/sizing"
)

type mockExchange struct {
	mock.Mock
}

func (m *mockExchange) Name() string { return "mock" }

func (m *mockExchange) AccountEquity(ctx context.Context) (float64, error) {
	args := m.Called(ctx)
	return args.Get(0).(float64), args.Error(1)
}

func (m *mockExchange) OpenPositions(ctx context.Context, symbol string) ([]exchange.OpenPosition, error) {
	args := m.Called(ctx, symbol)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]exchange.OpenPosition), args.Error(1)
}

func (m *mockExchange) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	return m.Called(ctx, symbol, leverage).Error(0)
}

func (m *mockExchange) PlaceMarketOrder(ctx context.Context, symbol string, side exchange.OrderSide, quantity float64) (exchange.PlacedOrder, error) {
	args := m.Called(ctx, symbol, side, quantity)
	return args.Get(0).(exchange.PlacedOrder), args.Error(1)
}

func (m *mockExchange) PlaceStopOrder(ctx context.Context, symbol string, side exchange.OrderSide, triggerPrice float64) (exchange.PlacedOrder, error) {
	args := m.Called(ctx, symbol, side, triggerPrice)
	return args.Get(0).(exchange.PlacedOrder), args.Error(1)
}

func (m *mockExchange) PlaceTakeProfitOrder(ctx context.Context, symbol string, side exchange.OrderSide, triggerPrice float64) (exchange.PlacedOrder, error) {
	args := m.Called(ctx, symbol, side, triggerPrice)
	return args.Get(0).(exchange.PlacedOrder), args.Error(1)
}

func (m *mockExchange) GetOrder(ctx context.Context, symbol string, orderID int64) (exchange.Order, error) {
	args := m.Called(ctx, symbol, orderID)
	return args.Get(0).(exchange.Order), args.Error(1)
}

func (m *mockExchange) OpenOrders(ctx context.Context, symbol string) ([]exchange.Order, error) {
	args := m.Called(ctx, symbol)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]exchange.Order), args.Error(1)
}

func (m *mockExchange) CancelOrder(ctx context.Context, symbol string, orderID int64) error {
	return m.Called(ctx, symbol, orderID).Error(0)
}

func (m *mockExchange) CancelAllOrders(ctx context.Context, symbol string) error {
	return m.Called(ctx, symbol).Error(0)
}

type stubSource struct {
	price float64
}

func (s *stubSource) FetchHistory(ctx context.Context, symbol, interval string, limit int) ([]market.Candle, error) {
	out := make([]market.Candle, limit)
	for i := range out {
		out[i] = market.Candle{Open: s.price, High: s.price, Low: s.price, Close: s.price}
	}
	return out, nil
}

func (s *stubSource) LastPrice(ctx context.Context, symbol string) (float64, error) {
	return s.price, nil
}

type stubDecider struct {
	mu    sync.Mutex
	rec   oracle.Recommendation
	err   error
	calls int
	block chan struct{} // when set, Decide waits until closed
}

func (d *stubDecider) Decide(ctx context.Context, snap *market.Snapshot) (oracle.Recommendation, error) {
	d.mu.Lock()
	d.calls++
	block := d.block
	d.mu.Unlock()
	if block != nil {
		<-block
	}
	return d.rec, d.err
}

func (d *stubDecider) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

type testRig struct {
	engine  *Engine
	ex      *mockExchange
	store   *ledger.Ledger
	decider *stubDecider
}

func newTestRig(t *testing.T, decider *stubDecider, price float64) *testRig {
	t.Helper()
	store, err := ledger.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ex := new(mockExchange)
	src := &stubSource{price: price}
	machine := position.NewMachine(ex, src, store, nil, "BTCUSDT", position.Options{
		ProtectBackoff:    time.Millisecond,
		ProtectBackoffMax: 2 * time.Millisecond,
		FillPollAttempts:  1,
		FillPollInterval:  time.Millisecond,
	})
	collector := market.NewCollector(src, nil, "BTCUSDT", 1, time.Millisecond)
	eng := New(Options{Symbol: "BTCUSDT", CycleInterval: time.Minute},
		collector, decider, ex, machine, store, sizing.NewPolicy(0.55, 100, 20))
	return &testRig{engine: eng, ex: ex, store: store, decider: decider}
}

func flatExchange(ex *mockExchange) {
	ex.On("OpenPositions", mock.Anything, "BTCUSDT").Return([]exchange.OpenPosition{}, nil)
	ex.On("OpenOrders", mock.Anything, "BTCUSDT").Return([]exchange.Order{}, nil)
}

func TestCycleOracleFailureStaysFlat(t *testing.T) {
	rig := newTestRig(t, &stubDecider{err: errors.New("status=503: overloaded")}, 50000)
	flatExchange(rig.ex)

	require.NoError(t, rig.engine.RunCycle(context.Background()))

	decisions, err := rig.store.RecentDecisions(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, decisions, 1)
	assert.Equal(t, string(oracle.SideNoPosition), decisions[0].Direction)
	rig.ex.AssertNotCalled(t, "PlaceMarketOrder", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	rig.ex.AssertNotCalled(t, "AccountEquity", mock.Anything)
}

func TestCycleSkipsWhenPositionOpen(t *testing.T) {
	decider := &stubDecider{rec: oracle.Recommendation{Side: oracle.SideNoPosition}}
	rig := newTestRig(t, decider, 50000)
	rig.ex.On("OpenPositions", mock.Anything, "BTCUSDT").Return([]exchange.OpenPosition{{
		Symbol: "BTCUSDT", Side: exchange.PositionLong, Quantity: 0.004, EntryPrice: 50000, Leverage: 5,
	}}, nil)

	require.NoError(t, rig.engine.RunCycle(context.Background()))

	assert.Equal(t, 0, decider.callCount())
	decisions, err := rig.store.RecentDecisions(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, decisions)
}

func TestCycleOpensPosition(t *testing.T) {
	decider := &stubDecider{rec: oracle.Recommendation{
		Side:          oracle.SideLong,
		Conviction:    0.65,
		WinLossRatio:  2,
		Leverage:      5,
		StopLossPct:   0.02,
		TakeProfitPct: 0.05,
		Rationale:     "breakout",
		TraceID:       "trace-e2e",
	}}
	rig := newTestRig(t, decider, 50000)
	flatExchange(rig.ex)
	rig.ex.On("AccountEquity", mock.Anything).Return(10000.0, nil)
	rig.ex.On("SetLeverage", mock.Anything, "BTCUSDT", 5).Return(nil)
	// Notional 2375 at 50000 rounds up to 0.048.
	rig.ex.On("PlaceMarketOrder", mock.Anything, "BTCUSDT", exchange.OrderSideBuy, 0.048).
		Return(exchange.PlacedOrder{ID: 11}, nil)
	rig.ex.On("GetOrder", mock.Anything, "BTCUSDT", int64(11)).
		Return(exchange.Order{ID: 11, Status: "FILLED", AvgFillPrice: 50000}, nil)
	rig.ex.On("PlaceStopOrder", mock.Anything, "BTCUSDT", exchange.OrderSideSell, 49000.0).
		Return(exchange.PlacedOrder{ID: 12}, nil)
	rig.ex.On("PlaceTakeProfitOrder", mock.Anything, "BTCUSDT", exchange.OrderSideSell, 52500.0).
		Return(exchange.PlacedOrder{ID: 13}, nil)

	require.NoError(t, rig.engine.RunCycle(context.Background()))

	rec, err := rig.store.LatestOpenTrade(context.Background())
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "LONG", rec.Side)
	assert.Equal(t, "trace-e2e", rec.TraceID)

	// The decision row is linked to the trade it opened.
	decisions, err := rig.store.RecentDecisions(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, decisions, 1)
	require.NotNil(t, decisions[0].TradeID)
	assert.Equal(t, rec.ID, *decisions[0].TradeID)
	rig.ex.AssertExpectations(t)
}

func TestCycleSkipsBelowConviction(t *testing.T) {
	decider := &stubDecider{rec: oracle.Recommendation{
		Side:          oracle.SideShort,
		Conviction:    0.40,
		WinLossRatio:  2,
		Leverage:      5,
		StopLossPct:   0.02,
		TakeProfitPct: 0.05,
	}}
	rig := newTestRig(t, decider, 50000)
	flatExchange(rig.ex)
	rig.ex.On("AccountEquity", mock.Anything).Return(10000.0, nil)

	require.NoError(t, rig.engine.RunCycle(context.Background()))

	// The decision is recorded even though no trade happened.
	decisions, err := rig.store.RecentDecisions(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, decisions, 1)
	rig.ex.AssertNotCalled(t, "PlaceMarketOrder", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// A tick that lands while the previous cycle is still running must return
// immediately instead of stacking a second concurrent cycle.
func TestRunCycleNonOverlapping(t *testing.T) {
	block := make(chan struct{})
	decider := &stubDecider{
		rec:   oracle.Recommendation{Side: oracle.SideNoPosition},
		block: block,
	}
	rig := newTestRig(t, decider, 50000)
	flatExchange(rig.ex)

	done := make(chan error, 1)
	go func() { done <- rig.engine.RunCycle(context.Background()) }()

	// Wait for the first cycle to reach the blocked decider.
	require.Eventually(t, func() bool { return decider.callCount() == 1 },
		time.Second, time.Millisecond)

	// Second tick while busy: returns at once, decider not called again.
	require.NoError(t, rig.engine.RunCycle(context.Background()))
	assert.Equal(t, 1, decider.callCount())

	close(block)
	require.NoError(t, <-done)
}
