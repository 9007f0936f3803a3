package market

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Ginaitlady/AI-auto-trading-Bitcoin/internal/ledger"
)

type mockSource struct {
	mock.Mock
}

func (m *mockSource) FetchHistory(ctx context.Context, symbol, interval string, limit int) ([]Candle, error) {
	args := m.Called(ctx, symbol, interval, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Candle), args.Error(1)
}

func (m *mockSource) LastPrice(ctx context.Context, symbol string) (float64, error) {
	args := m.Called(ctx, symbol)
	return args.Get(0).(float64), args.Error(1)
}

type stubNews struct {
	items []NewsItem
}

func (s *stubNews) FetchDigest(ctx context.Context) []NewsItem { return s.items }

func makeCandles(n int) []Candle {
	out := make([]Candle, n)
	for i := range out {
		out[i] = Candle{
			OpenTime:  int64(i) * 60_000,
			CloseTime: int64(i+1)*60_000 - 1,
			Open:      100 + float64(i),
			High:      101 + float64(i),
			Low:       99 + float64(i),
			Close:     100.5 + float64(i),
			Volume:    10,
		}
	}
	return out
}

func TestCollectBuildsSnapshot(t *testing.T) {
	src := new(mockSource)
	src.On("LastPrice", mock.Anything, "BTCUSDT").Return(50000.0, nil)
	for _, tf := range Timeframes {
		src.On("FetchHistory", mock.Anything, "BTCUSDT", tf.Interval, tf.Limit).
			Return(makeCandles(tf.Limit), nil)
	}
	news := &stubNews{items: []NewsItem{{Title: "headline"}}}

	c := NewCollector(src, news, "BTCUSDT", 1, time.Millisecond)
	snap, err := c.Collect(context.Background(), ledger.HistoricalStats{TotalTrades: 3})
	require.NoError(t, err)

	assert.Equal(t, "BTCUSDT", snap.Symbol)
	assert.InDelta(t, 50000.0, snap.Price, 1e-9)
	require.Len(t, snap.Series, len(Timeframes))
	assert.Equal(t, "15m", snap.Series[0].Interval)
	assert.Len(t, snap.Series[0].Candles, 96)
	assert.NotZero(t, snap.Series[0].Indicators.RSI14)
	assert.NotZero(t, snap.Series[0].Indicators.EMA50)
	require.Len(t, snap.News, 1)
	assert.Equal(t, 3, snap.Stats.TotalTrades)
	src.AssertExpectations(t)
}

func TestCollectRetriesTransientFailure(t *testing.T) {
	src := new(mockSource)
	src.On("LastPrice", mock.Anything, "BTCUSDT").Return(0.0, errors.New("timeout")).Once()
	src.On("LastPrice", mock.Anything, "BTCUSDT").Return(42000.0, nil).Once()
	for _, tf := range Timeframes {
		src.On("FetchHistory", mock.Anything, "BTCUSDT", tf.Interval, tf.Limit).
			Return(makeCandles(5), nil)
	}

	c := NewCollector(src, nil, "BTCUSDT", 3, time.Millisecond)
	snap, err := c.Collect(context.Background(), ledger.HistoricalStats{})
	require.NoError(t, err)
	assert.InDelta(t, 42000.0, snap.Price, 1e-9)
	src.AssertExpectations(t)
}

func TestCollectFailsWhenHistoryExhausted(t *testing.T) {
	src := new(mockSource)
	src.On("LastPrice", mock.Anything, "BTCUSDT").Return(42000.0, nil)
	src.On("FetchHistory", mock.Anything, "BTCUSDT", "15m", 96).
		Return(nil, errors.New("rate limited"))

	c := NewCollector(src, nil, "BTCUSDT", 2, time.Millisecond)
	_, err := c.Collect(context.Background(), ledger.HistoricalStats{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "15m history")
}

func TestComputeIndicatorsShortHistory(t *testing.T) {
	ind := ComputeIndicators(makeCandles(10))
	assert.Zero(t, ind.RSI14)
	assert.Zero(t, ind.EMA20)
	assert.Zero(t, ind.EMA50)

	ind = ComputeIndicators(makeCandles(30))
	assert.NotZero(t, ind.RSI14)
	assert.NotZero(t, ind.EMA20)
	assert.Zero(t, ind.EMA50)
}
