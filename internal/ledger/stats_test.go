package ledger

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func closedTrade(side string, leverage int, pl, plPct float64) TradeRecord {
	return TradeRecord{
		Side:          side,
		Leverage:      leverage,
		Status:        TradeStatusClosed,
		ProfitLoss:    pl,
		ProfitLossPct: plPct,
	}
}

func TestComputeStatsEmpty(t *testing.T) {
	stats := ComputeStats(nil)
	assert.Equal(t, 0, stats.TotalTrades)
	assert.Zero(t, stats.WinRate)
	assert.Zero(t, stats.ProfitFactor)
	assert.Empty(t, stats.ByLeverageTier)
	assert.Empty(t, stats.ByDirection)
}

func TestComputeStatsBasic(t *testing.T) {
	recs := []TradeRecord{
		closedTrade("LONG", 2, 50, 5),
		closedTrade("LONG", 2, -20, -2),
		closedTrade("SHORT", 10, 30, 3),
		closedTrade("SHORT", 5, -10, -1),
	}
	stats := ComputeStats(recs)

	assert.Equal(t, 4, stats.TotalTrades)
	assert.Equal(t, 2, stats.WinningTrades)
	assert.Equal(t, 2, stats.LosingTrades)
	assert.InDelta(t, 50.0, stats.WinRate, 1e-9)
	assert.InDelta(t, 50.0, stats.TotalProfitLoss, 1e-9)
	assert.InDelta(t, 80.0/30.0, stats.ProfitFactor, 1e-9)
	assert.InDelta(t, 5.0, stats.MaxProfitPct, 1e-9)
	assert.InDelta(t, -2.0, stats.MaxLossPct, 1e-9)
	assert.InDelta(t, 1.25, stats.AvgProfitLossPct, 1e-9)

	long := stats.ByDirection["LONG"]
	assert.Equal(t, 2, long.Trades)
	assert.Equal(t, 1, long.Wins)
	assert.InDelta(t, 50.0, long.WinRate, 1e-9)
	assert.InDelta(t, 30.0, long.TotalProfitLoss, 1e-9)
	assert.InDelta(t, 1.5, long.AvgProfitLossPct, 1e-9)

	short := stats.ByDirection["SHORT"]
	assert.Equal(t, 2, short.Trades)
	assert.InDelta(t, 20.0, short.TotalProfitLoss, 1e-9)
}

func TestComputeStatsProfitFactorNoLosses(t *testing.T) {
	recs := []TradeRecord{
		closedTrade("LONG", 3, 40, 4),
		closedTrade("LONG", 3, 10, 1),
	}
	stats := ComputeStats(recs)
	assert.InDelta(t, 50.0, stats.ProfitFactor, 1e-9)
	assert.InDelta(t, 100.0, stats.WinRate, 1e-9)
}

func TestComputeStatsSharpe(t *testing.T) {
	// Single trade: undefined dispersion, sharpe stays zero.
	one := ComputeStats([]TradeRecord{closedTrade("LONG", 2, 10, 1)})
	assert.Zero(t, one.SharpeRatio)

	// Identical returns: zero variance, sharpe stays zero.
	flat := ComputeStats([]TradeRecord{
		closedTrade("LONG", 2, 10, 2),
		closedTrade("LONG", 2, 10, 2),
	})
	assert.Zero(t, flat.SharpeRatio)

	// Returns 2 and 4: mean 3, population stddev 1.
	mixed := ComputeStats([]TradeRecord{
		closedTrade("LONG", 2, 10, 2),
		closedTrade("LONG", 2, 20, 4),
	})
	assert.InDelta(t, 3.0, mixed.SharpeRatio, 1e-9)
}

func TestComputeStatsLeverageTiers(t *testing.T) {
	recs := []TradeRecord{
		closedTrade("LONG", 1, 10, 1),
		closedTrade("LONG", 3, 20, 2),
		closedTrade("SHORT", 5, -15, -1.5),
		closedTrade("SHORT", 12, 40, 4),
	}
	stats := ComputeStats(recs)
	require.Len(t, stats.ByLeverageTier, 3)

	byName := map[string]TierStats{}
	for _, ts := range stats.ByLeverageTier {
		byName[ts.Tier] = ts
	}
	assert.Equal(t, 2, byName["1-3x"].Trades)
	assert.InDelta(t, 15.0, byName["1-3x"].AvgProfitLoss, 1e-9)
	assert.Equal(t, 1, byName["4-8x"].Trades)
	assert.InDelta(t, -15.0, byName["4-8x"].AvgProfitLoss, 1e-9)
	assert.Equal(t, 1, byName["9x+"].Trades)
	assert.InDelta(t, 40.0, byName["9x+"].AvgProfitLoss, 1e-9)
}

// The aggregate is a pure reduction over the record set, so shuffling the
// input must never change the result.
func TestComputeStatsOrderIndependent(t *testing.T) {
	recs := []TradeRecord{
		closedTrade("LONG", 2, 50, 5),
		closedTrade("SHORT", 8, -25, -2.5),
		closedTrade("LONG", 15, 12, 1.2),
		closedTrade("SHORT", 4, -7, -0.7),
		closedTrade("LONG", 1, 3, 0.3),
	}
	want := ComputeStats(recs)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		shuffled := make([]TradeRecord, len(recs))
		copy(shuffled, recs)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})
		got := ComputeStats(shuffled)
		assert.Equal(t, want, got)
	}
}
