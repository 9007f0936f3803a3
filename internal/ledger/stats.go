package ledger

import (
	"math"
	"sort"
)

// Leverage tiers follow the oracle guidance bands: conservative 1-3x,
// moderate 4-8x, aggressive 9x and up.
var leverageTiers = []struct {
	Name string
	Min  int
	Max  int
}{
	{"1-3x", 1, 3},
	{"4-8x", 4, 8},
	{"9x+", 9, math.MaxInt32},
}

type TierStats struct {
	Tier          string  `json:"tier"`
	Trades        int     `json:"trades"`
	AvgProfitLoss float64 `json:"avg_profit_loss"`
}

type DirectionStats struct {
	Trades           int     `json:"trades"`
	Wins             int     `json:"wins"`
	Losses           int     `json:"losses"`
	WinRate          float64 `json:"win_rate"`
	TotalProfitLoss  float64 `json:"total_profit_loss"`
	AvgProfitLossPct float64 `json:"avg_profit_loss_pct"`
}

// HistoricalStats is a derived, read-only aggregate over closed trades. It is
// never persisted; it is recomputed from the ledger whenever needed.
type HistoricalStats struct {
	TotalTrades      int     `json:"total_trades"`
	WinningTrades    int     `json:"winning_trades"`
	LosingTrades     int     `json:"losing_trades"`
	WinRate          float64 `json:"win_rate"` // percent
	TotalProfitLoss  float64 `json:"total_profit_loss"`
	AvgProfitLossPct float64 `json:"avg_profit_loss_pct"`
	MaxProfitPct     float64 `json:"max_profit_pct"`
	MaxLossPct       float64 `json:"max_loss_pct"`
	ProfitFactor     float64 `json:"profit_factor"`
	SharpeRatio      float64 `json:"sharpe_ratio"`

	ByLeverageTier []TierStats               `json:"by_leverage_tier"`
	ByDirection    map[string]DirectionStats `json:"by_direction"`
}

// ComputeStats reduces a set of closed trade records to aggregate statistics.
// The reduction is commutative and associative over the record set, so the
// result is independent of append order and safe to recompute every cycle.
func ComputeStats(recs []TradeRecord) HistoricalStats {
	stats := HistoricalStats{
		ByDirection: make(map[string]DirectionStats),
	}
	if len(recs) == 0 {
		return stats
	}

	var grossProfit, grossLoss, sumPct, sumPctSq float64
	tierSum := make(map[string]float64)
	tierCount := make(map[string]int)

	for _, r := range recs {
		stats.TotalTrades++
		stats.TotalProfitLoss += r.ProfitLoss
		sumPct += r.ProfitLossPct
		sumPctSq += r.ProfitLossPct * r.ProfitLossPct

		if r.ProfitLoss > 0 {
			stats.WinningTrades++
			grossProfit += r.ProfitLoss
		} else if r.ProfitLoss < 0 {
			stats.LosingTrades++
			grossLoss += -r.ProfitLoss
		}
		if r.ProfitLossPct > stats.MaxProfitPct {
			stats.MaxProfitPct = r.ProfitLossPct
		}
		if r.ProfitLossPct < stats.MaxLossPct {
			stats.MaxLossPct = r.ProfitLossPct
		}

		tier := tierFor(r.Leverage)
		tierSum[tier] += r.ProfitLoss
		tierCount[tier]++

		dir := stats.ByDirection[r.Side]
		dir.Trades++
		if r.ProfitLoss > 0 {
			dir.Wins++
		} else if r.ProfitLoss < 0 {
			dir.Losses++
		}
		dir.TotalProfitLoss += r.ProfitLoss
		dir.AvgProfitLossPct += r.ProfitLossPct // running sum, divided below
		stats.ByDirection[r.Side] = dir
	}

	n := float64(stats.TotalTrades)
	stats.WinRate = float64(stats.WinningTrades) / n * 100
	stats.AvgProfitLossPct = sumPct / n
	if grossLoss > 0 {
		stats.ProfitFactor = grossProfit / grossLoss
	} else {
		// No losing trades yet: report gross profit so the value stays
		// finite and JSON-encodable.
		stats.ProfitFactor = grossProfit
	}
	stats.SharpeRatio = sharpe(sumPct, sumPctSq, n)

	for dirName, dir := range stats.ByDirection {
		dir.AvgProfitLossPct /= float64(dir.Trades)
		dir.WinRate = float64(dir.Wins) / float64(dir.Trades) * 100
		stats.ByDirection[dirName] = dir
	}

	for _, tier := range leverageTiers {
		if c := tierCount[tier.Name]; c > 0 {
			stats.ByLeverageTier = append(stats.ByLeverageTier, TierStats{
				Tier:          tier.Name,
				Trades:        c,
				AvgProfitLoss: tierSum[tier.Name] / float64(c),
			})
		}
	}
	sort.Slice(stats.ByLeverageTier, func(i, j int) bool {
		return stats.ByLeverageTier[i].Tier < stats.ByLeverageTier[j].Tier
	})

	return stats
}

// sharpe computes mean/stddev of per-trade return percentages (population
// stddev, no annualization). Zero when fewer than two trades or flat returns.
func sharpe(sum, sumSq, n float64) float64 {
	if n < 2 {
		return 0
	}
	mean := sum / n
	variance := sumSq/n - mean*mean
	if variance <= 0 {
		return 0
	}
	return mean / math.Sqrt(variance)
}

func tierFor(leverage int) string {
	for _, t := range leverageTiers {
		if leverage >= t.Min && leverage <= t.Max {
			return t.Name
		}
	}
	return leverageTiers[0].Name
}
