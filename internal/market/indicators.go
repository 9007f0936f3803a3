package market

import (
	"github.com/markcheno/go-talib"
)

// Indicators is the derived-signal digest attached to each timeframe. Only
// the latest value of each indicator is kept; the oracle gets the raw candles
// too, so the digest is a summary, not the full curve.
type Indicators struct {
	RSI14 float64 `json:"rsi_14,omitempty"`
	EMA20 float64 `json:"ema_20,omitempty"`
	EMA50 float64 `json:"ema_50,omitempty"`
	ATR14 float64 `json:"atr_14,omitempty"`
}

// ComputeIndicators derives the digest from candle history. Indicators whose
// warmup window exceeds the available history are left at zero and omitted
// from the JSON payload.
func ComputeIndicators(candles []Candle) Indicators {
	var ind Indicators
	n := len(candles)
	if n == 0 {
		return ind
	}

	closes := make([]float64, n)
	highs := make([]float64, n)
	lows := make([]float64, n)
	for i, c := range candles {
		closes[i] = c.Close
		highs[i] = c.High
		lows[i] = c.Low
	}

	if n > 14 {
		rsi := talib.Rsi(closes, 14)
		ind.RSI14 = rsi[len(rsi)-1]
		atr := talib.Atr(highs, lows, closes, 14)
		ind.ATR14 = atr[len(atr)-1]
	}
	if n >= 20 {
		ema := talib.Ema(closes, 20)
		ind.EMA20 = ema[len(ema)-1]
	}
	if n >= 50 {
		ema := talib.Ema(closes, 50)
		ind.EMA50 = ema[len(ema)-1]
	}
	return ind
}
