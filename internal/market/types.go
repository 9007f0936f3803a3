package market

import (
	"github.com/Ginaitlady/AI-auto-trading-Bitcoin/internal/ledger"
)

// Candle is one closed kline. Times are exchange epoch milliseconds.
type Candle struct {
	OpenTime  int64   `json:"open_time"`
	CloseTime int64   `json:"close_time"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
	Trades    int64   `json:"trades,omitempty"`
}

// Timeframe pairs an exchange interval with how much history to pull for it.
type Timeframe struct {
	Interval string
	Limit    int
}

// Timeframes is the fixed multi-horizon view assembled every cycle: intraday
// structure, the daily session, and the broader swing context.
var Timeframes = []Timeframe{
	{Interval: "15m", Limit: 96},
	{Interval: "1h", Limit: 48},
	{Interval: "4h", Limit: 30},
}

// Series is the candles of one timeframe plus a digest of derived indicators.
type Series struct {
	Interval   string     `json:"interval"`
	Candles    []Candle   `json:"candles"`
	Indicators Indicators `json:"indicators"`
}

// NewsItem is a single headline from the news digest.
type NewsItem struct {
	Title string `json:"title"`
	Date  string `json:"date,omitempty"`
}

// Snapshot is everything the decision oracle sees for one cycle: price,
// multi-timeframe history, the news digest, and the bot's own track record.
type Snapshot struct {
	Timestamp int64                  `json:"timestamp"`
	Symbol    string                 `json:"symbol"`
	Price     float64                `json:"price"`
	Series    []Series               `json:"series"`
	News      []NewsItem             `json:"news,omitempty"`
	Stats     ledger.HistoricalStats `json:"performance"`
}
