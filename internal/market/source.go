package market

import "context"

// Source provides candle history and last trade price for one symbol. The
// engine polls it once per cycle; there is no streaming path.
type Source interface {
	FetchHistory(ctx context.Context, symbol, interval string, limit int) ([]Candle, error)
	LastPrice(ctx context.Context, symbol string) (float64, error)
}

// NewsSource returns a headline digest for the snapshot. Implementations must
// degrade gracefully: a failed fetch yields an empty digest, never an error
// that would block the cycle.
type NewsSource interface {
	FetchDigest(ctx context.Context) []NewsItem
}
