package market

import (
	"context"
	"fmt"
	"time"

	"github.com/Ginaitlady/AI-auto-trading-Bitcoin/internal/ledger"
	"github.com/Ginaitlady/AI-auto-trading-Bitcoin/internal/logger"
)

// Collector assembles the per-cycle Snapshot from the exchange, the news
// digest, and the ledger's own performance history.
type Collector struct {
	source  Source
	news    NewsSource
	symbol  string
	retries int
	backoff time.Duration
}

func NewCollector(source Source, news NewsSource, symbol string, retries int, backoff time.Duration) *Collector {
	if retries <= 0 {
		retries = 3
	}
	if backoff <= 0 {
		backoff = 2 * time.Second
	}
	return &Collector{
		source:  source,
		news:    news,
		symbol:  symbol,
		retries: retries,
		backoff: backoff,
	}
}

// Collect builds the snapshot. Price and candle history are mandatory; the
// news digest is best effort and never fails the collection.
func (c *Collector) Collect(ctx context.Context, stats ledger.HistoricalStats) (*Snapshot, error) {
	price, err := withRetry(ctx, c, "last price", func() (float64, error) {
		return c.source.LastPrice(ctx, c.symbol)
	})
	if err != nil {
		return nil, fmt.Errorf("fetch last price for %s: %w", c.symbol, err)
	}

	series := make([]Series, 0, len(Timeframes))
	for _, tf := range Timeframes {
		candles, err := withRetry(ctx, c, tf.Interval+" history", func() ([]Candle, error) {
			return c.source.FetchHistory(ctx, c.symbol, tf.Interval, tf.Limit)
		})
		if err != nil {
			return nil, fmt.Errorf("fetch %s history for %s: %w", tf.Interval, c.symbol, err)
		}
		series = append(series, Series{
			Interval:   tf.Interval,
			Candles:    candles,
			Indicators: ComputeIndicators(candles),
		})
	}

	var news []NewsItem
	if c.news != nil {
		news = c.news.FetchDigest(ctx)
	}

	return &Snapshot{
		Timestamp: time.Now().Unix(),
		Symbol:    c.symbol,
		Price:     price,
		Series:    series,
		News:      news,
		Stats:     stats,
	}, nil
}

func withRetry[T any](ctx context.Context, c *Collector, what string, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error
	for attempt := 1; attempt <= c.retries; attempt++ {
		v, err := fn()
		if err == nil {
			return v, nil
		}
		lastErr = err
		logger.Warnf("[collector] %s attempt %d/%d failed: %v", what, attempt, c.retries, err)
		if attempt < c.retries {
			timer := time.NewTimer(c.backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return zero, ctx.Err()
			case <-timer.C:
			}
		}
	}
	return zero, lastErr
}
