package binance

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2/futures"

	"github.com/Ginaitlady/AI-auto-trading-Bitcoin/internal/market"
	"github.com/Ginaitlady/AI-auto-trading-Bitcoin/internal/scheduler"
)

const maxHistoryLimit = 1500

// Source implements market.Source on the Binance USDT-margined futures API.
type Source struct {
	client *futures.Client
}

func NewSource(cfg Config) *Source {
	final := cfg.withDefaults()
	if final.Testnet {
		futures.UseTestnet = true
	}
	client := futures.NewClient(final.APIKey, final.APISecret)
	client.HTTPClient = &http.Client{Timeout: final.HTTPTimeout}
	return &Source{client: client}
}

func (s *Source) FetchHistory(ctx context.Context, symbol, interval string, limit int) ([]market.Candle, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	interval = strings.ToLower(strings.TrimSpace(interval))
	if interval == "" {
		return nil, fmt.Errorf("interval is required")
	}

	kls, err := s.client.NewKlinesService().
		Symbol(symbol).
		Interval(interval).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]market.Candle, 0, len(kls))
	for _, kl := range kls {
		if kl == nil {
			continue
		}
		out = append(out, market.Candle{
			OpenTime:  kl.OpenTime,
			CloseTime: kl.CloseTime,
			Open:      parseFloat(kl.Open),
			High:      parseFloat(kl.High),
			Low:       parseFloat(kl.Low),
			Close:     parseFloat(kl.Close),
			Volume:    parseFloat(kl.Volume),
			Trades:    kl.TradeNum,
		})
	}
	if dur, ok := scheduler.ParseIntervalDuration(interval); ok {
		out = dropUnclosed(out, dur)
	}
	return out, nil
}

// dropUnclosed removes a trailing kline whose window has not closed yet, so
// indicators never see a half-formed candle. The interval bounds how far in
// the future a legitimate close time can be.
func dropUnclosed(candles []market.Candle, interval time.Duration) []market.Candle {
	if len(candles) == 0 || interval <= 0 {
		return candles
	}
	last := candles[len(candles)-1]
	closeAt := time.UnixMilli(last.CloseTime)
	if time.Now().Before(closeAt) {
		return candles[:len(candles)-1]
	}
	return candles
}

func (s *Source) LastPrice(ctx context.Context, symbol string) (float64, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	prices, err := s.client.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		return 0, err
	}
	for _, p := range prices {
		if p != nil && strings.EqualFold(p.Symbol, symbol) {
			v := parseFloat(p.Price)
			if v <= 0 {
				return 0, fmt.Errorf("non-positive price for %s", symbol)
			}
			return v, nil
		}
	}
	return 0, fmt.Errorf("no price returned for %s", symbol)
}

func parseFloat(v string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(v), 64)
	return f
}
