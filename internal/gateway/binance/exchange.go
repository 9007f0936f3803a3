package binance

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/adshao/go-binance/v2/futures"

	"github.com/Ginaitlady/AI-auto-trading-Bitcoin/internal/gateway/exchange"
)

const quoteAsset = "USDT"

// Exchange implements the order and account surface on Binance USDT-margined
// futures. Quantities are submitted at 0.001 precision and trigger prices at
// 0.01, matching the BTCUSDT contract filters.
type Exchange struct {
	client *futures.Client
}

func NewExchange(cfg Config) *Exchange {
	final := cfg.withDefaults()
	if final.Testnet {
		futures.UseTestnet = true
	}
	client := futures.NewClient(final.APIKey, final.APISecret)
	client.HTTPClient = &http.Client{Timeout: final.HTTPTimeout}
	return &Exchange{client: client}
}

func (e *Exchange) Name() string { return "binance-futures" }

func (e *Exchange) AccountEquity(ctx context.Context) (float64, error) {
	balances, err := e.client.NewGetBalanceService().Do(ctx)
	if err != nil {
		return 0, err
	}
	for _, b := range balances {
		if b != nil && b.Asset == quoteAsset {
			return parseFloat(b.AvailableBalance), nil
		}
	}
	return 0, fmt.Errorf("no %s balance in account", quoteAsset)
}

func (e *Exchange) OpenPositions(ctx context.Context, symbol string) ([]exchange.OpenPosition, error) {
	risks, err := e.client.NewGetPositionRiskService().Symbol(symbol).Do(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]exchange.OpenPosition, 0, 1)
	for _, r := range risks {
		if r == nil {
			continue
		}
		amt := parseFloat(r.PositionAmt)
		if amt == 0 {
			continue
		}
		side := exchange.PositionLong
		if amt < 0 {
			side = exchange.PositionShort
			amt = -amt
		}
		leverage, _ := strconv.Atoi(strings.TrimSpace(r.Leverage))
		out = append(out, exchange.OpenPosition{
			Symbol:        r.Symbol,
			Side:          side,
			Quantity:      amt,
			EntryPrice:    parseFloat(r.EntryPrice),
			MarkPrice:     parseFloat(r.MarkPrice),
			Leverage:      leverage,
			UnrealizedPnL: parseFloat(r.UnRealizedProfit),
		})
	}
	return out, nil
}

func (e *Exchange) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	_, err := e.client.NewChangeLeverageService().
		Symbol(symbol).
		Leverage(leverage).
		Do(ctx)
	return err
}

func (e *Exchange) PlaceMarketOrder(ctx context.Context, symbol string, side exchange.OrderSide, quantity float64) (exchange.PlacedOrder, error) {
	resp, err := e.client.NewCreateOrderService().
		Symbol(symbol).
		Side(futures.SideType(side)).
		Type(futures.OrderTypeMarket).
		Quantity(formatQuantity(quantity)).
		Do(ctx)
	if err != nil {
		return exchange.PlacedOrder{}, err
	}
	return exchange.PlacedOrder{ID: resp.OrderID}, nil
}

func (e *Exchange) PlaceStopOrder(ctx context.Context, symbol string, side exchange.OrderSide, triggerPrice float64) (exchange.PlacedOrder, error) {
	return e.placeTrigger(ctx, symbol, side, futures.OrderTypeStopMarket, triggerPrice)
}

func (e *Exchange) PlaceTakeProfitOrder(ctx context.Context, symbol string, side exchange.OrderSide, triggerPrice float64) (exchange.PlacedOrder, error) {
	return e.placeTrigger(ctx, symbol, side, futures.OrderTypeTakeProfitMarket, triggerPrice)
}

// placeTrigger submits a close-position trigger order: when the mark price
// crosses the trigger, the whole position is flattened at market.
func (e *Exchange) placeTrigger(ctx context.Context, symbol string, side exchange.OrderSide, orderType futures.OrderType, triggerPrice float64) (exchange.PlacedOrder, error) {
	resp, err := e.client.NewCreateOrderService().
		Symbol(symbol).
		Side(futures.SideType(side)).
		Type(orderType).
		StopPrice(formatPrice(triggerPrice)).
		ClosePosition(true).
		Do(ctx)
	if err != nil {
		return exchange.PlacedOrder{}, err
	}
	return exchange.PlacedOrder{ID: resp.OrderID}, nil
}

func (e *Exchange) GetOrder(ctx context.Context, symbol string, orderID int64) (exchange.Order, error) {
	o, err := e.client.NewGetOrderService().
		Symbol(symbol).
		OrderID(orderID).
		Do(ctx)
	if err != nil {
		return exchange.Order{}, err
	}
	return convertOrder(o), nil
}

func (e *Exchange) OpenOrders(ctx context.Context, symbol string) ([]exchange.Order, error) {
	orders, err := e.client.NewListOpenOrdersService().Symbol(symbol).Do(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]exchange.Order, 0, len(orders))
	for _, o := range orders {
		if o == nil {
			continue
		}
		out = append(out, convertOrder(o))
	}
	return out, nil
}

func (e *Exchange) CancelOrder(ctx context.Context, symbol string, orderID int64) error {
	_, err := e.client.NewCancelOrderService().
		Symbol(symbol).
		OrderID(orderID).
		Do(ctx)
	return err
}

func (e *Exchange) CancelAllOrders(ctx context.Context, symbol string) error {
	return e.client.NewCancelAllOpenOrdersService().Symbol(symbol).Do(ctx)
}

func convertOrder(o *futures.Order) exchange.Order {
	return exchange.Order{
		ID:           o.OrderID,
		Symbol:       o.Symbol,
		Side:         exchange.OrderSide(o.Side),
		Type:         exchange.OrderType(o.Type),
		Quantity:     parseFloat(o.OrigQuantity),
		TriggerPrice: parseFloat(o.StopPrice),
		Status:       string(o.Status),
		AvgFillPrice: parseFloat(o.AvgPrice),
	}
}

func formatQuantity(q float64) string {
	return strconv.FormatFloat(q, 'f', 3, 64)
}

func formatPrice(p float64) string {
	return strconv.FormatFloat(p, 'f', 2, 64)
}
