package exchange

import "context"

// Exchange is the order and account surface the position machinery drives.
// Implementations wrap one venue; all operations are for the single symbol
// the bot trades.
type Exchange interface {
	Name() string

	// AccountEquity returns available quote-currency balance.
	AccountEquity(ctx context.Context) (float64, error)

	// OpenPositions returns every non-zero position for the symbol.
	OpenPositions(ctx context.Context, symbol string) ([]OpenPosition, error)

	SetLeverage(ctx context.Context, symbol string, leverage int) error

	// PlaceMarketOrder submits an immediate entry or exit.
	PlaceMarketOrder(ctx context.Context, symbol string, side OrderSide, quantity float64) (PlacedOrder, error)

	// PlaceStopOrder and PlaceTakeProfitOrder submit close-position trigger
	// orders that flatten the symbol when hit.
	PlaceStopOrder(ctx context.Context, symbol string, side OrderSide, triggerPrice float64) (PlacedOrder, error)
	PlaceTakeProfitOrder(ctx context.Context, symbol string, side OrderSide, triggerPrice float64) (PlacedOrder, error)

	GetOrder(ctx context.Context, symbol string, orderID int64) (Order, error)
	OpenOrders(ctx context.Context, symbol string) ([]Order, error)
	CancelOrder(ctx context.Context, symbol string, orderID int64) error
	CancelAllOrders(ctx context.Context, symbol string) error
}
