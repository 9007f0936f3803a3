package exchange

// PositionSide is the exchange-reported direction of an open position.
type PositionSide string

const (
	PositionLong  PositionSide = "LONG"
	PositionShort PositionSide = "SHORT"
)

// OpenPosition is the exchange's view of a held position. Quantity is always
// positive; Side carries the direction.
type OpenPosition struct {
	Symbol        string
	Side          PositionSide
	Quantity      float64
	EntryPrice    float64
	MarkPrice     float64
	Leverage      int
	UnrealizedPnL float64
}

// OrderSide and OrderType mirror the futures order surface this bot uses.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

type OrderType string

const (
	OrderTypeMarket     OrderType = "MARKET"
	OrderTypeStopMarket OrderType = "STOP_MARKET"
	OrderTypeTakeProfit OrderType = "TAKE_PROFIT_MARKET"
)

// Order is the exchange's view of one order, open or filled.
type Order struct {
	ID           int64
	Symbol       string
	Side         OrderSide
	Type         OrderType
	Quantity     float64
	TriggerPrice float64
	Status       string
	AvgFillPrice float64
}

// Filled reports whether the exchange considers the order fully executed.
func (o Order) Filled() bool { return o.Status == "FILLED" }

// PlacedOrder is the acknowledgment of a submitted order.
type PlacedOrder struct {
	ID int64
}
