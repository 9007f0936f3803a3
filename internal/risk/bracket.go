package risk

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Ginaitlady/AI-auto-trading-Bitcoin/internal/oracle"
)

// ErrMalformedRiskLevels marks a bracket whose protective prices ended up on
// the wrong side of the entry after rounding. Such an order set must never
// reach the exchange.
var ErrMalformedRiskLevels = errors.New("malformed risk levels")

// pricePlaces is the exchange tick precision for trigger prices.
const pricePlaces = 2

// BracketOrderSet is one entry plus its two protective orders. The stop and
// take profit close the whole position, whichever triggers first.
type BracketOrderSet struct {
	Side       oracle.Side
	EntryPrice decimal.Decimal
	Quantity   decimal.Decimal
	StopLoss   decimal.Decimal
	TakeProfit decimal.Decimal
}

// Compose derives protective prices from the entry reference price and the
// percentage offsets. LONG: stop below entry, take profit above. SHORT is
// mirrored. Prices are rounded to tick precision and the side invariants are
// re-checked after rounding.
func Compose(side oracle.Side, entryPrice, quantity decimal.Decimal, slPct, tpPct float64) (BracketOrderSet, error) {
	if side != oracle.SideLong && side != oracle.SideShort {
		return BracketOrderSet{}, fmt.Errorf("%w: side %q cannot carry a bracket", ErrMalformedRiskLevels, side)
	}
	if entryPrice.LessThanOrEqual(decimal.Zero) {
		return BracketOrderSet{}, fmt.Errorf("%w: entry price %s not positive", ErrMalformedRiskLevels, entryPrice)
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return BracketOrderSet{}, fmt.Errorf("%w: quantity %s not positive", ErrMalformedRiskLevels, quantity)
	}
	if slPct <= 0 || slPct >= 1 || tpPct <= 0 || tpPct >= 1 {
		return BracketOrderSet{}, fmt.Errorf("%w: offsets sl=%.4f tp=%.4f outside (0,1)", ErrMalformedRiskLevels, slPct, tpPct)
	}

	sl := decimal.NewFromFloat(slPct)
	tp := decimal.NewFromFloat(tpPct)
	one := decimal.NewFromInt(1)

	var stop, take decimal.Decimal
	switch side {
	case oracle.SideLong:
		stop = entryPrice.Mul(one.Sub(sl))
		take = entryPrice.Mul(one.Add(tp))
	case oracle.SideShort:
		stop = entryPrice.Mul(one.Add(sl))
		take = entryPrice.Mul(one.Sub(tp))
	}
	stop = stop.Round(pricePlaces)
	take = take.Round(pricePlaces)

	// Rounding at tick precision can collapse a tiny offset onto the entry.
	switch side {
	case oracle.SideLong:
		if !stop.LessThan(entryPrice) || !take.GreaterThan(entryPrice) {
			return BracketOrderSet{}, fmt.Errorf("%w: long bracket sl=%s entry=%s tp=%s", ErrMalformedRiskLevels, stop, entryPrice, take)
		}
	case oracle.SideShort:
		if !stop.GreaterThan(entryPrice) || !take.LessThan(entryPrice) {
			return BracketOrderSet{}, fmt.Errorf("%w: short bracket tp=%s entry=%s sl=%s", ErrMalformedRiskLevels, take, entryPrice, stop)
		}
	}

	return BracketOrderSet{
		Side:       side,
		EntryPrice: entryPrice,
		Quantity:   quantity,
		StopLoss:   stop,
		TakeProfit: take,
	}, nil
}
