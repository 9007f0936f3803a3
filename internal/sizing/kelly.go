package sizing

import (
	"github.com/shopspring/decimal"

	"github.com/Ginaitlady/AI-auto-trading-Bitcoin/internal/oracle"
)

// SkipReason explains why a cycle produced no order. Empty means "trade".
type SkipReason string

const (
	SkipNone               SkipReason = ""
	SkipNoDirection        SkipReason = "no directional call"
	SkipLowConviction      SkipReason = "conviction below threshold"
	SkipNonPositiveKelly   SkipReason = "kelly fraction not positive"
	SkipBelowMinNotional   SkipReason = "notional below exchange minimum"
	SkipInsufficientMargin SkipReason = "required margin exceeds equity"
)

// SizedOrder is the capital commitment for one entry, before price and
// quantity are known.
type SizedOrder struct {
	Notional decimal.Decimal // position value in quote currency
	Fraction decimal.Decimal // half-Kelly fraction of equity actually used
	Margin   decimal.Decimal // Notional / Leverage
	Leverage int
}

// Policy sizes positions with the half-Kelly criterion. Full Kelly
// f* = (p*b - q) / b is halved for drawdown control, then clamped to [0,1].
type Policy struct {
	MinConviction decimal.Decimal
	MinNotional   decimal.Decimal
	MaxLeverage   int
}

func NewPolicy(minConviction, minNotional float64, maxLeverage int) Policy {
	return Policy{
		MinConviction: decimal.NewFromFloat(minConviction),
		MinNotional:   decimal.NewFromFloat(minNotional),
		MaxLeverage:   maxLeverage,
	}
}

var (
	two  = decimal.NewFromInt(2)
	one  = decimal.NewFromInt(1)
	zero = decimal.Zero
)

// Size turns a directional recommendation plus current equity into a sized
// order, or a reason to stand aside. It never errors: every rejection is a
// deliberate skip, not a fault.
func (pl Policy) Size(rec oracle.Recommendation, equity decimal.Decimal) (SizedOrder, SkipReason) {
	if rec.Flat() {
		return SizedOrder{}, SkipNoDirection
	}

	p := decimal.NewFromFloat(rec.Conviction)
	if p.LessThan(pl.MinConviction) {
		return SizedOrder{}, SkipLowConviction
	}

	b := decimal.NewFromFloat(rec.WinLossRatio)
	q := one.Sub(p)
	// f* = (p*b - q) / b
	full := p.Mul(b).Sub(q).Div(b)
	if full.LessThanOrEqual(zero) {
		return SizedOrder{}, SkipNonPositiveKelly
	}

	half := full.Div(two)
	if half.GreaterThan(one) {
		half = one
	}

	notional := equity.Mul(half)
	if notional.LessThan(pl.MinNotional) {
		return SizedOrder{}, SkipBelowMinNotional
	}

	leverage := rec.Leverage
	if leverage < 1 {
		leverage = 1
	}
	if pl.MaxLeverage > 0 && leverage > pl.MaxLeverage {
		leverage = pl.MaxLeverage
	}
	margin := notional.Div(decimal.NewFromInt(int64(leverage)))
	if margin.GreaterThan(equity) {
		return SizedOrder{}, SkipInsufficientMargin
	}

	return SizedOrder{
		Notional: notional,
		Fraction: half,
		Margin:   margin,
		Leverage: leverage,
	}, SkipNone
}
