package oracle

import (
	"context"
	"errors"

	"github.com/Ginaitlady/AI-auto-trading-Bitcoin/internal/market"
)

// Side is the oracle's directional call for the next cycle.
type Side string

const (
	SideLong       Side = "LONG"
	SideShort      Side = "SHORT"
	SideNoPosition Side = "NO_POSITION"
)

// ErrInvalidResponse marks any oracle reply that cannot be turned into a
// well-formed recommendation: unparseable JSON, schema violations, or values
// outside their documented ranges. The engine maps it to NO_POSITION.
var ErrInvalidResponse = errors.New("invalid oracle response")

// Recommendation is one validated decision. All percentage fields are
// fractions (0.02 = 2%), conviction is a probability estimate in [0,1] and
// WinLossRatio is the expected reward per unit of risk.
type Recommendation struct {
	Side          Side    `json:"side"`
	Conviction    float64 `json:"conviction"`
	WinLossRatio  float64 `json:"win_loss_ratio"`
	Leverage      int     `json:"leverage"`
	StopLossPct   float64 `json:"stop_loss_pct"`
	TakeProfitPct float64 `json:"take_profit_pct"`
	Rationale     string  `json:"rationale"`

	TraceID string `json:"trace_id"`
	Raw     string `json:"-"` // verbatim model output, persisted with the decision
}

// Flat reports whether the recommendation declines to take a position.
func (r Recommendation) Flat() bool { return r.Side == SideNoPosition }

// Decider turns a market snapshot into a recommendation.
type Decider interface {
	Decide(ctx context.Context, snap *market.Snapshot) (Recommendation, error)
}

// ModelProvider is the raw chat transport behind the decider.
type ModelProvider interface {
	Call(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}
