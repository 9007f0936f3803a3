package oracle

import "fmt"

// validateRecommendation range-checks a decoded reply. NO_POSITION needs no
// risk parameters; a directional call must carry a complete, sane set.
func validateRecommendation(r Recommendation) error {
	switch r.Side {
	case SideNoPosition:
		return nil
	case SideLong, SideShort:
	default:
		return fmt.Errorf("%w: unknown direction %q", ErrInvalidResponse, r.Side)
	}

	if r.Conviction < 0 || r.Conviction > 1 {
		return fmt.Errorf("%w: conviction %.4f outside [0,1]", ErrInvalidResponse, r.Conviction)
	}
	if r.WinLossRatio <= 0 {
		return fmt.Errorf("%w: win_loss_ratio must be > 0, got %.4f", ErrInvalidResponse, r.WinLossRatio)
	}
	if r.Leverage < 1 || r.Leverage > 20 {
		return fmt.Errorf("%w: leverage %d outside [1,20]", ErrInvalidResponse, r.Leverage)
	}
	if r.StopLossPct <= 0 || r.StopLossPct >= 1 {
		return fmt.Errorf("%w: stop_loss_percentage %.4f outside (0,1)", ErrInvalidResponse, r.StopLossPct)
	}
	if r.TakeProfitPct <= 0 || r.TakeProfitPct >= 1 {
		return fmt.Errorf("%w: take_profit_percentage %.4f outside (0,1)", ErrInvalidResponse, r.TakeProfitPct)
	}
	return nil
}
