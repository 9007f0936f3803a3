package position

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/Ginaitlady/AI-auto-trading-Bitcoin/internal/gateway/exchange"
	"github.com/Ginaitlady/AI-auto-trading-Bitcoin/internal/gateway/notifier"
	"github.com/Ginaitlady/AI-auto-trading-Bitcoin/internal/ledger"
	"github.com/Ginaitlady/AI-auto-trading-Bitcoin/internal/logger"
	"github.com/Ginaitlady/AI-auto-trading-Bitcoin/internal/market"
	"github.com/Ginaitlady/AI-auto-trading-Bitcoin/internal/oracle"
	"github.com/Ginaitlady/AI-auto-trading-Bitcoin/internal/risk"
)

// Options are the operational knobs of the machine.
type Options struct {
	// Protective-order attachment retries forever with capped backoff; the
	// operator is alerted once attempts pass ProtectAlertAttempts.
	ProtectAlertAttempts int
	ProtectBackoff       time.Duration
	ProtectBackoffMax    time.Duration

	// Entry fill polling.
	FillPollAttempts int
	FillPollInterval time.Duration
}

func (o Options) withDefaults() Options {
	if o.ProtectAlertAttempts <= 0 {
		o.ProtectAlertAttempts = 8
	}
	if o.ProtectBackoff <= 0 {
		o.ProtectBackoff = time.Second
	}
	if o.ProtectBackoffMax <= 0 {
		o.ProtectBackoffMax = 30 * time.Second
	}
	if o.FillPollAttempts <= 0 {
		o.FillPollAttempts = 10
	}
	if o.FillPollInterval <= 0 {
		o.FillPollInterval = 500 * time.Millisecond
	}
	return o
}

// Machine tracks the single position through its lifecycle and keeps three
// views consistent: its own state, the exchange, and the ledger. The exchange
// is the source of truth; reconciliation always adopts what it reports.
type Machine struct {
	ex     exchange.Exchange
	source market.Source
	store  *ledger.Ledger
	notify notifier.Notifier
	symbol string
	opts   Options

	mu    sync.Mutex
	state State
	trade *ledger.TradeRecord

	sleep func(ctx context.Context, d time.Duration) bool
}

func NewMachine(ex exchange.Exchange, source market.Source, store *ledger.Ledger, notify notifier.Notifier, symbol string, opts Options) *Machine {
	if notify == nil {
		notify = notifier.Nop{}
	}
	return &Machine{
		ex:     ex,
		source: source,
		store:  store,
		notify: notify,
		symbol: symbol,
		opts:   opts.withDefaults(),
		state:  StateFlat,
		sleep:  sleepWithContext,
	}
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Reconcile aligns the machine and the ledger with the exchange. It runs at
// the top of every cycle and after restarts, and returns the resulting state.
func (m *Machine) Reconcile(ctx context.Context) (State, error) {
	positions, err := m.ex.OpenPositions(ctx, m.symbol)
	if err != nil {
		return m.State(), fmt.Errorf("reconcile: query positions: %w", err)
	}

	open, err := m.store.LatestOpenTrade(ctx)
	if err != nil {
		return m.State(), fmt.Errorf("reconcile: %w", err)
	}

	if len(positions) == 0 {
		if open != nil {
			if err := m.settleClosedPosition(ctx, open); err != nil {
				return m.State(), err
			}
		}
		// Flat on the exchange: any working order is a stray left behind by
		// a triggered bracket or a manual close.
		m.cancelStrayOrders(ctx)
		m.setState(StateFlat, nil)
		return StateFlat, nil
	}

	pos := positions[0]
	if open == nil {
		// Unknown position, e.g. opened manually or state lost in a crash
		// before the ledger write. Adopt it under a provisional record so
		// the close can still be accounted for.
		rec := &ledger.TradeRecord{
			Symbol:     pos.Symbol,
			Side:       string(pos.Side),
			EntryPrice: pos.EntryPrice,
			Quantity:   pos.Quantity,
			Leverage:   pos.Leverage,
			Notional:   pos.EntryPrice * pos.Quantity,
			TraceID:    "reconciled",
		}
		if err := m.store.OpenTrade(ctx, rec); err != nil {
			return m.State(), fmt.Errorf("reconcile: adopt position: %w", err)
		}
		logger.Warnf("[position] adopted unknown %s %s position qty=%.3f entry=%.2f",
			pos.Symbol, pos.Side, pos.Quantity, pos.EntryPrice)
		open = rec
	}
	m.setState(StateOpen, open)
	return StateOpen, nil
}

// settleClosedPosition handles a position that disappeared from the exchange
// while the ledger still shows it open: a protective order triggered or the
// operator closed it by hand. The exit price is approximated by the current
// mark since the venue does not tell us which order filled.
func (m *Machine) settleClosedPosition(ctx context.Context, open *ledger.TradeRecord) error {
	m.setState(StateExitPending, open)

	exitPrice, err := m.source.LastPrice(ctx, m.symbol)
	if err != nil {
		return fmt.Errorf("reconcile: exit price: %w", err)
	}
	pl, plPct := realizedPL(open, exitPrice)
	if err := m.store.CloseTrade(ctx, open.ID, exitPrice, time.Now(), pl, plPct); err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}
	m.setState(StateClosed, nil)

	logger.Infof("[position] %s %s closed exit=%.2f pl=%.2f (%.2f%%)",
		open.Symbol, open.Side, exitPrice, pl, plPct)
	m.notifyClose(ctx, open, exitPrice, pl, plPct)
	return nil
}

func realizedPL(rec *ledger.TradeRecord, exitPrice float64) (pl, plPct float64) {
	switch rec.Side {
	case "LONG":
		pl = (exitPrice - rec.EntryPrice) * rec.Quantity
	case "SHORT":
		pl = (rec.EntryPrice - exitPrice) * rec.Quantity
	}
	margin := rec.Notional / math.Max(float64(rec.Leverage), 1)
	if margin > 0 {
		plPct = pl / margin * 100
	}
	return pl, plPct
}

func (m *Machine) notifyClose(ctx context.Context, rec *ledger.TradeRecord, exitPrice, pl, plPct float64) {
	stats, err := m.store.Stats(ctx, 7*24*time.Hour)
	if err != nil {
		logger.Warnf("[position] 7d summary unavailable: %v", err)
	} else {
		logger.Infof("[position] 7d: trades=%d win=%.1f%% pnl=%.2f",
			stats.TotalTrades, stats.WinRate, stats.TotalProfitLoss)
	}
	msg := fmt.Sprintf("*%s %s closed*\nexit %.2f\npnl %.2f (%.2f%%)\n7d: %d trades, %.1f%% win",
		rec.Symbol, rec.Side, exitPrice, pl, plPct, stats.TotalTrades, stats.WinRate)
	if err := m.notify.SendText(msg); err != nil {
		logger.Warnf("[position] close notification failed: %v", err)
	}
}

func (m *Machine) cancelStrayOrders(ctx context.Context) {
	orders, err := m.ex.OpenOrders(ctx, m.symbol)
	if err != nil {
		logger.Warnf("[position] list open orders failed: %v", err)
		return
	}
	if len(orders) == 0 {
		return
	}
	logger.Infof("[position] canceling %d stray orders on flat %s", len(orders), m.symbol)
	if err := m.ex.CancelAllOrders(ctx, m.symbol); err != nil {
		logger.Errorf("[position] cancel stray orders failed: %v", err)
	}
}

// Submit executes one sized, bracketed entry. It refuses to run unless the
// machine is FLAT and does not return OPEN until both protective orders are
// confirmed working: the position is never left naked.
func (m *Machine) Submit(ctx context.Context, rec oracle.Recommendation, bracket risk.BracketOrderSet, sizeFraction, notional float64, leverage int, decisionID int64) error {
	m.mu.Lock()
	if m.state != StateFlat {
		state := m.state
		m.mu.Unlock()
		return fmt.Errorf("submit refused in state %s", state)
	}
	m.state = StateEntrySubmitted
	m.mu.Unlock()

	if err := m.ex.SetLeverage(ctx, m.symbol, leverage); err != nil {
		m.setState(StateFlat, nil)
		return fmt.Errorf("set leverage: %w", err)
	}

	entrySide := exchange.OrderSideBuy
	if rec.Side == oracle.SideShort {
		entrySide = exchange.OrderSideSell
	}
	quantity, _ := bracket.Quantity.Float64()

	placed, err := m.ex.PlaceMarketOrder(ctx, m.symbol, entrySide, quantity)
	if err != nil {
		m.setState(StateFlat, nil)
		return fmt.Errorf("entry order: %w", err)
	}

	refPrice, _ := bracket.EntryPrice.Float64()
	fillPrice, err := m.awaitFill(ctx, placed.ID, refPrice)
	if err != nil {
		m.setState(StateFlat, nil)
		return err
	}
	m.setState(StateEntryFilledUnprotected, nil)

	if err := m.attachProtection(ctx, rec.Side, bracket); err != nil {
		m.setState(StateFlat, nil)
		return err
	}

	trade := &ledger.TradeRecord{
		Symbol:       m.symbol,
		Side:         string(rec.Side),
		EntryPrice:   fillPrice,
		Quantity:     quantity,
		Leverage:     leverage,
		SLPrice:      bracket.StopLoss.InexactFloat64(),
		TPPrice:      bracket.TakeProfit.InexactFloat64(),
		SLPct:        rec.StopLossPct,
		TPPct:        rec.TakeProfitPct,
		SizeFraction: sizeFraction,
		Notional:     notional,
		TraceID:      rec.TraceID,
	}
	if err := m.store.OpenTrade(ctx, trade); err != nil {
		// Position and protection are live; the bot keeps running and
		// reconciliation will re-adopt the position if state is lost.
		m.setState(StateOpen, nil)
		return fmt.Errorf("record entry: %w", err)
	}
	if decisionID > 0 {
		if err := m.store.LinkDecision(ctx, decisionID, trade.ID); err != nil {
			logger.Warnf("[position] link decision failed: %v", err)
		}
	}
	m.setState(StateOpen, trade)

	logger.Infof("[position] %s %s open qty=%.3f entry=%.2f sl=%s tp=%s lev=%dx",
		m.symbol, rec.Side, quantity, fillPrice, bracket.StopLoss, bracket.TakeProfit, leverage)
	msg := fmt.Sprintf("*%s %s opened*\nqty %.3f @ %.2f\nSL %s / TP %s\nleverage %dx",
		m.symbol, rec.Side, quantity, fillPrice, bracket.StopLoss, bracket.TakeProfit, leverage)
	if err := m.notify.SendText(msg); err != nil {
		logger.Warnf("[position] open notification failed: %v", err)
	}
	return nil
}

// awaitFill polls the entry order until the exchange reports it filled. If
// polling exhausts, the position check decides: an existing position means
// the fill simply outran the order status endpoint.
func (m *Machine) awaitFill(ctx context.Context, orderID int64, refPrice float64) (float64, error) {
	for attempt := 0; attempt < m.opts.FillPollAttempts; attempt++ {
		order, err := m.ex.GetOrder(ctx, m.symbol, orderID)
		if err != nil {
			logger.Warnf("[position] poll order %d: %v", orderID, err)
		} else if order.Filled() {
			if order.AvgFillPrice > 0 {
				return order.AvgFillPrice, nil
			}
			return refPrice, nil
		}
		if !m.sleep(ctx, m.opts.FillPollInterval) {
			return 0, ctx.Err()
		}
	}

	positions, err := m.ex.OpenPositions(ctx, m.symbol)
	if err == nil && len(positions) > 0 {
		return positions[0].EntryPrice, nil
	}
	if cerr := m.ex.CancelOrder(ctx, m.symbol, orderID); cerr != nil {
		logger.Warnf("[position] cancel unfilled entry %d: %v", orderID, cerr)
	}
	return 0, fmt.Errorf("entry order %d not filled", orderID)
}

// attachProtection places the stop and take profit. A live position without
// both is the one situation this bot must never walk away from, so the loop
// retries until they are confirmed or the position is gone, alerting the
// operator once attempts pile up. Shutdown does not interrupt it: the parent
// context's cancellation is deliberately not inherited.
func (m *Machine) attachProtection(parent context.Context, side oracle.Side, bracket risk.BracketOrderSet) error {
	ctx := context.WithoutCancel(parent)

	closeSide := exchange.OrderSideSell
	if side == oracle.SideShort {
		closeSide = exchange.OrderSideBuy
	}
	stopPrice := bracket.StopLoss.InexactFloat64()
	takePrice := bracket.TakeProfit.InexactFloat64()

	backoff := m.opts.ProtectBackoff
	alerted := false
	var stopPlaced, takePlaced bool
	for attempt := 1; ; attempt++ {
		if !stopPlaced {
			if _, err := m.ex.PlaceStopOrder(ctx, m.symbol, closeSide, stopPrice); err != nil {
				logger.Errorf("[position] stop order attempt %d failed: %v", attempt, err)
			} else {
				stopPlaced = true
			}
		}
		if stopPlaced && !takePlaced {
			if _, err := m.ex.PlaceTakeProfitOrder(ctx, m.symbol, closeSide, takePrice); err != nil {
				logger.Errorf("[position] take profit attempt %d failed: %v", attempt, err)
			} else {
				takePlaced = true
			}
		}
		if stopPlaced && takePlaced {
			return nil
		}

		if attempt >= m.opts.ProtectAlertAttempts && !alerted {
			alerted = true
			msg := fmt.Sprintf("*UNPROTECTED POSITION*\n%s %s has no confirmed stop after %d attempts. Intervene manually.",
				m.symbol, side, attempt)
			if err := m.notify.SendText(msg); err != nil {
				logger.Errorf("[position] unprotected alert failed: %v", err)
			}
		}

		// If the position vanished (liquidated or manually closed) there is
		// nothing left to protect.
		positions, err := m.ex.OpenPositions(ctx, m.symbol)
		if err == nil && len(positions) == 0 {
			logger.Warnf("[position] position gone while attaching protection, aborting")
			m.cancelStrayOrders(ctx)
			return fmt.Errorf("position disappeared before protection attached")
		}

		m.sleep(ctx, backoff)
		backoff *= 2
		if backoff > m.opts.ProtectBackoffMax {
			backoff = m.opts.ProtectBackoffMax
		}
	}
}

func (m *Machine) setState(s State, trade *ledger.TradeRecord) {
	m.mu.Lock()
	m.state = s
	m.trade = trade
	m.mu.Unlock()
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
