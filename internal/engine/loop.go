package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Ginaitlady/AI-auto-trading-Bitcoin/internal/gateway/exchange"
	"github.com/Ginaitlady/AI-auto-trading-Bitcoin/internal/ledger"
	"github.com/Ginaitlady/AI-auto-trading-Bitcoin/internal/logger"
	"github.com/Ginaitlady/AI-auto-trading-Bitcoin/internal/market"
	"github.com/Ginaitlady/AI-auto-trading-Bitcoin/internal/oracle"
	"github.com/Ginaitlady/AI-auto-trading-Bitcoin/internal/pkg/circuit"
	"github.com/Ginaitlady/AI-auto-trading-Bitcoin/internal/position"
	"github.com/Ginaitlady/AI-auto-trading-Bitcoin/internal/risk"
	"github.com/Ginaitlady/AI-auto-trading-Bitcoin/internal/scheduler"
	"github.com/Ginaitlady/AI-auto-trading-Bitcoin/internal/sizing"
)

// qtyStep is the contract quantity precision: quantities are rounded up to
// the next 0.001 so the filled notional is never below the sized notional.
const qtyStep = 1000.0

// Options configure one engine.
type Options struct {
	Symbol         string
	CycleInterval  time.Duration
	RunImmediately bool

	BreakerThreshold int
	BreakerTimeout   time.Duration
}

// Engine runs the decision cycle: reconcile, observe, decide, size, bracket,
// submit. One cycle at a time; a tick that arrives while the previous cycle
// is still running is dropped, not queued.
type Engine struct {
	opts      Options
	collector *market.Collector
	decider   oracle.Decider
	ex        exchange.Exchange
	machine   *position.Machine
	store     *ledger.Ledger
	sizer     sizing.Policy
	breaker   *circuit.CircuitBreaker

	busy atomic.Bool
}

func New(opts Options, collector *market.Collector, decider oracle.Decider, ex exchange.Exchange, machine *position.Machine, store *ledger.Ledger, sizer sizing.Policy) *Engine {
	threshold := opts.BreakerThreshold
	if threshold <= 0 {
		threshold = 5
	}
	timeout := opts.BreakerTimeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Engine{
		opts:      opts,
		collector: collector,
		decider:   decider,
		ex:        ex,
		machine:   machine,
		store:     store,
		sizer:     sizer,
		breaker:   circuit.NewCircuitBreaker("cycle", threshold, timeout),
	}
}

// Run drives RunCycle on the configured interval until ctx is canceled.
func (e *Engine) Run(ctx context.Context) error {
	sched := scheduler.NewFixedScheduler(ctx, e.opts.CycleInterval)
	sched.Name = "engine"
	sched.RunImmediately = e.opts.RunImmediately
	sched.Start(func() {
		if err := e.RunCycle(ctx); err != nil {
			logger.Errorf("[engine] cycle failed: %v", err)
		}
	})
	return nil
}

// RunCycle executes one full decision cycle. It is safe to call from a timer
// that does not wait for completion: overlapping calls return immediately.
func (e *Engine) RunCycle(ctx context.Context) error {
	if !e.busy.CompareAndSwap(false, true) {
		logger.Warnf("[engine] previous cycle still running, skipping tick")
		return nil
	}
	defer e.busy.Store(false)

	if !e.breaker.Allow() {
		logger.Warnf("[engine] circuit open, skipping cycle")
		return nil
	}

	err := e.cycle(ctx)
	if err != nil {
		e.breaker.RecordFailure()
		return err
	}
	e.breaker.RecordSuccess()
	return nil
}

func (e *Engine) cycle(ctx context.Context) error {
	state, err := e.machine.Reconcile(ctx)
	if err != nil {
		return err
	}
	if state != position.StateFlat {
		logger.Infof("[engine] position %s, holding", state)
		return nil
	}

	stats, err := e.store.Stats(ctx, 0)
	if err != nil {
		return err
	}
	snap, err := e.collector.Collect(ctx, stats)
	if err != nil {
		return fmt.Errorf("collect market context: %w", err)
	}

	rec := e.decide(ctx, snap)

	decision := &ledger.Decision{
		TraceID:      rec.TraceID,
		Price:        snap.Price,
		Direction:    string(rec.Side),
		Conviction:   rec.Conviction,
		WinLossRatio: rec.WinLossRatio,
		Leverage:     rec.Leverage,
		SLPct:        rec.StopLossPct,
		TPPct:        rec.TakeProfitPct,
		Rationale:    rec.Rationale,
	}
	if rec.Raw != "" {
		decision.Raw = []byte(rec.Raw)
	}
	// History is the feedback loop; a decision that cannot be recorded must
	// not be acted on.
	if err := e.store.AppendDecision(ctx, decision); err != nil {
		return err
	}

	if rec.Flat() {
		logger.Infof("[engine] no position this cycle: %s", truncate(rec.Rationale, 120))
		return nil
	}

	equity, err := e.ex.AccountEquity(ctx)
	if err != nil {
		return fmt.Errorf("account equity: %w", err)
	}

	sized, skip := e.sizer.Size(rec, decimal.NewFromFloat(equity))
	if skip != sizing.SkipNone {
		logger.Infof("[engine] %s %s skipped: %s", rec.Side, e.opts.Symbol, skip)
		return nil
	}

	price := decimal.NewFromFloat(snap.Price)
	quantity := roundUpQty(sized.Notional.Div(price))

	bracket, err := risk.Compose(rec.Side, price, quantity, rec.StopLossPct, rec.TakeProfitPct)
	if err != nil {
		if errors.Is(err, risk.ErrMalformedRiskLevels) {
			logger.Errorf("[engine] rejected bracket: %v", err)
			return nil
		}
		return err
	}

	fraction, _ := sized.Fraction.Float64()
	notional, _ := sized.Notional.Float64()
	return e.machine.Submit(ctx, rec, bracket, fraction, notional, sized.Leverage, decision.ID)
}

// decide maps any oracle failure to NO_POSITION: a cycle whose advice is
// unavailable or unusable stays flat rather than trading on defaults.
func (e *Engine) decide(ctx context.Context, snap *market.Snapshot) oracle.Recommendation {
	rec, err := e.decider.Decide(ctx, snap)
	if err != nil {
		logger.Warnf("[engine] oracle unusable, staying flat: %v", err)
		return oracle.Recommendation{
			Side:      oracle.SideNoPosition,
			Rationale: fmt.Sprintf("oracle failure: %v", err),
		}
	}
	return rec
}

func roundUpQty(q decimal.Decimal) decimal.Decimal {
	f, _ := q.Float64()
	return decimal.NewFromFloat(math.Ceil(f*qtyStep) / qtyStep)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
