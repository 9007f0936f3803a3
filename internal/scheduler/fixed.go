package scheduler

import (
	"context"
	"time"

	"github.com/Ginaitlady/AI-auto-trading-Bitcoin/internal/logger"
)

// FixedScheduler runs a task on a fixed wall-clock grid. The next slot is
// computed from the anchor, so a slow task skips slots instead of queueing
// them up behind one another.
type FixedScheduler struct {
	Name           string
	Interval       time.Duration
	RunImmediately bool

	ctx   context.Context
	nowFn func() time.Time
}

func NewFixedScheduler(ctx context.Context, interval time.Duration) *FixedScheduler {
	if ctx == nil {
		ctx = context.Background()
	}
	return &FixedScheduler{
		Interval: interval,
		ctx:      ctx,
		nowFn:    time.Now,
	}
}

// Start blocks until the context is cancelled, invoking task once per slot.
func (s *FixedScheduler) Start(task func()) {
	if s == nil || task == nil {
		return
	}
	if s.Interval <= 0 {
		logger.Warnf("FixedScheduler: invalid interval=%s, exit", s.Interval)
		return
	}
	if s.ctx == nil {
		s.ctx = context.Background()
	}
	if s.nowFn == nil {
		s.nowFn = time.Now
	}

	prefix := "FixedScheduler"
	if s.Name != "" {
		prefix = prefix + "[" + s.Name + "]"
	}
	anchor := s.nowFn().UTC()
	logger.Infof("%s: started interval=%s run_immediately=%v at=%s",
		prefix, s.Interval, s.RunImmediately, anchor.Format(time.RFC3339))

	if s.RunImmediately {
		task()
	}

	nextAt := nextSlotAfter(anchor, s.Interval, s.nowFn().UTC())
	for {
		if !s.waitUntil(nextAt) {
			logger.Infof("%s: ctx done, exit", prefix)
			return
		}
		task()
		nextAt = nextSlotAfter(anchor, s.Interval, s.nowFn().UTC())
	}
}

func (s *FixedScheduler) waitUntil(target time.Time) bool {
	wait := target.Sub(s.nowFn().UTC())
	if wait <= 0 {
		select {
		case <-s.ctx.Done():
			return false
		default:
			return true
		}
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-s.ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func nextSlotAfter(anchor time.Time, interval time.Duration, now time.Time) time.Time {
	if interval <= 0 {
		return now
	}
	delta := now.Sub(anchor)
	if delta < 0 {
		return anchor
	}
	k := delta / interval
	return anchor.Add((k + 1) * interval)
}
