package ledger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// ErrPersistence wraps any storage failure. The control loop treats it as
// fatal for the current cycle: history the feedback loop cannot record must
// not be silently skipped.
var ErrPersistence = errors.New("ledger persistence error")

// Ledger is the append-only store of decisions and trade outcomes. Exit
// fields on a TradeRecord are written exactly once; nothing is ever deleted.
type Ledger struct {
	db *gorm.DB
}

func Open(path string) (*Ledger, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("ledger path cannot be empty")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}
	return newLedger(db)
}

// OpenInMemory backs the ledger with an in-memory database. Used by tests.
func OpenInMemory() (*Ledger, error) {
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}
	return newLedger(db)
}

func newLedger(db *gorm.DB) (*Ledger, error) {
	if err := db.AutoMigrate(&TradeRecord{}, &Decision{}); err != nil {
		return nil, err
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(2)
		sqlDB.SetMaxIdleConns(2)
	}
	return &Ledger{db: db}, nil
}

func (l *Ledger) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	sqlDB, err := l.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// AppendDecision stores one oracle decision row.
func (l *Ledger) AppendDecision(ctx context.Context, d *Decision) error {
	if d.TSUnix == 0 {
		d.TSUnix = time.Now().Unix()
	}
	if err := l.db.WithContext(ctx).Create(d).Error; err != nil {
		return fmt.Errorf("%w: append decision: %v", ErrPersistence, err)
	}
	return nil
}

// OpenTrade appends a new trade row with status OPEN.
func (l *Ledger) OpenTrade(ctx context.Context, rec *TradeRecord) error {
	if rec.OpenedAtUnix == 0 {
		rec.OpenedAtUnix = time.Now().Unix()
	}
	rec.Status = TradeStatusOpen
	if err := l.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("%w: open trade: %v", ErrPersistence, err)
	}
	return nil
}

// LinkDecision attaches a trade to the decision that produced it.
func (l *Ledger) LinkDecision(ctx context.Context, decisionID, tradeID int64) error {
	err := l.db.WithContext(ctx).Model(&Decision{}).
		Where("id = ?", decisionID).
		Update("trade_id", tradeID).Error
	if err != nil {
		return fmt.Errorf("%w: link decision: %v", ErrPersistence, err)
	}
	return nil
}

// LatestOpenTrade returns the most recent OPEN trade, or nil when flat.
func (l *Ledger) LatestOpenTrade(ctx context.Context) (*TradeRecord, error) {
	var rec TradeRecord
	err := l.db.WithContext(ctx).
		Where("status = ?", TradeStatusOpen).
		Order("opened_at DESC").
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: latest open trade: %v", ErrPersistence, err)
	}
	return &rec, nil
}

// CloseTrade writes the exit fields of an OPEN trade exactly once. Closing an
// already-closed trade is an error, never an overwrite.
func (l *Ledger) CloseTrade(ctx context.Context, tradeID int64, exitPrice float64, closedAt time.Time, pl, plPct float64) error {
	res := l.db.WithContext(ctx).Model(&TradeRecord{}).
		Where("id = ? AND status = ?", tradeID, TradeStatusOpen).
		Updates(map[string]any{
			"status":          TradeStatusClosed,
			"exit_price":      exitPrice,
			"closed_at":       closedAt.Unix(),
			"profit_loss":     pl,
			"profit_loss_pct": plPct,
		})
	if res.Error != nil {
		return fmt.Errorf("%w: close trade: %v", ErrPersistence, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: close trade %d: no open row", ErrPersistence, tradeID)
	}
	return nil
}

// ClosedTrades returns the most recent closed trades, newest first.
func (l *Ledger) ClosedTrades(ctx context.Context, limit int) ([]TradeRecord, error) {
	var recs []TradeRecord
	q := l.db.WithContext(ctx).
		Where("status = ?", TradeStatusClosed).
		Order("opened_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("%w: closed trades: %v", ErrPersistence, err)
	}
	return recs, nil
}

// RecentDecisions returns the most recent decision rows, newest first.
func (l *Ledger) RecentDecisions(ctx context.Context, limit int) ([]Decision, error) {
	var out []Decision
	q := l.db.WithContext(ctx).Order("ts DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("%w: recent decisions: %v", ErrPersistence, err)
	}
	return out, nil
}

// Stats recomputes aggregate performance over all closed trades within the
// window (zero window = all history). The aggregation itself is pure; see
// ComputeStats.
func (l *Ledger) Stats(ctx context.Context, window time.Duration) (HistoricalStats, error) {
	q := l.db.WithContext(ctx).Where("status = ?", TradeStatusClosed)
	if window > 0 {
		cutoff := time.Now().Add(-window).Unix()
		q = q.Where("opened_at >= ?", cutoff)
	}
	var recs []TradeRecord
	if err := q.Find(&recs).Error; err != nil {
		return HistoricalStats{}, fmt.Errorf("%w: stats: %v", ErrPersistence, err)
	}
	return ComputeStats(recs), nil
}
