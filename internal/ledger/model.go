package ledger

import (
	"gorm.io/datatypes"
)

const (
	TradeStatusOpen   = "OPEN"
	TradeStatusClosed = "CLOSED"
)

// TradeRecord is one row of the append-only trade history. Rows are created
// at entry with status OPEN; the exit fields are written exactly once by the
// close transition and never touched again. Schema changes are additive only
// (AutoMigrate adds columns, never drops or rewrites).
type TradeRecord struct {
	ID           int64   `gorm:"column:id;primaryKey" json:"id"`
	OpenedAtUnix int64   `gorm:"column:opened_at;index" json:"opened_at"`
	Symbol       string  `gorm:"column:symbol" json:"symbol"`
	Side         string  `gorm:"column:side" json:"side"` // "LONG" or "SHORT"
	EntryPrice   float64 `gorm:"column:entry_price" json:"entry_price"`
	Quantity     float64 `gorm:"column:quantity" json:"quantity"`
	Leverage     int     `gorm:"column:leverage" json:"leverage"`
	SLPrice      float64 `gorm:"column:sl_price" json:"sl_price"`
	TPPrice      float64 `gorm:"column:tp_price" json:"tp_price"`
	SLPct        float64 `gorm:"column:sl_percentage" json:"sl_percentage"`
	TPPct        float64 `gorm:"column:tp_percentage" json:"tp_percentage"`
	SizeFraction float64 `gorm:"column:size_fraction" json:"size_fraction"` // half-Kelly fraction actually used
	Notional     float64 `gorm:"column:notional" json:"notional"`           // quote-currency position value
	TraceID      string  `gorm:"column:trace_id;index" json:"trace_id"`

	Status        string  `gorm:"column:status;index" json:"status"`
	ExitPrice     float64 `gorm:"column:exit_price" json:"exit_price,omitempty"`
	ClosedAtUnix  int64   `gorm:"column:closed_at" json:"closed_at,omitempty"`
	ProfitLoss    float64 `gorm:"column:profit_loss" json:"profit_loss,omitempty"`
	ProfitLossPct float64 `gorm:"column:profit_loss_pct" json:"profit_loss_pct,omitempty"`
}

func (TradeRecord) TableName() string { return "trade_records" }

// Decision is the persisted oracle output for one cycle, whether or not it
// produced a trade. TradeID links it to the trade it opened, if any.
type Decision struct {
	ID           int64          `gorm:"column:id;primaryKey" json:"id"`
	TSUnix       int64          `gorm:"column:ts;index" json:"ts"`
	TraceID      string         `gorm:"column:trace_id;index" json:"trace_id"`
	Price        float64        `gorm:"column:price" json:"price"`
	Direction    string         `gorm:"column:direction" json:"direction"`
	Conviction   float64        `gorm:"column:conviction" json:"conviction"`
	WinLossRatio float64        `gorm:"column:win_loss_ratio" json:"win_loss_ratio"`
	Leverage     int            `gorm:"column:leverage" json:"leverage"`
	SLPct        float64        `gorm:"column:sl_percentage" json:"sl_percentage"`
	TPPct        float64        `gorm:"column:tp_percentage" json:"tp_percentage"`
	Rationale    string         `gorm:"column:rationale;type:TEXT" json:"rationale"`
	Raw          datatypes.JSON `gorm:"column:raw;type:TEXT" json:"raw,omitempty"` // verbatim oracle JSON
	TradeID      *int64         `gorm:"column:trade_id;index" json:"trade_id,omitempty"`
}

func (Decision) TableName() string { return "decisions" }
