package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// TradeRecord is the persisted form of a Trade.
type TradeRecord struct {
	ID            uint64           `gorm:"primaryKey;autoIncrement"`
	TradeID       string           `gorm:"type:varchar(40);not null;uniqueIndex"`
	Symbol        string           `gorm:"type:varchar(20);not null;index"`
	Action        string           `gorm:"type:varchar(10);not null"`
	Quantity      int64            `gorm:"not null;default:0"`
	Price         decimal.Decimal  `gorm:"type:numeric(20,10);not null;default:0"`
	FilledPrice   decimal.Decimal  `gorm:"type:numeric(20,10);not null;default:0"`
	Status        string           `gorm:"type:varchar(20);not null;index"`
	OrderID       string           `gorm:"type:varchar(64)"`
	FailureReason string           `gorm:"type:text"`
	PnL           *decimal.Decimal `gorm:"column:pnl;type:numeric(30,10)"`
	FilledAt      *time.Time       `gorm:"type:timestamptz"`
	Meta          datatypes.JSON   `gorm:"type:jsonb"`
	CreatedAt     time.Time        `gorm:"type:timestamptz;autoCreateTime;index"`
}

func (TradeRecord) TableName() string {
	return "trades"
}

// PositionRecord is the persisted form of a Position, written on open and
// updated on close.
type PositionRecord struct {
	ID             uint64          `gorm:"primaryKey;autoIncrement"`
	Symbol         string          `gorm:"type:varchar(20);not null;index"`
	Quantity       int64           `gorm:"not null;default:0"`
	EntryPrice     decimal.Decimal `gorm:"type:numeric(20,10);not null;default:0"`
	ExitPrice      decimal.Decimal `gorm:"type:numeric(20,10);not null;default:0"`
	Status         string          `gorm:"type:varchar(20);not null;default:'open';index"`
	RealizedPnL    decimal.Decimal `gorm:"column:realized_pnl;type:numeric(30,10);not null;default:0"`
	RealizedPnLPct decimal.Decimal `gorm:"column:realized_pnl_pct;type:numeric(20,10);not null;default:0"`
	EntryTradeID   string          `gorm:"type:varchar(40);index"`
	ExitTradeID    string          `gorm:"type:varchar(40)"`
	OpenedAt       time.Time       `gorm:"type:timestamptz;not null"`
	ClosedAt       *time.Time      `gorm:"type:timestamptz"`
	CreatedAt      time.Time       `gorm:"type:timestamptz;autoCreateTime;index"`
	UpdatedAt      time.Time       `gorm:"type:timestamptz;autoUpdateTime"`
}

func (PositionRecord) TableName() string {
	return "positions"
}

// SessionRecord summarizes one engine run, written when the engine stops.
type SessionRecord struct {
	ID             uint64          `gorm:"primaryKey;autoIncrement"`
	StartedAt      time.Time       `gorm:"type:timestamptz;not null"`
	EndedAt        *time.Time      `gorm:"type:timestamptz"`
	InitialBalance decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0"`
	FinalBalance   decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0"`
	DailyTrades    int             `gorm:"not null;default:0"`
	DailyPnL       decimal.Decimal `gorm:"column:daily_pnl;type:numeric(30,10);not null;default:0"`
	StopReason     string          `gorm:"type:text"`
	Stats          datatypes.JSON  `gorm:"type:jsonb"`
	CreatedAt      time.Time       `gorm:"type:timestamptz;autoCreateTime"`
}

func (SessionRecord) TableName() string {
	return "sessions"
}
