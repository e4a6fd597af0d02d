package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	TradeActionBuy  = "BUY"
	TradeActionSell = "SELL"
)

const (
	TradeStatusPending   = "pending"
	TradeStatusOpen      = "open"
	TradeStatusClosed    = "closed"
	TradeStatusCancelled = "cancelled"
	TradeStatusFailed    = "failed"
)

// Trade is a single order intent and its execution outcome. Once a trade
// reaches closed, cancelled or failed it is never mutated again.
type Trade struct {
	ID            string           `json:"id"`
	Symbol        string           `json:"symbol"`
	Action        string           `json:"action"`
	Quantity      int64            `json:"quantity"`
	Price         decimal.Decimal  `json:"price"`
	Status        string           `json:"status"`
	FilledPrice   decimal.Decimal  `json:"filled_price"`
	FilledAt      *time.Time       `json:"filled_at,omitempty"`
	OrderID       string           `json:"order_id,omitempty"`
	FailureReason string           `json:"failure_reason,omitempty"`
	PnL           *decimal.Decimal `json:"pnl,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
}

func (t *Trade) IsTerminal() bool {
	switch t.Status {
	case TradeStatusClosed, TradeStatusCancelled, TradeStatusFailed:
		return true
	default:
		return false
	}
}
