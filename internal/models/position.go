package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	PositionStatusOpen   = "open"
	PositionStatusClosed = "closed"
)

type Position struct {
	Symbol            string          `json:"symbol"`
	Quantity          int64           `json:"quantity"`
	EntryPrice        decimal.Decimal `json:"entry_price"`
	EntryTime         time.Time       `json:"entry_time"`
	Status            string          `json:"status"`
	CurrentPrice      decimal.Decimal `json:"current_price"`
	PeakPrice         decimal.Decimal `json:"peak_price"`
	TrailingStopPrice decimal.Decimal `json:"trailing_stop_price"`
	UnrealizedPnL     decimal.Decimal `json:"unrealized_pnl"`
	UnrealizedPnLPct  decimal.Decimal `json:"unrealized_pnl_percent"`
	RealizedPnL       decimal.Decimal `json:"realized_pnl"`
	RealizedPnLPct    decimal.Decimal `json:"realized_pnl_percent"`
	EntryTradeID      string          `json:"entry_trade_id,omitempty"`
	ExitTradeID       string          `json:"exit_trade_id,omitempty"`
	ExitTime          *time.Time      `json:"exit_time,omitempty"`
}

// CalcUnrealizedPnL marks the position to price, refreshing the cached
// current price and unrealized P&L fields, and returns the new values.
func (p *Position) CalcUnrealizedPnL(price decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	p.CurrentPrice = price
	pnl := price.Sub(p.EntryPrice).Mul(decimal.NewFromInt(p.Quantity))
	pct := decimal.Zero
	if p.EntryPrice.GreaterThan(decimal.Zero) {
		pct = price.Sub(p.EntryPrice).Div(p.EntryPrice).Mul(decimal.NewFromInt(100))
	}
	p.UnrealizedPnL = pnl
	p.UnrealizedPnLPct = pct
	return pnl, pct
}

// CalcRealizedPnL records the realized P&L for an exit at price and returns it.
func (p *Position) CalcRealizedPnL(price decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	pnl := price.Sub(p.EntryPrice).Mul(decimal.NewFromInt(p.Quantity))
	pct := decimal.Zero
	if p.EntryPrice.GreaterThan(decimal.Zero) {
		pct = price.Sub(p.EntryPrice).Div(p.EntryPrice).Mul(decimal.NewFromInt(100))
	}
	p.RealizedPnL = pnl
	p.RealizedPnLPct = pct
	return pnl, pct
}
