package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradingStats tracks session counters used by the risk gate. Daily fields
// reset at the daily rollover; lifetime totals survive it.
type TradingStats struct {
	DailyTrades        int             `json:"daily_trades"`
	DailyPnL           decimal.Decimal `json:"daily_pnl"`
	LastTradeTime      time.Time       `json:"last_trade_time"`
	SessionStart       time.Time       `json:"session_start"`
	TotalWins          int             `json:"total_wins"`
	TotalLosses        int             `json:"total_losses"`
	ConsecutiveWins    int             `json:"consecutive_wins"`
	ConsecutiveLosses  int             `json:"consecutive_losses"`
	LargestWin         decimal.Decimal `json:"largest_win"`
	LargestLoss        decimal.Decimal `json:"largest_loss"`
	StoppedByRiskLimit bool            `json:"stopped_by_risk_limit"`
	StopReason         string          `json:"stop_reason,omitempty"`
	CooldownUntil      time.Time       `json:"cooldown_until"`
}

func NewTradingStats(now time.Time) *TradingStats {
	return &TradingStats{
		DailyPnL:     decimal.Zero,
		LargestWin:   decimal.Zero,
		LargestLoss:  decimal.Zero,
		SessionStart: now,
	}
}

// RecordTrade folds one completed round trip into the counters. A pnl of
// exactly zero counts as a loss.
func (s *TradingStats) RecordTrade(pnl decimal.Decimal, at time.Time) {
	s.DailyTrades++
	s.DailyPnL = s.DailyPnL.Add(pnl)
	s.LastTradeTime = at

	if pnl.GreaterThan(decimal.Zero) {
		s.TotalWins++
		s.ConsecutiveWins++
		s.ConsecutiveLosses = 0
		if pnl.GreaterThan(s.LargestWin) {
			s.LargestWin = pnl
		}
		return
	}
	s.TotalLosses++
	s.ConsecutiveLosses++
	s.ConsecutiveWins = 0
	if pnl.LessThan(s.LargestLoss) {
		s.LargestLoss = pnl
	}
}

// ResetDaily clears the daily counters and any risk stop, keeping lifetime
// totals intact.
func (s *TradingStats) ResetDaily(now time.Time) {
	s.DailyTrades = 0
	s.DailyPnL = decimal.Zero
	s.StoppedByRiskLimit = false
	s.StopReason = ""
	s.CooldownUntil = time.Time{}
	s.SessionStart = now
}

func (s *TradingStats) SetCooldown(d time.Duration, reason string, now time.Time) {
	s.CooldownUntil = now.Add(d)
	s.StoppedByRiskLimit = true
	s.StopReason = reason
}

func (s *TradingStats) InCooldown(now time.Time) bool {
	return !s.CooldownUntil.IsZero() && now.Before(s.CooldownUntil)
}

func (s *TradingStats) WinRate() float64 {
	total := s.TotalWins + s.TotalLosses
	if total == 0 {
		return 0
	}
	return float64(s.TotalWins) / float64(total) * 100
}
