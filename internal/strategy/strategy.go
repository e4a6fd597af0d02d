package strategy

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"scalpbot/internal/config"
	"scalpbot/internal/models"
)

var hundred = decimal.NewFromInt(100)

// Strategy implements the drop-entry scalping rules over per-symbol price
// histories. Entry and exit decisions are evaluated against the wall clock in
// the exchange timezone.
type Strategy struct {
	Config config.StrategyConfig
	Logger *zap.Logger

	// Now overrides the clock when set. Factored for testability.
	Now func() time.Time

	histories map[string]*PriceHistory
	loc       *time.Location
}

func New(cfg config.StrategyConfig, logger *zap.Logger) (*Strategy, error) {
	loc, err := time.LoadLocation(cfg.ExchangeTimezone)
	if err != nil {
		return nil, fmt.Errorf("load exchange timezone %q: %w", cfg.ExchangeTimezone, err)
	}
	return &Strategy{
		Config:    cfg,
		Logger:    logger,
		histories: map[string]*PriceHistory{},
		loc:       loc,
	}, nil
}

func (s *Strategy) clock() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Strategy) history(symbol string) *PriceHistory {
	h, ok := s.histories[symbol]
	if !ok {
		h = NewPriceHistory(s.Config.EntryTimeframeMinutes)
		h.now = s.clock
		s.histories[symbol] = h
	}
	return h
}

func (s *Strategy) UpdatePrice(symbol string, price decimal.Decimal) {
	s.history(symbol).Add(price, s.clock())
}

// ShouldEnter reports whether price has dropped at least entry_drop_percent
// from the recent high. The drop boundary is inclusive.
func (s *Strategy) ShouldEnter(symbol string, price decimal.Decimal) (bool, string) {
	if !s.InTradingHours() {
		return false, "outside trading hours"
	}
	h, ok := s.histories[symbol]
	if !ok || h.Len() == 0 {
		return false, "no price history"
	}
	window := time.Duration(s.Config.EntryTimeframeMinutes) * time.Minute
	high, ok := h.High(window)
	if !ok || high.LessThanOrEqual(decimal.Zero) {
		return false, "no recent high"
	}
	drop := high.Sub(price).Div(high).Mul(hundred)
	threshold := decimal.NewFromFloat(s.Config.EntryDropPercent)
	if drop.GreaterThanOrEqual(threshold) {
		return true, fmt.Sprintf("price dropped %s%% from high %s", drop.StringFixed(2), high.StringFixed(2))
	}
	return false, ""
}

// ShouldExit evaluates exit rules for an open position at price. It refreshes
// the position's unrealized P&L as a side effect. Stop-loss takes priority;
// trailing stop and profit target are mutually exclusive.
func (s *Strategy) ShouldExit(pos *models.Position, price decimal.Decimal) (bool, string) {
	_, pnlPct := pos.CalcUnrealizedPnL(price)

	stopLoss := decimal.NewFromFloat(s.Config.StopLossPercent).Neg()
	if pnlPct.LessThanOrEqual(stopLoss) {
		return true, fmt.Sprintf("stop loss hit: %s%%", pnlPct.StringFixed(2))
	}

	if s.Config.UseTrailingStop {
		if price.GreaterThan(pos.PeakPrice) {
			pos.PeakPrice = price
		}
		trailPct := decimal.NewFromFloat(s.Config.TrailingStopPercent)
		trail := pos.PeakPrice.Mul(decimal.NewFromInt(1).Sub(trailPct.Div(hundred)))
		pos.TrailingStopPrice = trail
		if price.LessThanOrEqual(trail) {
			return true, fmt.Sprintf("trailing stop hit at %s (peak %s)", trail.StringFixed(4), pos.PeakPrice.StringFixed(4))
		}
		return false, ""
	}

	target := decimal.NewFromFloat(s.Config.ExitProfitPercent)
	if pnlPct.GreaterThanOrEqual(target) {
		return true, fmt.Sprintf("profit target hit: %s%%", pnlPct.StringFixed(2))
	}
	return false, ""
}

// InTradingHours reports whether the exchange clock is inside the regular
// session minus the configured open and close buffers.
func (s *Strategy) InTradingHours() bool {
	now := s.clock().In(s.loc)
	if now.Weekday() == time.Saturday || now.Weekday() == time.Sunday {
		return false
	}
	open := time.Date(now.Year(), now.Month(), now.Day(), 9, 30, 0, 0, s.loc).
		Add(time.Duration(s.Config.AvoidFirstMinutes) * time.Minute)
	close := time.Date(now.Year(), now.Month(), now.Day(), 16, 0, 0, 0, s.loc).
		Add(-time.Duration(s.Config.AvoidLastMinutes) * time.Minute)
	return !now.Before(open) && !now.After(close)
}

// ShouldCloseAllPositions reports whether the end-of-day flatten point has
// been reached.
func (s *Strategy) ShouldCloseAllPositions() bool {
	if !s.Config.ClosePositionsAtEOD {
		return false
	}
	now := s.clock().In(s.loc)
	cutoff := time.Date(now.Year(), now.Month(), now.Day(), 16, 0, 0, 0, s.loc).
		Add(-time.Duration(s.Config.AvoidLastMinutes) * time.Minute)
	return !now.Before(cutoff)
}
