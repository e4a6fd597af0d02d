package risk

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"scalpbot/internal/config"
	"scalpbot/internal/models"
)

var hundred = decimal.NewFromInt(100)

// Gate applies the ordered pre-trade risk checks. The first failing check
// wins; side effects are limited to the stats passed in.
type Gate struct {
	Config config.RiskConfig
	Logger *zap.Logger

	// Now overrides the clock when set. Factored for testability.
	Now func() time.Time
}

func New(cfg config.RiskConfig, logger *zap.Logger) *Gate {
	return &Gate{Config: cfg, Logger: logger}
}

func (g *Gate) clock() time.Time {
	if g.Now != nil {
		return g.Now()
	}
	return time.Now()
}

// Allow decides whether a new entry may proceed.
func (g *Gate) Allow(stats *models.TradingStats, balance, initialBalance decimal.Decimal) (bool, string) {
	now := g.clock()

	if stats.InCooldown(now) {
		return g.deny(stats.StopReason)
	}

	if stats.StoppedByRiskLimit {
		sticky := g.Config.RequireManualRestartAfterStop ||
			strings.Contains(stats.StopReason, "kill switch")
		if sticky {
			return g.deny(stats.StopReason)
		}
	}

	if stats.DailyTrades >= g.Config.MaxDailyTrades {
		reason := fmt.Sprintf("daily trade limit reached (%d)", g.Config.MaxDailyTrades)
		g.cooldown(stats, reason, now)
		return g.deny(reason)
	}

	if g.Config.MaxDailyLossPercent > 0 && initialBalance.GreaterThan(decimal.Zero) {
		lossPct := stats.DailyPnL.Div(initialBalance).Mul(hundred)
		limit := decimal.NewFromFloat(g.Config.MaxDailyLossPercent).Neg()
		if lossPct.LessThanOrEqual(limit) {
			reason := fmt.Sprintf("daily loss limit reached: %s%%", lossPct.StringFixed(2))
			g.cooldown(stats, reason, now)
			return g.deny(reason)
		}
	}

	if g.Config.MaxDailyLossDollars > 0 {
		limit := decimal.NewFromFloat(g.Config.MaxDailyLossDollars).Neg()
		if stats.DailyPnL.LessThanOrEqual(limit) {
			reason := fmt.Sprintf("daily loss limit reached: $%s", stats.DailyPnL.Abs().StringFixed(2))
			g.cooldown(stats, reason, now)
			return g.deny(reason)
		}
	}

	if stats.ConsecutiveLosses >= g.Config.MaxConsecutiveLosses {
		reason := fmt.Sprintf("%d consecutive losses", stats.ConsecutiveLosses)
		g.cooldown(stats, reason, now)
		return g.deny(reason)
	}

	if g.Config.MaxAccountDrawdownPercent > 0 && initialBalance.GreaterThan(decimal.Zero) {
		drawdown := initialBalance.Sub(balance).Div(initialBalance).Mul(hundred)
		limit := decimal.NewFromFloat(g.Config.MaxAccountDrawdownPercent)
		if drawdown.GreaterThanOrEqual(limit) {
			// Permanent stop: survives cooldown expiry, cleared only by an
			// explicit stats reset.
			reason := fmt.Sprintf("account drawdown kill switch: %s%% >= %s%%",
				drawdown.StringFixed(2), limit.StringFixed(2))
			stats.StoppedByRiskLimit = true
			stats.StopReason = reason
			return g.deny(reason)
		}
	}

	if g.Config.MaxTradeFrequencySeconds > 0 && !stats.LastTradeTime.IsZero() {
		minGap := time.Duration(g.Config.MaxTradeFrequencySeconds) * time.Second
		if now.Sub(stats.LastTradeTime) < minGap {
			// Soft throttle: deny without a cooldown or stop flag.
			return g.deny(fmt.Sprintf("trade frequency limit: min %ds between trades", g.Config.MaxTradeFrequencySeconds))
		}
	}

	return true, ""
}

func (g *Gate) cooldown(stats *models.TradingStats, reason string, now time.Time) {
	d := time.Duration(g.Config.CooldownMinutes) * time.Minute
	stats.SetCooldown(d, reason, now)
}

func (g *Gate) deny(reason string) (bool, string) {
	if g.Logger != nil {
		g.Logger.Debug("risk gate denied entry", zap.String("reason", reason))
	}
	return false, reason
}
