package risk

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"scalpbot/internal/config"
	"scalpbot/internal/models"
)

var noon = time.Date(2024, 3, 6, 12, 0, 0, 0, time.UTC)

func baseRiskConfig() config.RiskConfig {
	return config.RiskConfig{
		PositionSizePercent:       10,
		MaxPositions:              1,
		MaxDailyLossPercent:       3,
		MaxDailyTrades:            10,
		MaxConsecutiveLosses:      3,
		MaxAccountDrawdownPercent: 10,
		MaxTradeFrequencySeconds:  30,
		CooldownMinutes:           30,
	}
}

func newTestGate(cfg config.RiskConfig, now time.Time) *Gate {
	g := New(cfg, zap.NewNop())
	g.Now = func() time.Time { return now }
	return g
}

func balances() (decimal.Decimal, decimal.Decimal) {
	return decimal.NewFromInt(10000), decimal.NewFromInt(10000)
}

func TestAllow_Clean(t *testing.T) {
	g := newTestGate(baseRiskConfig(), noon)
	stats := models.NewTradingStats(noon)
	bal, initial := balances()
	allowed, reason := g.Allow(stats, bal, initial)
	if !allowed {
		t.Fatalf("clean stats should be allowed, reason=%q", reason)
	}
}

func TestAllow_DailyTradeLimit(t *testing.T) {
	g := newTestGate(baseRiskConfig(), noon)
	stats := models.NewTradingStats(noon)
	stats.DailyTrades = 10
	bal, initial := balances()

	allowed, reason := g.Allow(stats, bal, initial)
	if allowed || !strings.Contains(reason, "daily trade limit") {
		t.Fatalf("allowed=%v reason=%q want daily trade limit", allowed, reason)
	}
	if !stats.StoppedByRiskLimit {
		t.Fatalf("expected risk stop flag")
	}
	if want := noon.Add(30 * time.Minute); !stats.CooldownUntil.Equal(want) {
		t.Fatalf("cooldown_until=%v want=%v", stats.CooldownUntil, want)
	}
}

func TestAllow_OrderingFirstFailureWins(t *testing.T) {
	g := newTestGate(baseRiskConfig(), noon)
	stats := models.NewTradingStats(noon)
	stats.DailyTrades = 10
	stats.DailyPnL = decimal.NewFromInt(-400) // also past the 3% loss limit
	bal, initial := balances()

	_, reason := g.Allow(stats, bal, initial)
	if !strings.Contains(reason, "daily trade limit") {
		t.Fatalf("reason=%q want the earlier check (daily trade limit)", reason)
	}
}

func TestAllow_DailyLossPercent(t *testing.T) {
	g := newTestGate(baseRiskConfig(), noon)
	stats := models.NewTradingStats(noon)
	stats.DailyPnL = decimal.NewFromInt(-300) // exactly 3% of 10000
	bal, initial := balances()

	allowed, reason := g.Allow(stats, bal, initial)
	if allowed || !strings.Contains(reason, "daily loss limit") {
		t.Fatalf("allowed=%v reason=%q want daily loss limit", allowed, reason)
	}
	if !stats.InCooldown(noon.Add(time.Minute)) {
		t.Fatalf("expected cooldown after daily loss stop")
	}
}

func TestAllow_DailyLossDollars(t *testing.T) {
	cfg := baseRiskConfig()
	cfg.MaxDailyLossPercent = 20 // keep the percent check out of the way
	cfg.MaxDailyLossDollars = 200
	g := newTestGate(cfg, noon)
	stats := models.NewTradingStats(noon)
	stats.DailyPnL = decimal.NewFromInt(-250)
	bal, initial := balances()

	allowed, reason := g.Allow(stats, bal, initial)
	if allowed || !strings.Contains(reason, "$") {
		t.Fatalf("allowed=%v reason=%q want dollar loss limit", allowed, reason)
	}
}

func TestAllow_ConsecutiveLosses(t *testing.T) {
	g := newTestGate(baseRiskConfig(), noon)
	stats := models.NewTradingStats(noon)
	stats.ConsecutiveLosses = 3
	bal, initial := balances()

	allowed, reason := g.Allow(stats, bal, initial)
	if allowed || !strings.Contains(reason, "consecutive losses") {
		t.Fatalf("allowed=%v reason=%q want consecutive losses", allowed, reason)
	}
}

func TestAllow_KillSwitchPersists(t *testing.T) {
	g := newTestGate(baseRiskConfig(), noon)
	stats := models.NewTradingStats(noon)
	initial := decimal.NewFromInt(10000)
	drawn := decimal.NewFromInt(8900) // 11% drawdown

	allowed, reason := g.Allow(stats, drawn, initial)
	if allowed || !strings.Contains(reason, "kill switch") {
		t.Fatalf("allowed=%v reason=%q want kill switch", allowed, reason)
	}

	// Hours later, balance recovered, no cooldown in the way: still denied.
	g.Now = func() time.Time { return noon.Add(5 * time.Hour) }
	allowed, reason = g.Allow(stats, initial, initial)
	if allowed || !strings.Contains(reason, "kill switch") {
		t.Fatalf("kill switch must survive: allowed=%v reason=%q", allowed, reason)
	}

	// Only an explicit reset clears it.
	stats.ResetDaily(noon.Add(6 * time.Hour))
	allowed, _ = g.Allow(stats, initial, initial)
	if !allowed {
		t.Fatalf("reset should clear the kill switch")
	}
}

func TestAllow_CooldownExpiry(t *testing.T) {
	g := newTestGate(baseRiskConfig(), noon)
	stats := models.NewTradingStats(noon)
	stats.ConsecutiveLosses = 3
	bal, initial := balances()

	if allowed, _ := g.Allow(stats, bal, initial); allowed {
		t.Fatalf("expected denial on consecutive losses")
	}

	// Still inside the cooldown window.
	g.Now = func() time.Time { return noon.Add(10 * time.Minute) }
	if allowed, _ := g.Allow(stats, bal, initial); allowed {
		t.Fatalf("expected denial while cooling down")
	}

	// A win resets the streak; once the cooldown lapses the gate reopens.
	stats.RecordTrade(decimal.NewFromInt(5), noon.Add(20*time.Minute))
	g.Now = func() time.Time { return noon.Add(31 * time.Minute) }
	allowed, reason := g.Allow(stats, bal, initial)
	if !allowed {
		t.Fatalf("expected allow after cooldown expiry, reason=%q", reason)
	}
}

func TestAllow_StickyManualRestart(t *testing.T) {
	cfg := baseRiskConfig()
	cfg.RequireManualRestartAfterStop = true
	g := newTestGate(cfg, noon)
	stats := models.NewTradingStats(noon)
	stats.ConsecutiveLosses = 3
	bal, initial := balances()

	_, stopReason := g.Allow(stats, bal, initial)

	stats.RecordTrade(decimal.NewFromInt(5), noon.Add(20*time.Minute))
	g.Now = func() time.Time { return noon.Add(2 * time.Hour) }
	allowed, reason := g.Allow(stats, bal, initial)
	if allowed || reason != stopReason {
		t.Fatalf("allowed=%v reason=%q want sticky %q", allowed, reason, stopReason)
	}
}

func TestAllow_FrequencyThrottleIsSoft(t *testing.T) {
	g := newTestGate(baseRiskConfig(), noon)
	stats := models.NewTradingStats(noon)
	stats.LastTradeTime = noon.Add(-10 * time.Second)
	bal, initial := balances()

	allowed, reason := g.Allow(stats, bal, initial)
	if allowed || !strings.Contains(reason, "trade frequency") {
		t.Fatalf("allowed=%v reason=%q want trade frequency", allowed, reason)
	}
	if stats.StoppedByRiskLimit || !stats.CooldownUntil.IsZero() {
		t.Fatalf("throttle must not set a stop or cooldown")
	}

	g.Now = func() time.Time { return noon.Add(25 * time.Second) }
	if allowed, _ := g.Allow(stats, bal, initial); !allowed {
		t.Fatalf("expected allow once the gap exceeds the minimum")
	}
}
