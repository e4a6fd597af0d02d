package strategy

import (
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"scalpbot/internal/config"
	"scalpbot/internal/models"
)

// midday on a Wednesday, well inside trading hours
var midday = time.Date(2024, 3, 6, 12, 0, 0, 0, time.UTC)

func testStrategyConfig() config.StrategyConfig {
	return config.StrategyConfig{
		Symbols:               []string{"AAPL"},
		EntryDropPercent:      0.5,
		ExitProfitPercent:     0.5,
		StopLossPercent:       1.0,
		UseTrailingStop:       true,
		TrailingStopPercent:   0.3,
		EntryTimeframeMinutes: 5,
		AvoidFirstMinutes:     15,
		AvoidLastMinutes:      15,
		ClosePositionsAtEOD:   true,
		ExchangeTimezone:      "UTC",
	}
}

func newTestStrategy(t *testing.T, cfg config.StrategyConfig, now time.Time) *Strategy {
	t.Helper()
	s, err := New(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("strategy init failed: %v", err)
	}
	s.Now = func() time.Time { return now }
	return s
}

func TestShouldEnter_DropBoundaryInclusive(t *testing.T) {
	s := newTestStrategy(t, testStrategyConfig(), midday)
	s.UpdatePrice("AAPL", d(t, "100"))

	enter, reason := s.ShouldEnter("AAPL", d(t, "99.5"))
	if !enter {
		t.Fatalf("drop of exactly 0.5%% should enter, reason=%q", reason)
	}
	if enter, _ := s.ShouldEnter("AAPL", d(t, "99.51")); enter {
		t.Fatalf("drop of 0.49%% should not enter")
	}
}

func TestShouldEnter_NoHistory(t *testing.T) {
	s := newTestStrategy(t, testStrategyConfig(), midday)
	enter, reason := s.ShouldEnter("AAPL", d(t, "100"))
	if enter || reason != "no price history" {
		t.Fatalf("enter=%v reason=%q want no price history", enter, reason)
	}
}

func TestShouldEnter_OutsideHours(t *testing.T) {
	early := time.Date(2024, 3, 6, 9, 40, 0, 0, time.UTC) // inside avoid_first buffer
	s := newTestStrategy(t, testStrategyConfig(), early)
	s.UpdatePrice("AAPL", d(t, "100"))
	enter, reason := s.ShouldEnter("AAPL", d(t, "99"))
	if enter || reason != "outside trading hours" {
		t.Fatalf("enter=%v reason=%q want outside trading hours", enter, reason)
	}
}

func TestShouldExit_StopLossPrecedence(t *testing.T) {
	s := newTestStrategy(t, testStrategyConfig(), midday)
	pos := &models.Position{
		Symbol:     "AAPL",
		Quantity:   10,
		EntryPrice: d(t, "100"),
		PeakPrice:  d(t, "100"),
		Status:     models.PositionStatusOpen,
	}
	// 98 satisfies both stop-loss (-2%) and the trailing stop; stop-loss wins.
	exit, reason := s.ShouldExit(pos, d(t, "98"))
	if !exit || !strings.Contains(reason, "stop loss") {
		t.Fatalf("exit=%v reason=%q want stop loss", exit, reason)
	}
}

func TestShouldExit_TrailingStopSequence(t *testing.T) {
	s := newTestStrategy(t, testStrategyConfig(), midday)
	pos := &models.Position{
		Symbol:     "AAPL",
		Quantity:   10,
		EntryPrice: d(t, "100"),
		PeakPrice:  d(t, "100"),
		Status:     models.PositionStatusOpen,
	}

	if exit, _ := s.ShouldExit(pos, d(t, "101")); exit {
		t.Fatalf("tick 1 should not exit")
	}
	if pos.PeakPrice.Cmp(d(t, "101")) != 0 {
		t.Fatalf("peak=%s want=101", pos.PeakPrice.String())
	}
	if exit, _ := s.ShouldExit(pos, d(t, "100.8")); exit {
		t.Fatalf("tick 2 should not exit: 100.8 > 100.697")
	}
	exit, reason := s.ShouldExit(pos, d(t, "100.6"))
	if !exit || !strings.Contains(reason, "trailing stop") {
		t.Fatalf("tick 3 exit=%v reason=%q want trailing stop", exit, reason)
	}
	if pos.TrailingStopPrice.Cmp(d(t, "100.697")) != 0 {
		t.Fatalf("trail=%s want=100.697", pos.TrailingStopPrice.String())
	}
}

func TestShouldExit_ProfitTarget(t *testing.T) {
	cfg := testStrategyConfig()
	cfg.UseTrailingStop = false
	s := newTestStrategy(t, cfg, midday)
	pos := &models.Position{
		Symbol:     "AAPL",
		Quantity:   10,
		EntryPrice: d(t, "100"),
		PeakPrice:  d(t, "100"),
		Status:     models.PositionStatusOpen,
	}
	if exit, _ := s.ShouldExit(pos, d(t, "100.4")); exit {
		t.Fatalf("+0.4%% should not hit a 0.5%% target")
	}
	exit, reason := s.ShouldExit(pos, d(t, "100.5"))
	if !exit || !strings.Contains(reason, "profit target") {
		t.Fatalf("exit=%v reason=%q want profit target", exit, reason)
	}
}

func TestInTradingHours(t *testing.T) {
	cases := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"midday", midday, true},
		{"before open buffer", time.Date(2024, 3, 6, 9, 44, 59, 0, time.UTC), false},
		{"at open buffer", time.Date(2024, 3, 6, 9, 45, 0, 0, time.UTC), true},
		{"at close buffer", time.Date(2024, 3, 6, 15, 45, 0, 0, time.UTC), true},
		{"after close buffer", time.Date(2024, 3, 6, 15, 45, 1, 0, time.UTC), false},
		{"saturday", time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestStrategy(t, testStrategyConfig(), tc.now)
			if got := s.InTradingHours(); got != tc.want {
				t.Fatalf("InTradingHours()=%v want=%v", got, tc.want)
			}
		})
	}
}

func TestShouldCloseAllPositions(t *testing.T) {
	s := newTestStrategy(t, testStrategyConfig(), time.Date(2024, 3, 6, 15, 46, 0, 0, time.UTC))
	if !s.ShouldCloseAllPositions() {
		t.Fatalf("15:46 with a 15m close buffer should flatten")
	}

	s = newTestStrategy(t, testStrategyConfig(), time.Date(2024, 3, 6, 15, 44, 0, 0, time.UTC))
	if s.ShouldCloseAllPositions() {
		t.Fatalf("15:44 should not flatten yet")
	}

	cfg := testStrategyConfig()
	cfg.ClosePositionsAtEOD = false
	s = newTestStrategy(t, cfg, time.Date(2024, 3, 6, 15, 46, 0, 0, time.UTC))
	if s.ShouldCloseAllPositions() {
		t.Fatalf("flatten disabled by config")
	}
}
