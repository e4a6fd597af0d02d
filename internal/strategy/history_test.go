package strategy

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func d(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	v, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return v
}

func TestPriceHistory_CapacityEviction(t *testing.T) {
	h := NewPriceHistory(1) // 60 samples
	base := time.Date(2024, 3, 6, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 61; i++ {
		h.Add(decimal.NewFromInt(int64(100+i)), base.Add(time.Duration(i)*time.Second))
	}
	if h.Len() != 60 {
		t.Fatalf("len=%d want=60", h.Len())
	}
	latest, ok := h.Latest()
	if !ok || latest.Cmp(decimal.NewFromInt(160)) != 0 {
		t.Fatalf("latest=%s ok=%v want=160", latest.String(), ok)
	}
	// The oldest sample (100) must be gone.
	high, ok := h.High(0)
	if !ok || high.Cmp(decimal.NewFromInt(160)) != 0 {
		t.Fatalf("high=%s ok=%v want=160", high.String(), ok)
	}
}

func TestPriceHistory_HighWindow(t *testing.T) {
	h := NewPriceHistory(5)
	base := time.Date(2024, 3, 6, 12, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return base }

	h.Add(d(t, "110"), base.Add(-10*time.Minute))
	h.Add(d(t, "105"), base.Add(-2*time.Minute))
	h.Add(d(t, "101"), base.Add(-30*time.Second))

	high, ok := h.High(5 * time.Minute)
	if !ok || high.Cmp(d(t, "105")) != 0 {
		t.Fatalf("high=%s ok=%v want=105", high.String(), ok)
	}

	high, ok = h.High(0)
	if !ok || high.Cmp(d(t, "110")) != 0 {
		t.Fatalf("whole-buffer high=%s ok=%v want=110", high.String(), ok)
	}

	if _, ok := h.High(10 * time.Second); ok {
		t.Fatalf("expected no samples inside a 10s window")
	}
}

func TestPriceHistory_Empty(t *testing.T) {
	h := NewPriceHistory(5)
	if _, ok := h.High(0); ok {
		t.Fatalf("empty history should have no high")
	}
	if _, ok := h.Latest(); ok {
		t.Fatalf("empty history should have no latest")
	}
}
