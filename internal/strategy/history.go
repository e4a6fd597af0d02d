package strategy

import (
	"time"

	"github.com/shopspring/decimal"
)

type pricePoint struct {
	Price decimal.Decimal
	At    time.Time
}

// PriceHistory is a fixed-capacity rolling window of price samples for one
// symbol. Capacity assumes one sample per second over the entry timeframe.
type PriceHistory struct {
	capacity int
	samples  []pricePoint

	// now is factored for testability.
	now func() time.Time
}

func NewPriceHistory(timeframeMinutes int) *PriceHistory {
	if timeframeMinutes <= 0 {
		timeframeMinutes = 1
	}
	return &PriceHistory{
		capacity: timeframeMinutes * 60,
		now:      time.Now,
	}
}

func (h *PriceHistory) Add(price decimal.Decimal, at time.Time) {
	h.samples = append(h.samples, pricePoint{Price: price, At: at})
	if len(h.samples) > h.capacity {
		h.samples = h.samples[len(h.samples)-h.capacity:]
	}
}

func (h *PriceHistory) Len() int {
	return len(h.samples)
}

// High returns the highest price in the window ending now. A zero window
// spans the whole buffer.
func (h *PriceHistory) High(window time.Duration) (decimal.Decimal, bool) {
	if len(h.samples) == 0 {
		return decimal.Zero, false
	}
	cutoff := time.Time{}
	if window > 0 {
		cutoff = h.now().Add(-window)
	}
	high := decimal.Zero
	found := false
	for _, s := range h.samples {
		if !cutoff.IsZero() && s.At.Before(cutoff) {
			continue
		}
		if !found || s.Price.GreaterThan(high) {
			high = s.Price
			found = true
		}
	}
	return high, found
}

func (h *PriceHistory) Latest() (decimal.Decimal, bool) {
	if len(h.samples) == 0 {
		return decimal.Zero, false
	}
	return h.samples[len(h.samples)-1].Price, true
}
