package broker

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"scalpbot/internal/models"
)

func newTestSim(t *testing.T, balance int64) *SimBroker {
	t.Helper()
	b := NewSimBroker(decimal.NewFromInt(balance), map[string]float64{"AAPL": 190}, zap.NewNop())
	if err := b.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	return b
}

func TestSimBroker_BuyFill(t *testing.T) {
	b := newTestSim(t, 10000)
	trade := &models.Trade{
		Symbol:   "AAPL",
		Action:   models.TradeActionBuy,
		Quantity: 10,
		Price:    decimal.NewFromInt(100),
		Status:   models.TradeStatusPending,
	}
	if err := b.Execute(context.Background(), trade); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if trade.Status != models.TradeStatusOpen {
		t.Fatalf("status=%s want=open (%s)", trade.Status, trade.FailureReason)
	}
	if trade.OrderID == "" || trade.FilledAt == nil {
		t.Fatalf("fill metadata missing: order_id=%q filled_at=%v", trade.OrderID, trade.FilledAt)
	}

	// Buys slip against the order: fill in (100.01, 100.05].
	lo := decimal.NewFromFloat(100.01)
	hi := decimal.NewFromFloat(100.05)
	if trade.FilledPrice.LessThan(lo) || trade.FilledPrice.GreaterThan(hi) {
		t.Fatalf("fill=%s outside slippage band [%s, %s]",
			trade.FilledPrice.String(), lo.String(), hi.String())
	}

	cost := trade.FilledPrice.Mul(decimal.NewFromInt(10))
	bal, ok, err := b.AccountBalance(context.Background())
	if err != nil || !ok {
		t.Fatalf("balance: ok=%v err=%v", ok, err)
	}
	if want := decimal.NewFromInt(10000).Sub(cost); bal.Cmp(want) != 0 {
		t.Fatalf("balance=%s want=%s", bal.String(), want.String())
	}

	pos, err := b.Position(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("position: %v", err)
	}
	if pos == nil || pos.Quantity != 10 || pos.AvgPrice.Cmp(trade.FilledPrice) != 0 {
		t.Fatalf("holding=%+v want qty=10 avg=%s", pos, trade.FilledPrice.String())
	}
}

func TestSimBroker_InsufficientFunds(t *testing.T) {
	b := newTestSim(t, 50)
	trade := &models.Trade{
		Symbol:   "AAPL",
		Action:   models.TradeActionBuy,
		Quantity: 10,
		Price:    decimal.NewFromInt(100),
		Status:   models.TradeStatusPending,
	}
	if err := b.Execute(context.Background(), trade); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if trade.Status != models.TradeStatusFailed {
		t.Fatalf("status=%s want=failed", trade.Status)
	}
	if trade.FailureReason == "" {
		t.Fatalf("expected a failure reason")
	}
	bal, _, _ := b.AccountBalance(context.Background())
	if bal.Cmp(decimal.NewFromInt(50)) != 0 {
		t.Fatalf("failed buy must not touch the balance, got %s", bal.String())
	}
}

func TestSimBroker_SellWithoutPosition(t *testing.T) {
	b := newTestSim(t, 10000)
	trade := &models.Trade{
		Symbol:   "AAPL",
		Action:   models.TradeActionSell,
		Quantity: 5,
		Price:    decimal.NewFromInt(100),
		Status:   models.TradeStatusPending,
	}
	if err := b.Execute(context.Background(), trade); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if trade.Status != models.TradeStatusFailed || trade.FailureReason != "no position to sell" {
		t.Fatalf("status=%s reason=%q want failed / no position to sell", trade.Status, trade.FailureReason)
	}
}

func TestSimBroker_RoundTrip(t *testing.T) {
	b := newTestSim(t, 10000)
	ctx := context.Background()

	buy := &models.Trade{
		Symbol: "AAPL", Action: models.TradeActionBuy,
		Quantity: 10, Price: decimal.NewFromInt(100),
		Status: models.TradeStatusPending,
	}
	if err := b.Execute(ctx, buy); err != nil || buy.Status != models.TradeStatusOpen {
		t.Fatalf("buy failed: err=%v status=%s", err, buy.Status)
	}

	sell := &models.Trade{
		Symbol: "AAPL", Action: models.TradeActionSell,
		Quantity: 10, Price: decimal.NewFromInt(101),
		Status: models.TradeStatusPending,
	}
	if err := b.Execute(ctx, sell); err != nil || sell.Status != models.TradeStatusClosed {
		t.Fatalf("sell failed: err=%v status=%s (%s)", err, sell.Status, sell.FailureReason)
	}

	pos, err := b.Position(ctx, "AAPL")
	if err != nil {
		t.Fatalf("position: %v", err)
	}
	if pos != nil {
		t.Fatalf("holding should be gone after a full sell, got %+v", pos)
	}

	want := decimal.NewFromInt(10000).
		Sub(buy.FilledPrice.Mul(decimal.NewFromInt(10))).
		Add(sell.FilledPrice.Mul(decimal.NewFromInt(10)))
	bal, _, _ := b.AccountBalance(ctx)
	if bal.Cmp(want) != 0 {
		t.Fatalf("balance=%s want=%s", bal.String(), want.String())
	}
}

func TestSimBroker_UnknownSymbol(t *testing.T) {
	b := newTestSim(t, 10000)
	_, ok, err := b.CurrentPrice(context.Background(), "MSFT")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("unknown symbol should report ok=false")
	}
}

func TestSimBroker_QuoteDriftBounded(t *testing.T) {
	b := newTestSim(t, 10000)
	ctx := context.Background()
	last := decimal.NewFromInt(190)
	for i := 0; i < 50; i++ {
		p, ok, err := b.CurrentPrice(ctx, "AAPL")
		if err != nil || !ok {
			t.Fatalf("quote %d: ok=%v err=%v", i, ok, err)
		}
		move := p.Sub(last).Div(last).Abs()
		if move.GreaterThan(decimal.NewFromFloat(0.005)) {
			t.Fatalf("tick %d moved %s, beyond the 0.5%% walk", i, move.String())
		}
		last = p
	}
}
