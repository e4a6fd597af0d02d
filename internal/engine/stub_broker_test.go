package engine

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"scalpbot/internal/broker"
	"scalpbot/internal/models"
)

// stubBroker feeds scripted quotes and fills every order at the requested
// price. The last quote in a queue is repeated once the queue drains to one.
type stubBroker struct {
	prices     map[string][]decimal.Decimal
	balance    decimal.Decimal
	balanceOK  bool
	execErr    error
	rejectExec bool

	executed []*models.Trade
}

func newStubBroker(balance int64, prices map[string][]decimal.Decimal) *stubBroker {
	return &stubBroker{
		prices:    prices,
		balance:   decimal.NewFromInt(balance),
		balanceOK: true,
	}
}

func (b *stubBroker) Connect(ctx context.Context) error    { return nil }
func (b *stubBroker) Disconnect(ctx context.Context) error { return nil }

func (b *stubBroker) CurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, bool, error) {
	q, ok := b.prices[symbol]
	if !ok || len(q) == 0 {
		return decimal.Zero, false, nil
	}
	price := q[0]
	if len(q) > 1 {
		b.prices[symbol] = q[1:]
	}
	return price, true, nil
}

func (b *stubBroker) AccountBalance(ctx context.Context) (decimal.Decimal, bool, error) {
	return b.balance, b.balanceOK, nil
}

func (b *stubBroker) Position(ctx context.Context, symbol string) (*broker.Snapshot, error) {
	return nil, nil
}

func (b *stubBroker) Execute(ctx context.Context, trade *models.Trade) error {
	if b.execErr != nil {
		return b.execErr
	}
	b.executed = append(b.executed, trade)
	if b.rejectExec {
		trade.Status = models.TradeStatusFailed
		trade.FailureReason = "rejected"
		return nil
	}
	trade.FilledPrice = trade.Price
	trade.OrderID = fmt.Sprintf("stub-%d", len(b.executed))
	switch trade.Action {
	case models.TradeActionBuy:
		trade.Status = models.TradeStatusOpen
	case models.TradeActionSell:
		trade.Status = models.TradeStatusClosed
	}
	return nil
}

var _ broker.Broker = (*stubBroker)(nil)
