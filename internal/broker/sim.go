package broker

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"scalpbot/internal/models"
)

// SimBroker simulates fills against a random-walk quote feed. Quotes drift up
// to 0.5% per tick and fills slip 0.01% to 0.05% against the order side.
type SimBroker struct {
	Logger *zap.Logger

	mu        sync.Mutex
	connected bool
	balance   decimal.Decimal
	prices    map[string]decimal.Decimal
	positions map[string]*Snapshot
	rng       *rand.Rand

	// now is factored for testability.
	now func() time.Time
}

func NewSimBroker(initialBalance decimal.Decimal, basePrices map[string]float64, logger *zap.Logger) *SimBroker {
	prices := make(map[string]decimal.Decimal, len(basePrices))
	for symbol, p := range basePrices {
		prices[symbol] = decimal.NewFromFloat(p)
	}
	return &SimBroker{
		Logger:    logger,
		balance:   initialBalance,
		prices:    prices,
		positions: map[string]*Snapshot{},
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		now:       time.Now,
	}
}

func (b *SimBroker) Connect(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.connected = true
	if b.Logger != nil {
		b.Logger.Info("sim broker connected", zap.String("balance", b.balance.StringFixed(2)))
	}
	return nil
}

func (b *SimBroker) Disconnect(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.connected = false
	return nil
}

func (b *SimBroker) CurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	last, ok := b.prices[symbol]
	if !ok {
		return decimal.Zero, false, nil
	}
	drift := decimal.NewFromFloat((b.rng.Float64() - 0.5) * 0.01)
	next := last.Mul(decimal.NewFromInt(1).Add(drift))
	b.prices[symbol] = next
	return next, true, nil
}

func (b *SimBroker) AccountBalance(ctx context.Context) (decimal.Decimal, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.balance, true, nil
}

func (b *SimBroker) Position(ctx context.Context, symbol string) (*Snapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	pos, ok := b.positions[symbol]
	if !ok {
		return nil, nil
	}
	cp := *pos
	return &cp, nil
}

func (b *SimBroker) Execute(ctx context.Context, trade *models.Trade) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.connected {
		return fmt.Errorf("sim broker not connected")
	}
	if trade == nil || trade.Quantity <= 0 {
		return fmt.Errorf("invalid trade")
	}

	slip := decimal.NewFromFloat(0.0001 + b.rng.Float64()*0.0004)
	qty := decimal.NewFromInt(trade.Quantity)
	now := b.now()

	switch trade.Action {
	case models.TradeActionBuy:
		fill := trade.Price.Mul(decimal.NewFromInt(1).Add(slip))
		cost := fill.Mul(qty)
		if cost.GreaterThan(b.balance) {
			trade.Status = models.TradeStatusFailed
			trade.FailureReason = fmt.Sprintf("insufficient funds: need %s, have %s",
				cost.StringFixed(2), b.balance.StringFixed(2))
			return nil
		}
		b.balance = b.balance.Sub(cost)
		b.addHolding(trade.Symbol, trade.Quantity, fill)
		trade.FilledPrice = fill
		trade.FilledAt = &now
		trade.OrderID = uuid.NewString()
		trade.Status = models.TradeStatusOpen

	case models.TradeActionSell:
		pos, ok := b.positions[trade.Symbol]
		if !ok || pos.Quantity < trade.Quantity {
			trade.Status = models.TradeStatusFailed
			trade.FailureReason = "no position to sell"
			return nil
		}
		fill := trade.Price.Mul(decimal.NewFromInt(1).Sub(slip))
		b.balance = b.balance.Add(fill.Mul(qty))
		pos.Quantity -= trade.Quantity
		if pos.Quantity == 0 {
			delete(b.positions, trade.Symbol)
		}
		trade.FilledPrice = fill
		trade.FilledAt = &now
		trade.OrderID = uuid.NewString()
		trade.Status = models.TradeStatusClosed

	default:
		return fmt.Errorf("unknown trade action %q", trade.Action)
	}

	if b.Logger != nil {
		b.Logger.Debug("sim broker filled trade",
			zap.String("symbol", trade.Symbol),
			zap.String("action", trade.Action),
			zap.Int64("quantity", trade.Quantity),
			zap.String("filled_price", trade.FilledPrice.StringFixed(4)),
		)
	}
	return nil
}

func (b *SimBroker) addHolding(symbol string, qty int64, price decimal.Decimal) {
	pos, ok := b.positions[symbol]
	if !ok {
		b.positions[symbol] = &Snapshot{Symbol: symbol, Quantity: qty, AvgPrice: price}
		return
	}
	oldQty := decimal.NewFromInt(pos.Quantity)
	newQty := decimal.NewFromInt(qty)
	total := oldQty.Add(newQty)
	pos.AvgPrice = pos.AvgPrice.Mul(oldQty).Add(price.Mul(newQty)).Div(total)
	pos.Quantity += qty
}
