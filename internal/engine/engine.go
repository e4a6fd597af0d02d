package engine

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"scalpbot/internal/broker"
	"scalpbot/internal/config"
	"scalpbot/internal/models"
	"scalpbot/internal/repository"
	"scalpbot/internal/risk"
	"scalpbot/internal/strategy"
)

var (
	ErrAlreadyRunning = errors.New("engine already running")
	ErrNotRunning     = errors.New("engine not running")
	ErrEngineRunning  = errors.New("operation rejected while engine is running")
)

var hundred = decimal.NewFromInt(100)

// Engine drives one iteration of the trading loop at a time. A single mutex
// serializes iterations with the control surface, so external callers always
// observe a consistent snapshot between ticks.
type Engine struct {
	Broker   broker.Broker
	Strategy *strategy.Strategy
	Gate     *risk.Gate
	Store    repository.Repository
	Logger   *zap.Logger
	Risk     config.RiskConfig

	mu             sync.Mutex
	running        bool
	startedAt      time.Time
	balance        decimal.Decimal
	initialBalance decimal.Decimal
	positions      map[string]*models.Position
	trades         []*models.Trade
	stats          *models.TradingStats

	// now is factored for testability.
	now func() time.Time
}

func New(b broker.Broker, s *strategy.Strategy, g *risk.Gate, store repository.Repository, riskCfg config.RiskConfig, initialBalance decimal.Decimal, logger *zap.Logger) *Engine {
	e := &Engine{
		Broker:         b,
		Strategy:       s,
		Gate:           g,
		Store:          store,
		Logger:         logger,
		Risk:           riskCfg,
		balance:        initialBalance,
		initialBalance: initialBalance,
		positions:      map[string]*models.Position{},
		now:            time.Now,
	}
	e.stats = models.NewTradingStats(e.now())
	return e
}

// Start begins a trading session. The broker connection is the caller's
// responsibility. The initial balance is fixed for the session: risk limits
// are evaluated against it until the next daily reset.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return ErrAlreadyRunning
	}

	if bal, ok, err := e.Broker.AccountBalance(ctx); err != nil {
		if e.Logger != nil {
			e.Logger.Warn("initial balance fetch failed, using configured balance", zap.Error(err))
		}
	} else if ok {
		e.balance = bal
		e.initialBalance = bal
	}

	e.running = true
	e.startedAt = e.now()
	accountBalanceGauge.Set(e.balance.InexactFloat64())
	if e.Logger != nil {
		e.Logger.Info("engine started",
			zap.String("balance", e.balance.StringFixed(2)),
			zap.Strings("symbols", e.Strategy.Config.Symbols),
		)
	}
	return nil
}

// Stop halts trading. When the strategy is configured to flatten at end of
// day, open positions are closed best-effort: a missing price leaves the
// position open rather than failing the stop.
func (e *Engine) Stop(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running {
		return ErrNotRunning
	}
	if e.Strategy.Config.ClosePositionsAtEOD {
		e.closeAllLocked(ctx, "engine stop")
	}
	e.running = false
	e.persistSession(ctx)
	if e.Logger != nil {
		e.Logger.Info("engine stopped",
			zap.String("balance", e.balance.StringFixed(2)),
			zap.Int("open_positions", len(e.positions)),
		)
	}
	return nil
}

// RunIteration performs one pass of the trading loop. It is a no-op when the
// engine is not running. A panic inside the iteration is recovered here so a
// single bad tick cannot take the process down.
func (e *Engine) RunIteration(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			if e.Logger != nil {
				e.Logger.Error("iteration panic recovered", zap.Any("panic", r))
			}
		}
	}()

	if !e.running {
		return nil
	}
	iterationsTotal.Inc()

	if e.Strategy.ShouldCloseAllPositions() && len(e.positions) > 0 {
		e.closeAllLocked(ctx, "end of day")
		return nil
	}

	if bal, ok, err := e.Broker.AccountBalance(ctx); err != nil {
		if e.Logger != nil {
			e.Logger.Warn("balance refresh failed, keeping last known balance", zap.Error(err))
		}
	} else if ok {
		e.balance = bal
	}
	accountBalanceGauge.Set(e.balance.InexactFloat64())

	if allowed, reason := e.Gate.Allow(e.stats, e.balance, e.initialBalance); !allowed {
		riskDenialsTotal.Inc()
		if e.Logger != nil {
			e.Logger.Debug("iteration skipped by risk gate", zap.String("reason", reason))
		}
		return nil
	}

	for _, symbol := range e.Strategy.Config.Symbols {
		price, ok, err := e.Broker.CurrentPrice(ctx, symbol)
		if err != nil {
			if e.Logger != nil {
				e.Logger.Warn("price fetch failed", zap.String("symbol", symbol), zap.Error(err))
			}
			continue
		}
		if !ok {
			continue
		}
		e.Strategy.UpdatePrice(symbol, price)

		if pos, held := e.positions[symbol]; held {
			if exit, reason := e.Strategy.ShouldExit(pos, price); exit {
				e.closePosition(ctx, pos, price, reason)
			}
			continue
		}

		if len(e.positions) >= e.Risk.MaxPositions {
			continue
		}
		enter, reason := e.Strategy.ShouldEnter(symbol, price)
		if !enter {
			continue
		}
		e.openPosition(ctx, symbol, price, reason)
	}
	return nil
}

func (e *Engine) openPosition(ctx context.Context, symbol string, price decimal.Decimal, reason string) {
	qty := positionSize(e.balance, price, e.Risk)
	if qty <= 0 {
		return
	}

	trade := &models.Trade{
		ID:        uuid.NewString(),
		Symbol:    symbol,
		Action:    models.TradeActionBuy,
		Quantity:  qty,
		Price:     price,
		Status:    models.TradeStatusPending,
		CreatedAt: e.now(),
	}
	if err := e.Broker.Execute(ctx, trade); err != nil {
		if e.Logger != nil {
			e.Logger.Warn("entry order failed", zap.String("symbol", symbol), zap.Error(err))
		}
		return
	}
	e.trades = append(e.trades, trade)
	e.persistTrade(ctx, trade, reason)
	tradesTotal.WithLabelValues(trade.Action, trade.Status).Inc()
	if trade.Status == models.TradeStatusFailed {
		if e.Logger != nil {
			e.Logger.Warn("entry order rejected",
				zap.String("symbol", symbol),
				zap.String("failure_reason", trade.FailureReason),
			)
		}
		return
	}

	now := e.now()
	pos := &models.Position{
		Symbol:       symbol,
		Quantity:     qty,
		EntryPrice:   trade.FilledPrice,
		EntryTime:    now,
		Status:       models.PositionStatusOpen,
		CurrentPrice: trade.FilledPrice,
		PeakPrice:    trade.FilledPrice,
		EntryTradeID: trade.ID,
	}
	e.positions[symbol] = pos
	openPositionsGauge.Set(float64(len(e.positions)))
	e.persistPositionOpen(ctx, pos)
	if e.Logger != nil {
		e.Logger.Info("position opened",
			zap.String("symbol", symbol),
			zap.Int64("quantity", qty),
			zap.String("entry_price", trade.FilledPrice.StringFixed(4)),
			zap.String("reason", reason),
		)
	}
}

func (e *Engine) closePosition(ctx context.Context, pos *models.Position, price decimal.Decimal, reason string) bool {
	trade := &models.Trade{
		ID:        uuid.NewString(),
		Symbol:    pos.Symbol,
		Action:    models.TradeActionSell,
		Quantity:  pos.Quantity,
		Price:     price,
		Status:    models.TradeStatusPending,
		CreatedAt: e.now(),
	}
	if err := e.Broker.Execute(ctx, trade); err != nil {
		if e.Logger != nil {
			e.Logger.Warn("exit order failed", zap.String("symbol", pos.Symbol), zap.Error(err))
		}
		return false
	}
	e.trades = append(e.trades, trade)
	if trade.Status == models.TradeStatusFailed {
		e.persistTrade(ctx, trade, reason)
		tradesTotal.WithLabelValues(trade.Action, trade.Status).Inc()
		if e.Logger != nil {
			e.Logger.Warn("exit order rejected",
				zap.String("symbol", pos.Symbol),
				zap.String("failure_reason", trade.FailureReason),
			)
		}
		return false
	}

	pnl, _ := pos.CalcRealizedPnL(trade.FilledPrice)
	trade.PnL = &pnl
	now := e.now()
	pos.Status = models.PositionStatusClosed
	pos.ExitTradeID = trade.ID
	pos.ExitTime = &now
	delete(e.positions, pos.Symbol)
	e.stats.RecordTrade(pnl, now)

	e.persistTrade(ctx, trade, reason)
	e.persistPositionClose(ctx, pos, trade)
	tradesTotal.WithLabelValues(trade.Action, trade.Status).Inc()
	openPositionsGauge.Set(float64(len(e.positions)))
	dailyPnLGauge.Set(e.stats.DailyPnL.InexactFloat64())
	if e.Logger != nil {
		e.Logger.Info("position closed",
			zap.String("symbol", pos.Symbol),
			zap.String("exit_price", trade.FilledPrice.StringFixed(4)),
			zap.String("pnl", pnl.StringFixed(2)),
			zap.String("reason", reason),
		)
	}
	return true
}

func (e *Engine) closeAllLocked(ctx context.Context, reason string) {
	for _, pos := range e.positions {
		price, ok, err := e.Broker.CurrentPrice(ctx, pos.Symbol)
		if err != nil || !ok {
			if e.Logger != nil {
				e.Logger.Warn("cannot close position without a price, leaving open",
					zap.String("symbol", pos.Symbol), zap.Error(err))
			}
			continue
		}
		e.closePosition(ctx, pos, price, reason)
	}
}

// CloseAllPositions flattens every open position at the current market price.
func (e *Engine) CloseAllPositions(ctx context.Context, reason string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closeAllLocked(ctx, reason)
}

// ResetDailyStats clears the daily counters and any risk stop. It is rejected
// while the engine is running so a stop cannot be cleared mid-session by
// accident.
func (e *Engine) ResetDailyStats() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return ErrEngineRunning
	}
	e.stats.ResetDaily(e.now())
	e.initialBalance = e.balance
	return nil
}

// RolloverDaily performs the scheduled midnight reset. Unlike ResetDailyStats
// it also runs while the engine is running: the new day starts with fresh
// counters and the current balance as the new session baseline.
func (e *Engine) RolloverDaily() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stats.ResetDaily(e.now())
	e.initialBalance = e.balance
	if e.Logger != nil {
		e.Logger.Info("daily stats rolled over", zap.String("baseline_balance", e.balance.StringFixed(2)))
	}
}

// UpdateConfig replaces the strategy and risk configuration. Rejected while
// running.
func (e *Engine) UpdateConfig(scfg config.StrategyConfig, rcfg config.RiskConfig) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return ErrEngineRunning
	}
	if err := scfg.Validate(); err != nil {
		return err
	}
	if err := rcfg.Validate(); err != nil {
		return err
	}
	strat, err := strategy.New(scfg, e.Logger)
	if err != nil {
		return err
	}
	e.Strategy = strat
	e.Gate = risk.New(rcfg, e.Logger)
	e.Risk = rcfg
	return nil
}

func (e *Engine) Config() (config.StrategyConfig, config.RiskConfig) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Strategy.Config, e.Risk
}

type Status struct {
	Running        bool                `json:"running"`
	StartedAt      *time.Time          `json:"started_at,omitempty"`
	Balance        decimal.Decimal     `json:"balance"`
	InitialBalance decimal.Decimal     `json:"initial_balance"`
	OpenPositions  int                 `json:"open_positions"`
	Stats          models.TradingStats `json:"stats"`
}

func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	st := Status{
		Running:        e.running,
		Balance:        e.balance,
		InitialBalance: e.initialBalance,
		OpenPositions:  len(e.positions),
		Stats:          *e.stats,
	}
	if !e.startedAt.IsZero() {
		t := e.startedAt
		st.StartedAt = &t
	}
	return st
}

func (e *Engine) Stats() models.TradingStats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return *e.stats
}

func (e *Engine) Positions() []models.Position {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]models.Position, 0, len(e.positions))
	for _, pos := range e.positions {
		out = append(out, *pos)
	}
	return out
}

// positionSize computes the share quantity for a new entry: the configured
// percentage of balance at price, clamped by the per-position value and share
// caps. Fractions always round down.
func positionSize(balance, price decimal.Decimal, cfg config.RiskConfig) int64 {
	if price.LessThanOrEqual(decimal.Zero) || balance.LessThanOrEqual(decimal.Zero) {
		return 0
	}
	alloc := balance.Mul(decimal.NewFromFloat(cfg.PositionSizePercent)).Div(hundred)
	qty := alloc.Div(price).IntPart()
	if cfg.MaxPositionValueDollars > 0 {
		capQty := decimal.NewFromFloat(cfg.MaxPositionValueDollars).Div(price).IntPart()
		if capQty < qty {
			qty = capQty
		}
	}
	if cfg.MaxSharesPerTrade > 0 && qty > cfg.MaxSharesPerTrade {
		qty = cfg.MaxSharesPerTrade
	}
	if qty < 0 {
		return 0
	}
	return qty
}

func (e *Engine) persistTrade(ctx context.Context, trade *models.Trade, reason string) {
	if e.Store == nil {
		return
	}
	meta, _ := json.Marshal(map[string]string{"reason": reason})
	rec := &models.TradeRecord{
		TradeID:       trade.ID,
		Symbol:        trade.Symbol,
		Action:        trade.Action,
		Quantity:      trade.Quantity,
		Price:         trade.Price,
		FilledPrice:   trade.FilledPrice,
		Status:        trade.Status,
		OrderID:       trade.OrderID,
		FailureReason: trade.FailureReason,
		PnL:           trade.PnL,
		FilledAt:      trade.FilledAt,
		Meta:          datatypes.JSON(meta),
	}
	if err := e.Store.SaveTrade(ctx, rec); err != nil && e.Logger != nil {
		e.Logger.Warn("trade persist failed", zap.String("trade_id", trade.ID), zap.Error(err))
	}
}

func (e *Engine) persistPositionOpen(ctx context.Context, pos *models.Position) {
	if e.Store == nil {
		return
	}
	rec := &models.PositionRecord{
		Symbol:       pos.Symbol,
		Quantity:     pos.Quantity,
		EntryPrice:   pos.EntryPrice,
		Status:       models.PositionStatusOpen,
		EntryTradeID: pos.EntryTradeID,
		OpenedAt:     pos.EntryTime,
	}
	if err := e.Store.SavePosition(ctx, rec); err != nil && e.Logger != nil {
		e.Logger.Warn("position persist failed", zap.String("symbol", pos.Symbol), zap.Error(err))
	}
}

func (e *Engine) persistPositionClose(ctx context.Context, pos *models.Position, trade *models.Trade) {
	if e.Store == nil {
		return
	}
	err := e.Store.ClosePosition(ctx, repository.ClosePositionParams{
		EntryTradeID:   pos.EntryTradeID,
		ExitTradeID:    trade.ID,
		ExitPrice:      trade.FilledPrice,
		RealizedPnL:    pos.RealizedPnL,
		RealizedPnLPct: pos.RealizedPnLPct,
		ClosedAt:       e.now(),
	})
	if err != nil && e.Logger != nil {
		e.Logger.Warn("position close persist failed", zap.String("symbol", pos.Symbol), zap.Error(err))
	}
}

func (e *Engine) persistSession(ctx context.Context) {
	if e.Store == nil {
		return
	}
	now := e.now()
	statsJSON, _ := json.Marshal(e.stats)
	rec := &models.SessionRecord{
		StartedAt:      e.startedAt,
		EndedAt:        &now,
		InitialBalance: e.initialBalance,
		FinalBalance:   e.balance,
		DailyTrades:    e.stats.DailyTrades,
		DailyPnL:       e.stats.DailyPnL,
		StopReason:     e.stats.StopReason,
		Stats:          datatypes.JSON(statsJSON),
	}
	if err := e.Store.SaveSession(ctx, rec); err != nil && e.Logger != nil {
		e.Logger.Warn("session persist failed", zap.Error(err))
	}
}

// Trades returns the most recent trades, newest last.
func (e *Engine) Trades(limit int) []models.Trade {
	e.mu.Lock()
	defer e.mu.Unlock()
	if limit <= 0 || limit > len(e.trades) {
		limit = len(e.trades)
	}
	out := make([]models.Trade, 0, limit)
	for _, t := range e.trades[len(e.trades)-limit:] {
		out = append(out, *t)
	}
	return out
}
