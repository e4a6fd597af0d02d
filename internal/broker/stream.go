package broker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"scalpbot/internal/config"
	"scalpbot/internal/models"
)

type quote struct {
	Price decimal.Decimal
	At    time.Time
}

type quoteMessage struct {
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
}

type subscribeRequest struct {
	Type    string   `json:"type"`
	Symbols []string `json:"symbols"`
}

// StreamBroker serves prices from a websocket quote stream. Order execution
// and account queries are not integrated: trades are marked failed and the
// balance reports ok=false, which keeps the engine on its session balance.
type StreamBroker struct {
	URL        string
	Symbols    []string
	Reconnect  time.Duration
	StaleAfter time.Duration
	Logger     *zap.Logger

	mu     sync.RWMutex
	quotes map[string]quote
	cancel context.CancelFunc

	// now is factored for testability.
	now func() time.Time
}

func NewStreamBroker(cfg config.BrokerConfig, symbols []string, logger *zap.Logger) *StreamBroker {
	reconnect := cfg.StreamReconnect
	if reconnect <= 0 {
		reconnect = 5 * time.Second
	}
	stale := cfg.QuoteStaleAfter
	if stale <= 0 {
		stale = 10 * time.Second
	}
	return &StreamBroker{
		URL:        cfg.StreamURL,
		Symbols:    symbols,
		Reconnect:  reconnect,
		StaleAfter: stale,
		Logger:     logger,
		quotes:     map[string]quote{},
		now:        time.Now,
	}
}

func (b *StreamBroker) Connect(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	b.mu.Lock()
	b.cancel = cancel
	b.mu.Unlock()
	go b.run(runCtx)
	return nil
}

func (b *StreamBroker) Disconnect(ctx context.Context) error {
	b.mu.Lock()
	cancel := b.cancel
	b.cancel = nil
	b.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	return nil
}

func (b *StreamBroker) run(ctx context.Context) {
	for {
		if err := b.streamOnce(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			if b.Logger != nil {
				b.Logger.Warn("quote stream disconnected", zap.Error(err))
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(b.Reconnect):
		}
	}
}

func (b *StreamBroker) streamOnce(ctx context.Context) error {
	conn, _, err := websocket.Dial(ctx, b.URL, nil)
	if err != nil {
		return err
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	sub := subscribeRequest{Type: "subscribe", Symbols: b.Symbols}
	payload, err := json.Marshal(sub)
	if err != nil {
		return err
	}
	if err := conn.Write(ctx, websocket.MessageText, payload); err != nil {
		return err
	}
	if b.Logger != nil {
		b.Logger.Info("quote stream connected", zap.String("url", b.URL), zap.Strings("symbols", b.Symbols))
	}

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		var msg quoteMessage
		if err := json.Unmarshal(data, &msg); err != nil || msg.Symbol == "" {
			continue
		}
		b.mu.Lock()
		b.quotes[msg.Symbol] = quote{Price: msg.Price, At: b.now()}
		b.mu.Unlock()
	}
}

func (b *StreamBroker) CurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, bool, error) {
	b.mu.RLock()
	q, ok := b.quotes[symbol]
	b.mu.RUnlock()
	if !ok {
		return decimal.Zero, false, nil
	}
	if b.now().Sub(q.At) > b.StaleAfter {
		return decimal.Zero, false, nil
	}
	return q.Price, true, nil
}

func (b *StreamBroker) AccountBalance(ctx context.Context) (decimal.Decimal, bool, error) {
	return decimal.Zero, false, nil
}

func (b *StreamBroker) Position(ctx context.Context, symbol string) (*Snapshot, error) {
	return nil, nil
}

func (b *StreamBroker) Execute(ctx context.Context, trade *models.Trade) error {
	if trade == nil {
		return nil
	}
	trade.Status = models.TradeStatusFailed
	trade.FailureReason = "live order placement not integrated yet"
	return nil
}
