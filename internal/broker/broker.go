package broker

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"scalpbot/internal/config"
	"scalpbot/internal/models"
)

// Snapshot is the broker's own view of a holding, independent of the engine's
// position bookkeeping.
type Snapshot struct {
	Symbol   string          `json:"symbol"`
	Quantity int64           `json:"quantity"`
	AvgPrice decimal.Decimal `json:"avg_price"`
}

// Broker is the execution capability boundary. Every call is fallible; the
// engine degrades by skipping rather than aborting when a call fails or
// reports ok=false.
type Broker interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error

	// Execute fills the trade or marks it failed. A returned error means the
	// trade could not be attempted at all.
	Execute(ctx context.Context, trade *models.Trade) error

	CurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, bool, error)
	AccountBalance(ctx context.Context) (decimal.Decimal, bool, error)
	Position(ctx context.Context, symbol string) (*Snapshot, error)
}

// New picks the broker implementation for the configured trading mode. Live
// mode without a stream URL falls back to the simulator.
func New(tcfg config.TradingConfig, bcfg config.BrokerConfig, symbols []string, logger *zap.Logger) Broker {
	mode := strings.ToLower(strings.TrimSpace(tcfg.Mode))
	if mode == "live" {
		if strings.TrimSpace(bcfg.StreamURL) == "" {
			if logger != nil {
				logger.Warn("live mode requested without broker.stream_url, falling back to simulator")
			}
		} else {
			return NewStreamBroker(bcfg, symbols, logger)
		}
	}
	return NewSimBroker(decimal.NewFromFloat(tcfg.InitialBalance), bcfg.BasePrices, logger)
}
