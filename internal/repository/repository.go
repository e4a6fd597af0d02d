package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"scalpbot/internal/models"
)

type ListTradesParams struct {
	Limit  int
	Offset int
	Symbol *string
	Status *string
	Since  *time.Time
}

type ListPositionsParams struct {
	Limit  int
	Offset int
	Symbol *string
	Status *string
}

type ClosePositionParams struct {
	EntryTradeID   string
	ExitTradeID    string
	ExitPrice      decimal.Decimal
	RealizedPnL    decimal.Decimal
	RealizedPnLPct decimal.Decimal
	ClosedAt       time.Time
}

// Repository is the persistence sink for executed trades and position
// lifecycles. The engine treats it as best-effort and a nil Repository
// disables persistence entirely.
type Repository interface {
	SaveTrade(ctx context.Context, rec *models.TradeRecord) error
	ListTrades(ctx context.Context, params ListTradesParams) ([]models.TradeRecord, error)
	CountTrades(ctx context.Context, params ListTradesParams) (int64, error)

	SavePosition(ctx context.Context, rec *models.PositionRecord) error
	ClosePosition(ctx context.Context, params ClosePositionParams) error
	ListPositions(ctx context.Context, params ListPositionsParams) ([]models.PositionRecord, error)

	SaveSession(ctx context.Context, rec *models.SessionRecord) error
}
