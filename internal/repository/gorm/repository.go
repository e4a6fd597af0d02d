package gormrepository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"scalpbot/internal/models"
	"scalpbot/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) SaveTrade(ctx context.Context, rec *models.TradeRecord) error {
	if s == nil || s.db == nil || rec == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(rec).Error
}

func (s *Store) ListTrades(ctx context.Context, params repository.ListTradesParams) ([]models.TradeRecord, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := tradeQuery(s.db.WithContext(ctx), params)
	limit := normalizeLimit(params.Limit, 100)
	offset := normalizeOffset(params.Offset)
	var items []models.TradeRecord
	if err := query.Order("created_at desc").Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountTrades(ctx context.Context, params repository.ListTradesParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	if err := tradeQuery(s.db.WithContext(ctx), params).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func tradeQuery(db *gorm.DB, params repository.ListTradesParams) *gorm.DB {
	query := db.Model(&models.TradeRecord{})
	if params.Symbol != nil && strings.TrimSpace(*params.Symbol) != "" {
		query = query.Where("symbol = ?", strings.TrimSpace(*params.Symbol))
	}
	if params.Status != nil && strings.TrimSpace(*params.Status) != "" {
		query = query.Where("status = ?", strings.TrimSpace(*params.Status))
	}
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("created_at >= ?", *params.Since)
	}
	return query
}

func (s *Store) SavePosition(ctx context.Context, rec *models.PositionRecord) error {
	if s == nil || s.db == nil || rec == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(rec).Error
}

func (s *Store) ClosePosition(ctx context.Context, params repository.ClosePositionParams) error {
	if s == nil || s.db == nil {
		return nil
	}
	if strings.TrimSpace(params.EntryTradeID) == "" {
		return nil
	}
	closedAt := params.ClosedAt
	return s.db.WithContext(ctx).
		Model(&models.PositionRecord{}).
		Where("entry_trade_id = ?", params.EntryTradeID).
		Where("status = ?", models.PositionStatusOpen).
		Updates(map[string]any{
			"status":           models.PositionStatusClosed,
			"exit_price":       params.ExitPrice,
			"realized_pnl":     params.RealizedPnL,
			"realized_pnl_pct": params.RealizedPnLPct,
			"exit_trade_id":    params.ExitTradeID,
			"closed_at":        &closedAt,
		}).Error
}

func (s *Store) ListPositions(ctx context.Context, params repository.ListPositionsParams) ([]models.PositionRecord, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.PositionRecord{})
	if params.Symbol != nil && strings.TrimSpace(*params.Symbol) != "" {
		query = query.Where("symbol = ?", strings.TrimSpace(*params.Symbol))
	}
	if params.Status != nil && strings.TrimSpace(*params.Status) != "" {
		query = query.Where("status = ?", strings.TrimSpace(*params.Status))
	}
	limit := normalizeLimit(params.Limit, 100)
	offset := normalizeOffset(params.Offset)
	var items []models.PositionRecord
	if err := query.Order("opened_at desc").Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) SaveSession(ctx context.Context, rec *models.SessionRecord) error {
	if s == nil || s.db == nil || rec == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(rec).Error
}

func normalizeLimit(limit, def int) int {
	if limit <= 0 {
		return def
	}
	if limit > 1000 {
		return 1000
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
