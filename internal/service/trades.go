package service

import (
	"context"
	"fmt"

	"github.com/guttosm/flexsync/internal/domain/models"
	"github.com/guttosm/flexsync/internal/flex"
	"github.com/guttosm/flexsync/internal/storage"
)

// MaxListLimit caps a single trade listing.
const MaxListLimit = 5000

// TradeService reads persisted unified trades.
type TradeService interface {
	ListTrades(ctx context.Context, filter storage.TradeFilter) ([]models.UnifiedTrade, error)
}

type tradeService struct {
	repo storage.TradesRepository
}

func NewTradeService(repo storage.TradesRepository) TradeService {
	return &tradeService{repo: repo}
}

func (s *tradeService) ListTrades(ctx context.Context, filter storage.TradeFilter) ([]models.UnifiedTrade, error) {
	if filter.From != nil && filter.To != nil && !filter.From.Before(*filter.To) {
		return nil, fmt.Errorf("%w: from must be before to", flex.ErrValidation)
	}
	switch filter.Source {
	case "", models.SourceRealtime, models.SourceSettlement:
	default:
		return nil, fmt.Errorf("%w: unknown source %q", flex.ErrValidation, filter.Source)
	}
	if filter.Limit <= 0 || filter.Limit > MaxListLimit {
		filter.Limit = MaxListLimit
	}
	return s.repo.ListTrades(ctx, filter)
}
