package dto

import "github.com/guttosm/flexsync/internal/domain/models"

// TradeListResponse is returned by GET /api/v1/trades.
type TradeListResponse struct {
	Count  int                   `json:"count" example:"2"`
	Trades []models.UnifiedTrade `json:"trades"`
}
