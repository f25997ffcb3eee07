package dto

import (
	"time"

	"github.com/guttosm/flexsync/internal/token"
)

// RegisterTokenRequest is the body of POST /api/v1/tokens.
// IssuedAt defaults to the time of the request.
type RegisterTokenRequest struct {
	AccountID string     `json:"account_id" binding:"required" example:"U1234567"`
	Token     string     `json:"token" binding:"required" example:"123456789012345678901234"`
	IssuedAt  *time.Time `json:"issued_at,omitempty" example:"2026-01-15T08:00:00Z"`
}

// TokenStatusResponse lists the tracked tokens keyed by account id.
type TokenStatusResponse struct {
	Accounts map[string]token.Status `json:"accounts"`
}

// TokenRegisteredResponse echoes the status of a freshly registered token.
type TokenRegisteredResponse struct {
	AccountID string       `json:"account_id" example:"U1234567"`
	Status    token.Status `json:"status"`
}
