package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/guttosm/flexsync/config"
	"github.com/guttosm/flexsync/internal/flex"
	"github.com/guttosm/flexsync/internal/logger"
	"github.com/guttosm/flexsync/internal/token"
)

// TokenService serialises access to a token.Tracker so HTTP handlers and
// concurrent account syncs can share it. It also satisfies ingestion.TokenSource.
type TokenService interface {
	Register(ctx context.Context, accountID, tok string, issuedAt *time.Time) (token.Status, error)
	Status(ctx context.Context) map[string]token.Status
	Remove(ctx context.Context, accountID string) error
	ValidToken(accountID string) (string, error)
}

type tokenService struct {
	mu      sync.Mutex
	tracker *token.Tracker
}

func NewTokenService(tracker *token.Tracker) TokenService {
	return &tokenService{tracker: tracker}
}

// Register stores the token. Input errors are reported as validation errors.
func (s *tokenService) Register(_ context.Context, accountID, tok string, issuedAt *time.Time) (token.Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if issuedAt != nil {
		_, err = s.tracker.RegisterAt(tok, accountID, *issuedAt)
	} else {
		_, err = s.tracker.Register(tok, accountID)
	}
	if errors.Is(err, token.ErrInvalidInput) {
		return token.Status{}, fmt.Errorf("%w: %w", flex.ErrValidation, err)
	}
	if err != nil {
		return token.Status{}, err
	}
	return s.tracker.StatusReport()[accountID], nil
}

func (s *tokenService) Status(_ context.Context) map[string]token.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracker.StatusReport()
}

// Remove fails with token.ErrNotRegistered for unknown accounts.
func (s *tokenService) Remove(_ context.Context, accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.tracker.Remove(accountID) {
		return fmt.Errorf("%w: %s", token.ErrNotRegistered, accountID)
	}
	return nil
}

func (s *tokenService) ValidToken(accountID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracker.ValidToken(accountID)
}

// RegisterConfigured loads the tokens listed in IB_JSON. Accounts without a
// token are skipped; without token_issued_at the token counts as issued now.
func RegisterConfigured(ctx context.Context, svc TokenService, accounts []config.Account) int {
	n := 0
	for _, a := range accounts {
		if a.FlexToken == "" {
			continue
		}
		if _, err := svc.Register(ctx, a.AccountID, a.FlexToken, a.TokenIssuedAt); err != nil {
			logger.L().Warn().Str("account", a.AccountID).Err(err).Msg("configured token not registered")
			continue
		}
		n++
	}
	return n
}
