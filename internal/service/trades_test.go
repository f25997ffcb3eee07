package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/guttosm/flexsync/internal/domain/models"
	"github.com/guttosm/flexsync/internal/flex"
	"github.com/guttosm/flexsync/internal/storage"
)

type stubRepo struct {
	trades  []models.UnifiedTrade
	err     error
	filters []storage.TradeFilter
}

func (s *stubRepo) UpsertTrades(_ context.Context, trades []models.UnifiedTrade) (int64, error) {
	s.trades = append(s.trades, trades...)
	return int64(len(trades)), s.err
}
func (s *stubRepo) OverwriteTrades(ctx context.Context, trades []models.UnifiedTrade) (int64, error) {
	return s.UpsertTrades(ctx, trades)
}
func (s *stubRepo) ListTrades(_ context.Context, f storage.TradeFilter) ([]models.UnifiedTrade, error) {
	s.filters = append(s.filters, f)
	return s.trades, s.err
}
func (s *stubRepo) DeleteTradesByAccount(context.Context, string) (int64, error) { return 0, nil }
func (s *stubRepo) RecordFetch(context.Context, models.FetchLog) error           { return nil }
func (s *stubRepo) LastFetch(context.Context, string) (*models.FetchLog, error) {
	return nil, nil
}

func TestTradeService_ListTrades_TableDriven(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 7)

	cases := []struct {
		name      string
		repo      *stubRepo
		filter    storage.TradeFilter
		wantErr   error
		wantLimit int
	}{
		{
			name:      "success with default limit",
			repo:      &stubRepo{trades: []models.UnifiedTrade{{ExecutionID: "E1"}}},
			filter:    storage.TradeFilter{AccountID: "U1", From: &from, To: &to},
			wantLimit: MaxListLimit,
		},
		{
			name:      "explicit limit kept",
			repo:      &stubRepo{},
			filter:    storage.TradeFilter{Source: models.SourceRealtime, Limit: 10},
			wantLimit: 10,
		},
		{
			name:    "inverted range",
			repo:    &stubRepo{},
			filter:  storage.TradeFilter{From: &to, To: &from},
			wantErr: flex.ErrValidation,
		},
		{
			name:    "unknown source",
			repo:    &stubRepo{},
			filter:  storage.TradeFilter{Source: "TWS"},
			wantErr: flex.ErrValidation,
		},
		{
			name:    "repository error",
			repo:    &stubRepo{err: errors.New("boom")},
			filter:  storage.TradeFilter{},
			wantErr: errors.New("boom"),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := NewTradeService(tc.repo)
			out, err := svc.ListTrades(context.Background(), tc.filter)
			if tc.wantErr != nil {
				if err == nil || (errors.Is(tc.wantErr, flex.ErrValidation) && !errors.Is(err, flex.ErrValidation)) {
					t.Fatalf("want error %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(out) != len(tc.repo.trades) {
				t.Fatalf("want %d trades got %d", len(tc.repo.trades), len(out))
			}
			if got := tc.repo.filters[0].Limit; got != tc.wantLimit {
				t.Fatalf("limit: want %d got %d", tc.wantLimit, got)
			}
		})
	}
}
