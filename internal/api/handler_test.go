package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/guttosm/flexsync/internal/domain/dto"
	"github.com/guttosm/flexsync/internal/domain/models"
	"github.com/guttosm/flexsync/internal/flex"
	"github.com/guttosm/flexsync/internal/ingestion"
	"github.com/guttosm/flexsync/internal/service"
	"github.com/guttosm/flexsync/internal/storage"
	"github.com/guttosm/flexsync/internal/token"
)

type mockTokenService struct {
	status    map[string]token.Status
	regErr    error
	removeErr error
	gotIssued *time.Time
}

func (m *mockTokenService) Register(_ context.Context, accountID, tok string, issuedAt *time.Time) (token.Status, error) {
	m.gotIssued = issuedAt
	if m.regErr != nil {
		return token.Status{}, m.regErr
	}
	return token.Status{Valid: true, MaskedToken: token.Mask(tok)}, nil
}

func (m *mockTokenService) Status(context.Context) map[string]token.Status { return m.status }

func (m *mockTokenService) Remove(_ context.Context, accountID string) error { return m.removeErr }

func (m *mockTokenService) ValidToken(string) (string, error) { return "", nil }

type mockTradeService struct {
	trades []models.UnifiedTrade
	err    error
	got    storage.TradeFilter
}

func (m *mockTradeService) ListTrades(_ context.Context, f storage.TradeFilter) ([]models.UnifiedTrade, error) {
	m.got = f
	return m.trades, m.err
}

type mockSyncService struct {
	out service.SyncOutcome
	err error
	got service.SyncRequest
}

func (m *mockSyncService) Run(_ context.Context, req service.SyncRequest) (service.SyncOutcome, error) {
	m.got = req
	return m.out, m.err
}

var (
	_ service.TokenService = (*mockTokenService)(nil)
	_ service.TradeService = (*mockTradeService)(nil)
	_ service.SyncService  = (*mockSyncService)(nil)
)

func setupRouterWithMocks(tokens *mockTokenService, trades *mockTradeService, sync *mockSyncService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(tokens, trades, sync)
	r := gin.New()
	v1 := r.Group("/api/v1")
	v1.GET("/tokens", h.TokenStatus)
	v1.POST("/tokens", h.RegisterToken)
	v1.DELETE("/tokens/:account", h.RemoveToken)
	v1.GET("/trades", h.ListTrades)
	v1.POST("/sync", h.Sync)
	return r
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: bad", flex.ErrValidation), http.StatusBadRequest},
		{fmt.Errorf("%w: U1", token.ErrNotRegistered), http.StatusNotFound},
		{flex.ErrTokenExpired, http.StatusUnauthorized},
		{service.ErrSyncInProgress, http.StatusConflict},
		{fmt.Errorf("%w: 1003", flex.ErrStatement), http.StatusBadGateway},
		{flex.ErrRequest, http.StatusBadGateway},
		{errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := statusFor(tc.err); got != tc.want {
			t.Fatalf("%v: want %d got %d", tc.err, tc.want, got)
		}
	}
}

func TestTokens_TableDriven(t *testing.T) {
	cases := []struct {
		name   string
		svc    *mockTokenService
		method string
		path   string
		body   string
		status int
	}{
		{
			name:   "status report",
			svc:    &mockTokenService{status: map[string]token.Status{"U1": {Valid: true}}},
			method: http.MethodGet,
			path:   "/api/v1/tokens",
			status: http.StatusOK,
		},
		{
			name:   "register ok",
			svc:    &mockTokenService{},
			method: http.MethodPost,
			path:   "/api/v1/tokens",
			body:   `{"account_id":"U1","token":"123456789012"}`,
			status: http.StatusCreated,
		},
		{
			name:   "register missing token",
			svc:    &mockTokenService{},
			method: http.MethodPost,
			path:   "/api/v1/tokens",
			body:   `{"account_id":"U1"}`,
			status: http.StatusBadRequest,
		},
		{
			name:   "register rejected by service",
			svc:    &mockTokenService{regErr: fmt.Errorf("%w: %w", flex.ErrValidation, token.ErrInvalidInput)},
			method: http.MethodPost,
			path:   "/api/v1/tokens",
			body:   `{"account_id":" ","token":"x"}`,
			status: http.StatusBadRequest,
		},
		{
			name:   "remove ok",
			svc:    &mockTokenService{},
			method: http.MethodDelete,
			path:   "/api/v1/tokens/U1",
			status: http.StatusNoContent,
		},
		{
			name:   "remove unknown",
			svc:    &mockTokenService{removeErr: fmt.Errorf("%w: U9", token.ErrNotRegistered)},
			method: http.MethodDelete,
			path:   "/api/v1/tokens/U9",
			status: http.StatusNotFound,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := setupRouterWithMocks(tc.svc, &mockTradeService{}, &mockSyncService{})
			w := do(r, tc.method, tc.path, tc.body)
			if w.Code != tc.status {
				t.Fatalf("expected %d, got %d (%s)", tc.status, w.Code, w.Body.String())
			}
		})
	}
}

func TestRegisterToken_MasksTokenAndPassesIssuedAt(t *testing.T) {
	svc := &mockTokenService{}
	r := setupRouterWithMocks(svc, &mockTradeService{}, &mockSyncService{})

	w := do(r, http.MethodPost, "/api/v1/tokens", `{"account_id":"U1","token":"123456789012","issued_at":"2026-01-15T08:00:00Z"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "123456789012") {
		t.Fatalf("raw token leaked: %s", w.Body.String())
	}
	if svc.gotIssued == nil || !svc.gotIssued.Equal(time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC)) {
		t.Fatalf("issued_at not forwarded: %v", svc.gotIssued)
	}
}

func TestListTrades_TableDriven(t *testing.T) {
	sample := []models.UnifiedTrade{{ExecutionID: "E1", AccountID: "U1", Source: models.SourceSettlement}}

	cases := []struct {
		name   string
		svc    *mockTradeService
		query  string
		status int
		assert func(t *testing.T, svc *mockTradeService, body []byte)
	}{
		{
			name:   "invalid from",
			svc:    &mockTradeService{},
			query:  "/api/v1/trades?from=2026/01/12",
			status: http.StatusBadRequest,
		},
		{
			name:   "invalid limit",
			svc:    &mockTradeService{},
			query:  "/api/v1/trades?limit=-1",
			status: http.StatusBadRequest,
		},
		{
			name:   "service validation error",
			svc:    &mockTradeService{err: fmt.Errorf("%w: unknown source", flex.ErrValidation)},
			query:  "/api/v1/trades?source=foo",
			status: http.StatusBadRequest,
		},
		{
			name:   "internal error",
			svc:    &mockTradeService{err: errors.New("db down")},
			query:  "/api/v1/trades",
			status: http.StatusInternalServerError,
		},
		{
			name:   "empty result",
			svc:    &mockTradeService{},
			query:  "/api/v1/trades",
			status: http.StatusOK,
			assert: func(t *testing.T, _ *mockTradeService, body []byte) {
				if !strings.Contains(string(body), `"trades":[]`) {
					t.Fatalf("expected empty array, got %s", body)
				}
			},
		},
		{
			name:   "success with filter",
			svc:    &mockTradeService{trades: sample},
			query:  "/api/v1/trades?account=U1&from=2026-01-12&to=2026-01-15&source=settlement&limit=10",
			status: http.StatusOK,
			assert: func(t *testing.T, svc *mockTradeService, body []byte) {
				var out dto.TradeListResponse
				if err := json.Unmarshal(body, &out); err != nil {
					t.Fatalf("invalid json: %v", err)
				}
				if out.Count != 1 || out.Trades[0].ExecutionID != "E1" {
					t.Fatalf("unexpected body: %+v", out)
				}
				f := svc.got
				if f.AccountID != "U1" || f.Source != models.SourceSettlement || f.Limit != 10 {
					t.Fatalf("unexpected filter: %+v", f)
				}
				if !f.From.Equal(time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC)) {
					t.Fatalf("unexpected from: %v", f.From)
				}
				// to is inclusive, so the exclusive bound is the next day
				if !f.To.Equal(time.Date(2026, 1, 16, 0, 0, 0, 0, time.UTC)) {
					t.Fatalf("unexpected to: %v", f.To)
				}
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := setupRouterWithMocks(&mockTokenService{}, tc.svc, &mockSyncService{})
			w := do(r, http.MethodGet, tc.query, "")
			if w.Code != tc.status {
				t.Fatalf("expected %d, got %d (%s)", tc.status, w.Code, w.Body.String())
			}
			if tc.assert != nil {
				tc.assert(t, tc.svc, w.Body.Bytes())
			}
		})
	}
}

func TestSync_TableDriven(t *testing.T) {
	dr, err := flex.NewDateRange(time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC), time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	okOutcome := service.SyncOutcome{
		RunID: "run-1",
		Range: &dr,
		Results: []ingestion.Result{
			{AccountID: "U1", Trades: 3, Settlement: 3, Upserted: 3, Elapsed: 1500 * time.Millisecond},
		},
	}
	accountErr := fmt.Errorf("%w: code 1012", flex.ErrTokenExpired)
	partial := service.SyncOutcome{
		RunID: "run-2",
		Range: &dr,
		Results: []ingestion.Result{
			{AccountID: "U1", Trades: 3},
			{AccountID: "U2", Err: accountErr},
		},
	}

	cases := []struct {
		name   string
		svc    *mockSyncService
		body   string
		status int
		assert func(t *testing.T, svc *mockSyncService, body []byte)
	}{
		{
			name:   "empty body uses defaults",
			svc:    &mockSyncService{out: okOutcome},
			status: http.StatusOK,
			assert: func(t *testing.T, svc *mockSyncService, body []byte) {
				if svc.got.From != nil || svc.got.To != nil || len(svc.got.Accounts) != 0 {
					t.Fatalf("expected zero request, got %+v", svc.got)
				}
				var out dto.SyncResponse
				if err := json.Unmarshal(body, &out); err != nil {
					t.Fatalf("invalid json: %v", err)
				}
				if out.RunID != "run-1" || out.Range != "2026-01-12..2026-01-15" || out.Failed != 0 {
					t.Fatalf("unexpected body: %+v", out)
				}
				if len(out.Results) != 1 || out.Results[0].ElapsedMS != 1500 || out.Results[0].Upserted != 3 {
					t.Fatalf("unexpected results: %+v", out.Results)
				}
			},
		},
		{
			name:   "explicit range and accounts",
			svc:    &mockSyncService{out: okOutcome},
			body:   `{"accounts":["U1"],"from":"2026-01-12","to":"2026-01-15","policy":"keep-last"}`,
			status: http.StatusOK,
			assert: func(t *testing.T, svc *mockSyncService, _ []byte) {
				if svc.got.From == nil || svc.got.To == nil || svc.got.Policy != "keep-last" || svc.got.Accounts[0] != "U1" {
					t.Fatalf("unexpected request: %+v", svc.got)
				}
			},
		},
		{
			name:   "bad date",
			svc:    &mockSyncService{},
			body:   `{"from":"12/01/2026"}`,
			status: http.StatusBadRequest,
		},
		{
			name:   "malformed json",
			svc:    &mockSyncService{},
			body:   `{"accounts":`,
			status: http.StatusBadRequest,
		},
		{
			name:   "validation error",
			svc:    &mockSyncService{err: fmt.Errorf("%w: unknown account", flex.ErrValidation)},
			body:   `{"accounts":["nope"]}`,
			status: http.StatusBadRequest,
		},
		{
			name:   "already running",
			svc:    &mockSyncService{err: service.ErrSyncInProgress},
			status: http.StatusConflict,
		},
		{
			name:   "partial failure",
			svc:    &mockSyncService{out: partial, err: errors.Join(accountErr)},
			status: http.StatusMultiStatus,
			assert: func(t *testing.T, _ *mockSyncService, body []byte) {
				var out dto.SyncResponse
				if err := json.Unmarshal(body, &out); err != nil {
					t.Fatalf("invalid json: %v", err)
				}
				if out.Failed != 1 || out.Results[1].Error == "" || out.Results[0].Error != "" {
					t.Fatalf("unexpected body: %+v", out)
				}
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := setupRouterWithMocks(&mockTokenService{}, &mockTradeService{}, tc.svc)
			w := do(r, http.MethodPost, "/api/v1/sync", tc.body)
			if w.Code != tc.status {
				t.Fatalf("expected %d, got %d (%s)", tc.status, w.Code, w.Body.String())
			}
			if tc.assert != nil {
				tc.assert(t, tc.svc, w.Body.Bytes())
			}
		})
	}
}
