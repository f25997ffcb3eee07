package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/guttosm/flexsync/internal/domain/dto"
	"github.com/guttosm/flexsync/internal/domain/models"
	"github.com/guttosm/flexsync/internal/flex"
	"github.com/guttosm/flexsync/internal/middleware"
	"github.com/guttosm/flexsync/internal/service"
	"github.com/guttosm/flexsync/internal/storage"
	"github.com/guttosm/flexsync/internal/token"
)

const dateLayout = "2006-01-02"

// Handler provides HTTP handlers for token administration, trade queries
// and sync runs.
//
// Responsibilities:
//   - Validate incoming query parameters and JSON bodies
//   - Delegate to the service layer
//   - Translate service errors into HTTP status codes
type Handler struct {
	tokens service.TokenService
	trades service.TradeService
	sync   service.SyncService
}

// NewHandler constructs a new Handler instance.
//
// Parameters:
//   - tokens (service.TokenService): guarded token tracker.
//   - trades (service.TradeService): reads persisted unified trades.
//   - sync (service.SyncService): runs the fetch/reconcile/persist pipeline.
//
// Returns:
//   - *Handler: A handler ready to be registered with the router.
func NewHandler(tokens service.TokenService, trades service.TradeService, sync service.SyncService) *Handler {
	return &Handler{tokens: tokens, trades: trades, sync: sync}
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, flex.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, token.ErrNotRegistered):
		return http.StatusNotFound
	case errors.Is(err, flex.ErrToken):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrSyncInProgress):
		return http.StatusConflict
	case errors.Is(err, flex.ErrRequest), errors.Is(err, flex.ErrStatement):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// TokenStatus godoc
// @Summary      Token status report
// @Description  Lists every tracked Flex token with validity and remaining lifetime. Tokens are masked.
// @Tags         tokens
// @Produce      json
// @Success      200  {object}  dto.TokenStatusResponse
// @Router       /api/v1/tokens [get]
func (h *Handler) TokenStatus(c *gin.Context) {
	c.JSON(http.StatusOK, dto.TokenStatusResponse{Accounts: h.tokens.Status(c.Request.Context())})
}

// RegisterToken godoc
// @Summary      Register a Flex token
// @Description  Stores a Flex Web Service token for an account. issued_at defaults to now.
// @Tags         tokens
// @Accept       json
// @Produce      json
// @Param        body  body      dto.RegisterTokenRequest  true  "Token"
// @Success      201   {object}  dto.TokenRegisteredResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/v1/tokens [post]
func (h *Handler) RegisterToken(c *gin.Context) {
	var req dto.RegisterTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.AbortWithError(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	st, err := h.tokens.Register(c.Request.Context(), strings.TrimSpace(req.AccountID), strings.TrimSpace(req.Token), req.IssuedAt)
	if err != nil {
		middleware.AbortWithError(c, statusFor(err), "failed to register token", err)
		return
	}
	c.JSON(http.StatusCreated, dto.TokenRegisteredResponse{AccountID: req.AccountID, Status: st})
}

// RemoveToken godoc
// @Summary      Remove a Flex token
// @Tags         tokens
// @Param        account  path  string  true  "Account id"
// @Success      204
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/v1/tokens/{account} [delete]
func (h *Handler) RemoveToken(c *gin.Context) {
	if err := h.tokens.Remove(c.Request.Context(), c.Param("account")); err != nil {
		middleware.AbortWithError(c, statusFor(err), "failed to remove token", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListTrades handles GET /api/v1/trades.
//
// Query Parameters:
//   - account (string, optional): account id.
//   - from, to (string, optional): YYYY-MM-DD, both inclusive.
//   - source (string, optional): REALTIME or SETTLEMENT.
//   - limit (int, optional): capped at service.MaxListLimit.
//
// ListTrades godoc
// @Summary      List unified trades
// @Description  Returns persisted, reconciled trades ordered by execution time
// @Tags         trades
// @Produce      json
// @Param        account  query     string  false  "Account id" example(U1234567)
// @Param        from     query     string  false  "Start date in YYYY-MM-DD" example(2026-01-12)
// @Param        to       query     string  false  "End date in YYYY-MM-DD (inclusive)" example(2026-01-15)
// @Param        source   query     string  false  "REALTIME or SETTLEMENT"
// @Param        limit    query     int     false  "Maximum rows"
// @Success      200      {object}  dto.TradeListResponse
// @Failure      400      {object}  dto.ErrorResponse
// @Failure      500      {object}  dto.ErrorResponse
// @Router       /api/v1/trades [get]
func (h *Handler) ListTrades(c *gin.Context) {
	filter := storage.TradeFilter{
		AccountID: strings.TrimSpace(c.Query("account")),
		Source:    models.Source(strings.ToUpper(strings.TrimSpace(c.Query("source")))),
	}

	var err error
	if filter.From, err = parseDate(c.Query("from")); err != nil {
		middleware.AbortWithError(c, http.StatusBadRequest, "invalid from format, expected YYYY-MM-DD", err)
		return
	}
	if filter.To, err = parseDate(c.Query("to")); err != nil {
		middleware.AbortWithError(c, http.StatusBadRequest, "invalid to format, expected YYYY-MM-DD", err)
		return
	}
	if filter.To != nil {
		end := filter.To.AddDate(0, 0, 1)
		filter.To = &end
	}
	if s := c.Query("limit"); s != "" {
		if filter.Limit, err = strconv.Atoi(s); err != nil || filter.Limit < 0 {
			middleware.AbortWithError(c, http.StatusBadRequest, "invalid limit", err)
			return
		}
	}

	trades, err := h.trades.ListTrades(c.Request.Context(), filter)
	if err != nil {
		middleware.AbortWithError(c, statusFor(err), "failed to list trades", err)
		return
	}
	if trades == nil {
		trades = []models.UnifiedTrade{}
	}
	c.JSON(http.StatusOK, dto.TradeListResponse{Count: len(trades), Trades: trades})
}

// Sync godoc
// @Summary      Run a statement sync
// @Description  Fetches Flex statements, reconciles them with realtime executions and persists the result. Runs synchronously; one run at a time.
// @Tags         sync
// @Accept       json
// @Produce      json
// @Param        body  body      dto.SyncRequest  false  "Sync options"
// @Success      200   {object}  dto.SyncResponse  "All accounts synced"
// @Success      207   {object}  dto.SyncResponse  "Some accounts failed"
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/v1/sync [post]
func (h *Handler) Sync(c *gin.Context) {
	var body dto.SyncRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			middleware.AbortWithError(c, http.StatusBadRequest, "invalid request body", err)
			return
		}
	}

	req := service.SyncRequest{Accounts: body.Accounts, Days: body.Days, Policy: body.Policy}
	var err error
	if req.From, err = parseDate(body.From); err != nil {
		middleware.AbortWithError(c, http.StatusBadRequest, "invalid from format, expected YYYY-MM-DD", err)
		return
	}
	if req.To, err = parseDate(body.To); err != nil {
		middleware.AbortWithError(c, http.StatusBadRequest, "invalid to format, expected YYYY-MM-DD", err)
		return
	}

	out, err := h.sync.Run(c.Request.Context(), req)
	resp := syncResponse(out)
	switch {
	case err != nil && resp.Failed == 0:
		middleware.AbortWithError(c, statusFor(err), "sync failed", err)
	case resp.Failed > 0:
		_ = c.Error(err)
		c.JSON(http.StatusMultiStatus, resp)
	default:
		c.JSON(http.StatusOK, resp)
	}
}

func syncResponse(out service.SyncOutcome) dto.SyncResponse {
	resp := dto.SyncResponse{RunID: out.RunID, Results: make([]dto.SyncAccountResult, 0, len(out.Results))}
	if out.Range != nil {
		resp.Range = out.Range.String()
	}
	for _, r := range out.Results {
		item := dto.SyncAccountResult{
			AccountID:          r.AccountID,
			QueryID:            r.QueryID,
			Trades:             r.Trades,
			Realtime:           r.Realtime,
			Settlement:         r.Settlement,
			Upserted:           r.Upserted,
			ValidationFailures: r.ValidationFailures,
			ElapsedMS:          r.Elapsed.Milliseconds(),
		}
		if r.Err != nil {
			item.Error = r.Err.Error()
			resp.Failed++
		}
		resp.Results = append(resp.Results, item)
	}
	return resp
}

func parseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", flex.ErrValidation, err)
	}
	return &t, nil
}
