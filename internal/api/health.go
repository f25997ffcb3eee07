package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/guttosm/flexsync/internal/token"
)

const readinessTimeout = 2 * time.Second

// HealthHandler provides liveness and readiness endpoints for the service.
//
// Responsibilities:
//   - /healthz: Basic liveness probe (always returns 200 OK).
//   - /readyz: Readiness probe. Depends on database connectivity and reports
//     how many Flex tokens are currently usable.
type HealthHandler struct {
	dbPing func(ctx context.Context) error
	tokens func(ctx context.Context) map[string]token.Status
}

// NewHealthHandler constructs a HealthHandler.
//
// Parameters:
//   - dbPing: checks the database, typically (*sql.DB).PingContext. May be nil.
//   - tokens: token status report, typically service.TokenService.Status. May be nil.
func NewHealthHandler(dbPing func(ctx context.Context) error, tokens func(ctx context.Context) map[string]token.Status) *HealthHandler {
	return &HealthHandler{dbPing: dbPing, tokens: tokens}
}

// Register mounts the health and readiness endpoints into the provided Gin router.
func (h *HealthHandler) Register(r *gin.Engine) {
	// @Summary      Liveness probe
	// @Description  Always returns OK if the service is running
	// @Tags         health
	// @Produce      json
	// @Success      200  {object}  map[string]string
	// @Router       /healthz [get]
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// @Summary      Readiness probe
	// @Description  Returns ready if the database is reachable. Expired tokens do not fail readiness.
	// @Tags         health
	// @Produce      json
	// @Success      200  {object}  map[string]any
	// @Failure      503  {object}  map[string]any
	// @Router       /readyz [get]
	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
		defer cancel()

		body := gin.H{"status": "ready"}
		if h.tokens != nil {
			valid := 0
			report := h.tokens(ctx)
			for _, st := range report {
				if st.Valid {
					valid++
				}
			}
			body["tokens_total"] = len(report)
			body["tokens_valid"] = valid
		}
		if h.dbPing != nil && h.dbPing(ctx) != nil {
			body["status"] = "degraded"
			c.JSON(http.StatusServiceUnavailable, body)
			return
		}
		c.JSON(http.StatusOK, body)
	})
}
