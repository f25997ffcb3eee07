package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/guttosm/flexsync/internal/domain/dto"
)

// AbortWithError stops the chain and writes a dto.ErrorResponse with status.
// err, when non-nil, is attached to the context for RequestLogger and becomes
// the response details.
func AbortWithError(c *gin.Context, status int, message string, err error) {
	if err != nil {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, dto.NewErrorResponse(message, err))
}

// ErrorHandler turns errors attached with c.Error into a 500 response when
// the handler did not write one itself.
func ErrorHandler(c *gin.Context) {
	c.Next()

	if len(c.Errors) == 0 || c.Writer.Written() {
		return
	}
	c.AbortWithStatusJSON(http.StatusInternalServerError,
		dto.NewErrorResponse("Internal server error", c.Errors.Last().Err))
}
