package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/guttosm/flexsync/internal/logger"
)

const (
	RequestIDKey    = "request_id"
	RequestIDHeader = "X-Request-ID"
)

// RequestID is a Gin middleware that injects a unique identifier
// for each incoming HTTP request.
//
// Behavior:
//   - Reuses the caller's X-Request-ID when it is a valid UUID, otherwise generates a v4 UUID.
//   - Stores it in the Gin context under the key "request_id".
//   - Attaches a logger tagged with the id to the request context (zerolog.Ctx).
//   - Adds it to the response headers as "X-Request-ID".
//
// Usage:
//
//	router := gin.New()
//	router.Use(middleware.RequestID())
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}

		c.Set(RequestIDKey, id)

		l := logger.L().With().Str(RequestIDKey, id).Logger()
		c.Request = c.Request.WithContext(l.WithContext(c.Request.Context()))

		c.Writer.Header().Set(RequestIDHeader, id)
		c.Next()
	}
}
