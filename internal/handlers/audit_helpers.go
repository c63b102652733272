package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"collab-service/internal/middleware"
)

func requestIDFromContext(c *gin.Context) string {
	if val, ok := c.Get(middleware.RequestIDKey); ok {
		if id, ok := val.(string); ok && id != "" {
			return id
		}
	}

	requestID := c.GetHeader(middleware.RequestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set(middleware.RequestIDKey, requestID)
	return requestID
}

func auditUserID(c *gin.Context) *string {
	if id := userIDFromContext(c); id != "" {
		return &id
	}
	return nil
}

// Auditor records user-visible mutations to the audit log.
type Auditor interface {
	Emit(ctx context.Context, level, text, requestID string, userID *string)
}

func emitAudit(c *gin.Context, auditor Auditor, text string) {
	if auditor == nil {
		return
	}
	auditor.Emit(c.Request.Context(), "INFO", text, requestIDFromContext(c), auditUserID(c))
}
