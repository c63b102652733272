package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"collab-service/internal/apperr"
	"collab-service/internal/identity"
)

// Context keys set by AuthMiddleware.
const (
	UserIDKey = "userID"
	EmailKey  = "email"
)

// TokenVerifier checks an access token and returns the caller it identifies.
type TokenVerifier interface {
	Verify(token string) (identity.Identity, error)
}

// AuthMiddleware validates the Authorization bearer token.
func AuthMiddleware(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization", "code": apperr.InvalidToken})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header", "code": apperr.InvalidToken})
			return
		}

		id, err := verifier.Verify(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token", "code": apperr.InvalidToken})
			return
		}

		c.Set(UserIDKey, id.UserID)
		c.Set(EmailKey, id.Email)
		c.Next()
	}
}
