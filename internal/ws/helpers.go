package ws

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func newConnID() string {
	return uuid.NewString()
}

// bearerToken reads the token from the Authorization header, falling back to
// the token query parameter browsers must use for websocket upgrades.
func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
		return ""
	}
	return c.Query("token")
}
