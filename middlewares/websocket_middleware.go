package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/table-order/utils"
)

// WebSocketAuthMiddleware authenticates the staff feed handshake, where
// browsers cannot set headers, from the "token" query parameter.
func WebSocketAuthMiddleware(tokens *utils.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		claims, err := tokens.ParseSessionToken(token)
		if err != nil {
			utils.InfoLogger.Warnf("Rejected websocket handshake from %s: %v", c.ClientIP(), err)
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Next()
	}
}
