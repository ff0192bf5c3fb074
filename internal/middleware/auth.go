package middleware

import (
	"github.com/gin-gonic/gin"
)

const devUserID = "00000000-0000-0000-0000-000000000001"

// DevelopmentAuthMiddleware stands in for IstioAuth on local runs. The actor
// comes from X-User-ID when present so import reports can be attributed.
func DevelopmentAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("user_id")
		if userID == "" {
			userID = c.GetHeader("X-User-ID")
		}
		if userID == "" {
			userID = devUserID
		}

		// RBAC middleware checks staff_id first
		c.Set("userId", userID)
		c.Set("user_id", userID)
		c.Set("staff_id", userID)
		c.Next()
	}
}
