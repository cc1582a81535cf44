package auth

import (
	"campusconnect/backend/pkg/jwt"

	"github.com/gin-gonic/gin"
)

// OptionalAuthMiddleware inspects for a token and sets the userID if present and valid,
// but does not fail if the token is missing or invalid.
func OptionalAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := tokenFromRequest(c); token != "" {
			if userID, err := jwt.ParseToken(token); err == nil {
				SetCurrentUserID(c, userID)
			}
		}
		c.Next()
	}
}
