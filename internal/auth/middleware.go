package auth

import (
	"strings"

	"campusconnect/backend/internal/apperror"
	"campusconnect/backend/pkg/jwt"

	"github.com/gin-gonic/gin"
)

// CookieName is the session cookie set on login and registration.
const CookieName = "jwt"

const userIDKey = "userID"

// tokenFromRequest returns the session token from the cookie, falling back to
// an "Authorization: Bearer" header.
func tokenFromRequest(c *gin.Context) string {
	if cookie, err := c.Cookie(CookieName); err == nil && cookie != "" {
		return cookie
	}
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) == 2 && parts[0] == "Bearer" {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// AuthMiddleware rejects requests without a valid session and stores the
// caller's user ID in the context.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := tokenFromRequest(c)
		if token == "" {
			abort(c, apperror.NewUnauthenticated("Not authorized, no token"))
			return
		}

		userID, err := jwt.ParseToken(token)
		if err != nil {
			abort(c, apperror.NewUnauthenticated("Not authorized, token failed"))
			return
		}

		c.Set(userIDKey, userID)
		c.Next()
	}
}

// CurrentUserID returns the caller set by the auth middleware.
func CurrentUserID(c *gin.Context) (uint, bool) {
	v, ok := c.Get(userIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}

// SetCurrentUserID stores the caller's ID; used by the middlewares and tests.
func SetCurrentUserID(c *gin.Context, userID uint) {
	c.Set(userIDKey, userID)
}

func abort(c *gin.Context, err *apperror.AppError) {
	c.AbortWithStatusJSON(err.StatusCode(), err.ToResponse())
}
