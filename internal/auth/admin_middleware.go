package auth

import (
	"campusconnect/backend/internal/apperror"
	"campusconnect/backend/internal/database"
	"campusconnect/backend/internal/models"

	"github.com/gin-gonic/gin"
)

// AdminMiddleware creates a gin middleware to check for admin role.
// It must be used AFTER the standard AuthMiddleware.
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := CurrentUserID(c)
		if !exists {
			abort(c, apperror.NewUnauthenticated("User not authenticated"))
			return
		}

		var user models.User
		if err := database.DB.WithContext(c.Request.Context()).Select("id", "role").First(&user, userID).Error; err != nil {
			abort(c, apperror.NewNotFound("Authenticated user not found"))
			return
		}

		if user.Role != models.RoleAdmin {
			abort(c, apperror.NewForbidden("Admin access required"))
			return
		}

		c.Next()
	}
}
