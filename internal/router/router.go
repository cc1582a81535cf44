// Package router assembles the HTTP API.
package router

import (
	"net/http"

	"campusconnect/backend/internal/auth"
	"campusconnect/backend/internal/config"
	"campusconnect/backend/internal/handler"
	"campusconnect/backend/internal/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// New builds the engine with middleware and all API routes.
func New(log *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(logger.Middleware(log), gin.Recovery())
	if origins := config.AppConfig.AllowedOrigins(); len(origins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     origins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			AllowCredentials: true,
		}))
	}
	// Leaves room for the multipart envelope around the largest allowed file.
	router.MaxMultipartMemory = config.AppConfig.MaxUploadBytes + 1<<20

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check endpoint
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	apiV1 := router.Group("/api/v1")
	{
		authRoutes := apiV1.Group("/auth")
		{
			authRoutes.POST("/register", handler.RegisterUser)
			authRoutes.POST("/login", handler.LoginUser)
			authRoutes.POST("/logout", handler.LogoutUser)
		}

		userRoutes := apiV1.Group("/users")
		userRoutes.Use(auth.AuthMiddleware())
		{
			userRoutes.GET("", handler.SearchUsers) // Must be before /:id
			userRoutes.GET("/me", handler.GetMe)
			userRoutes.PUT("/me", handler.UpdateMe)
			userRoutes.PUT("/me/avatar", handler.UploadAvatar)
			userRoutes.GET("/:id", handler.GetUserByID)
		}

		connectionRoutes := apiV1.Group("/connections")
		connectionRoutes.Use(auth.AuthMiddleware())
		{
			connectionRoutes.GET("", handler.ListConnections)
			connectionRoutes.POST("/:id", handler.SendRequest)
			connectionRoutes.POST("/:id/accept", handler.AcceptRequest)
			connectionRoutes.POST("/:id/reject", handler.RejectRequest)
			connectionRoutes.POST("/:id/cancel", handler.CancelRequest)
			connectionRoutes.POST("/:id/remove", handler.RemoveConnection)
		}

		// Reading the timeline does not require a session; liked_by_me is
		// filled in when one is present.
		postRoutes := apiV1.Group("/posts")
		{
			postRoutes.GET("", auth.OptionalAuthMiddleware(), handler.GetPosts)
			postRoutes.GET("/:id", auth.OptionalAuthMiddleware(), handler.GetPostByID)
			postRoutes.POST("", auth.AuthMiddleware(), handler.CreatePost)
			postRoutes.POST("/:id/like", auth.AuthMiddleware(), handler.LikePost)
			postRoutes.POST("/:id/comment", auth.AuthMiddleware(), handler.CommentOnPost)
		}

		apiV1.GET("/notifications/stream", auth.AuthMiddleware(), handler.StreamNotifications)

		// Admin routes (protected by auth and admin check)
		adminRoutes := apiV1.Group("/admin")
		adminRoutes.Use(auth.AuthMiddleware(), auth.AdminMiddleware())
		{
			adminRoutes.DELETE("/posts/:id", handler.DeletePost)
		}
	}

	return router
}
