package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"campusconnect/backend/internal/config"
	"campusconnect/backend/internal/database"
	"campusconnect/backend/internal/logger"
	"campusconnect/backend/internal/media"
	"campusconnect/backend/internal/router"

	firebase "firebase.google.com/go/v4"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	// Swagger imports
	_ "campusconnect/backend/docs" // This is important for swag to find the generated docs
)

const shutdownTimeout = 10 * time.Second

func init() {
	config.LoadConfig()
}

// @title           CampusConnect API
// @version         1.0
// @description     API for the CampusConnect campus social network.
// @host            localhost:8080
// @BasePath        /api/v1
// @securityDefinitions.apiKey BearerAuth
// @in header
// @name Authorization
func main() {
	log, err := logger.New(config.AppConfig.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	gin.SetMode(config.AppConfig.GinMode)

	// Connect to the database
	database.Connect(config.AppConfig.DatabaseURL)
	if err := database.SeedAdmin(database.DB, config.AppConfig.AdminEmail, config.AppConfig.AdminPassword); err != nil {
		log.Fatal("Failed to seed admin user", zap.Error(err))
	}

	ctx := context.Background()
	if bucket := config.AppConfig.FirebaseBucket; bucket != "" {
		app, err := firebase.NewApp(ctx, &firebase.Config{StorageBucket: bucket})
		if err != nil {
			log.Fatal("Failed to initialise Firebase", zap.Error(err))
		}
		uploader, err := media.NewBucketUploader(ctx, app, bucket)
		if err != nil {
			log.Fatal("Failed to open storage bucket", zap.String("bucket", bucket), zap.Error(err))
		}
		media.DefaultUploader = uploader
	} else {
		log.Warn("FIREBASE_BUCKET is not set, media uploads are disabled")
	}

	// Cancelled on shutdown so open notification streams end.
	baseCtx, cancelBase := context.WithCancel(ctx)
	srv := &http.Server{
		Addr:        ":" + config.AppConfig.Port,
		Handler:     router.New(log),
		BaseContext: func(net.Listener) context.Context { return baseCtx },
	}
	srv.RegisterOnShutdown(cancelBase)

	go func() {
		log.Info("Server is running", zap.String("addr", srv.Addr),
			zap.String("swagger", "http://localhost:"+config.AppConfig.Port+"/swagger/index.html"))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Forced shutdown", zap.Error(err))
	}
}
