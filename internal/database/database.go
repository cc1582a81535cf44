package database

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"campusconnect/backend/internal/models"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Connect initializes the database connection and runs migrations.
func Connect(dsn string) {
	var err error

	// Configure GORM logger
	customLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  true,
		},
	)

	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         customLogger,
		TranslateError: true,
	})
	if err != nil {
		zap.L().Fatal("Failed to connect to database", zap.Error(err))
	}

	zap.L().Info("Database connection established")

	if err := Migrate(DB); err != nil {
		zap.L().Fatal("Failed to migrate database", zap.Error(err))
	}

	zap.L().Info("Database migrated successfully")
}

// Migrate creates or updates the schema for every model.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&models.User{}, &models.Connection{}, &models.Post{}, &models.PostLike{}, &models.Comment{})
}

// SeedAdmin creates an admin account with the given credentials unless a user
// with that email already exists. Admin is never assignable through registration.
func SeedAdmin(db *gorm.DB, email, password string) error {
	email = models.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil
	}

	var existing models.User
	err := db.Where("email = ?", email).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	handle, err := freeHandle(db, models.AdminHandle)
	if err != nil {
		return err
	}

	admin := models.User{
		Name:         "Administrator",
		Email:        email,
		Handle:       handle,
		PasswordHash: string(hash),
		Role:         models.RoleAdmin,
	}
	if err := db.Create(&admin).Error; err != nil {
		return err
	}
	zap.L().Info("Seeded admin user", zap.String("email", email))
	return nil
}

// freeHandle returns base, or base followed by the first number that no
// account (deleted ones included) uses yet.
func freeHandle(db *gorm.DB, base string) (string, error) {
	handle := base
	for i := 2; ; i++ {
		var count int64
		if err := db.Unscoped().Model(&models.User{}).Where("handle = ?", handle).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return handle, nil
		}
		handle = fmt.Sprintf("%s%d", base, i)
	}
}
