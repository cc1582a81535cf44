// Package testutil provides fixtures shared by package tests.
package testutil

import (
	"fmt"
	"testing"

	"campusconnect/backend/internal/database"
	"campusconnect/backend/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens a private in-memory SQLite database with the full schema.
// The pool is limited to one connection so every statement, including those
// inside transactions, sees the same database.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// CreateUser inserts a user with a unique email and handle derived from name.
func CreateUser(t testing.TB, db *gorm.DB, name string) models.User {
	t.Helper()

	user := models.User{
		Name:         name,
		Email:        name + "@campus.test",
		Handle:       name,
		PasswordHash: "x",
		Role:         models.RoleStudent,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}
