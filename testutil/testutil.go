// Package testutil provides an in-memory database and fixtures for tests.
package testutil

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"inkdesk-backend/models"
	"inkdesk-backend/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewDB opens a private in-memory SQLite database with the full schema.
// A single connection keeps the memory database alive and serializes
// transactions.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	utils.PasswordCost = bcrypt.MinCost

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", strings.ReplaceAll(uuid.NewString(), "-", ""))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
		Logger:         gormlogger.Discard,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

// CreateUser inserts an active account with the password "password123".
func CreateUser(t testing.TB, db *gorm.DB, role, name string) *models.User {
	t.Helper()
	user := &models.User{
		Email:    strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@example.com",
		Password: "password123",
		Name:     name,
		Phone:    "+33600000000",
		Role:     role,
		IsActive: true,
	}
	if role == models.RoleArtist {
		slug := utils.Slugify(name)
		user.Slug = &slug
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func Artist(t testing.TB, db *gorm.DB, name string) *models.User {
	return CreateUser(t, db, models.RoleArtist, name)
}

func Client(t testing.TB, db *gorm.DB, name string) *models.User {
	return CreateUser(t, db, models.RoleClient, name)
}
