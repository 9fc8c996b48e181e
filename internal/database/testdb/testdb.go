// Package testdb opens throwaway SQLite databases for tests.
package testdb

import (
	"fmt"
	"testing"

	"github.com/chachabrian/chefbook-backend/internal/database"
	"github.com/chachabrian/chefbook-backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open returns a migrated in-memory database private to the test. A single
// connection is used so concurrent writers queue instead of failing on
// SQLite table locks.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	// Production reads users from the accounts service schema.
	if err := db.AutoMigrate(&models.User{}); err != nil {
		t.Fatalf("migrate users: %v", err)
	}
	if err := database.RunMigrations(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// CreateUser inserts an account of the given type.
func CreateUser(t testing.TB, db *gorm.DB, name string, userType models.UserType, fcmToken string) *models.User {
	t.Helper()

	u := &models.User{
		Username: name,
		Email:    name + "@example.com",
		UserType: userType,
		FCMToken: fcmToken,
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return u
}
