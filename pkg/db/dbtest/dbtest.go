// Package dbtest opens isolated in-memory SQLite databases with the full schema
// for repository and service tests.
package dbtest

import (
	"testing"
	"time"

	"github.com/angelmondragon/tablebite-backend/pkg/db"
	"github.com/angelmondragon/tablebite-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open returns a migrated connection private to the calling test. The pool is
// capped at one connection so concurrent transactions serialize the way row
// locks would serialize them on Postgres.
func Open(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:tb_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := conn.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	return conn
}

// Client wraps Open in a db.Client.
func Client(t *testing.T) (*db.Client, *gorm.DB) {
	t.Helper()
	conn := Open(t)
	return db.NewFromGorm(conn, 0, 3), conn
}

// MustCreateUser provisions a customer together with its loyalty profile.
func MustCreateUser(t *testing.T, conn *gorm.DB, points int64) *models.User {
	t.Helper()
	suffix := uuid.NewString()[:8]
	user := &models.User{
		Username:     "guest_" + suffix,
		Email:        "guest_" + suffix + "@example.com",
		PasswordHash: "hash",
		IsActive:     true,
	}
	if err := conn.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	profile := &models.LoyaltyProfile{UserID: user.ID, Points: points}
	if err := conn.Create(profile).Error; err != nil {
		t.Fatalf("create profile: %v", err)
	}
	user.Profile = profile
	return user
}

// MustCreateMenuItem inserts an item (and its category) at the given price.
func MustCreateMenuItem(t *testing.T, conn *gorm.DB, name string, price int64, available bool) *models.MenuItem {
	t.Helper()
	category := &models.Category{Name: "Category " + name}
	if err := conn.Create(category).Error; err != nil {
		t.Fatalf("create category: %v", err)
	}
	item := &models.MenuItem{
		CategoryID:  category.ID,
		Name:        name,
		Price:       price,
		IsAvailable: true,
	}
	if err := conn.Create(item).Error; err != nil {
		t.Fatalf("create menu item: %v", err)
	}
	if !available {
		if err := conn.Model(item).Update("is_available", false).Error; err != nil {
			t.Fatalf("mark unavailable: %v", err)
		}
		item.IsAvailable = false
	}
	return item
}

// MustCreateReward inserts an active catalog reward.
func MustCreateReward(t *testing.T, conn *gorm.DB, name string, cost int64) *models.Reward {
	t.Helper()
	reward := &models.Reward{Name: name, PointsRequired: cost, Tier: 1, IsActive: true}
	if err := conn.Create(reward).Error; err != nil {
		t.Fatalf("create reward: %v", err)
	}
	return reward
}

// FixedClock returns a clock pinned to ts.
func FixedClock(ts time.Time) func() time.Time {
	return func() time.Time { return ts }
}
