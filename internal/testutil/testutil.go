// Package testutil provides fixtures shared by package tests.
package testutil

import (
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Windi-Fikriyansyah/devconnect_be/internal/db"
	"github.com/Windi-Fikriyansyah/devconnect_be/internal/models"
)

// NewDB returns a migrated in-memory SQLite database private to the test.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.Migrate(gormDB))
	return gormDB
}

func NewRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to create miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return client, mr
}

// CreateUser inserts an active user with the given role and a matching profile row.
func CreateUser(t *testing.T, gdb *gorm.DB, email string, role models.Role) *models.User {
	t.Helper()

	u := &models.User{
		FirstName: "Test",
		LastName:  "User",
		Email:     email,
		Password:  "$2a$10$placeholderplaceholderplaceholderplaceholderpl",
		Role:      role,
		IsActive:  true,
		Status:    models.StatusOffline,
	}
	require.NoError(t, gdb.Create(u).Error)

	switch role {
	case models.RoleDeveloper:
		d := &models.Developer{UserID: u.ID}
		require.NoError(t, gdb.Create(d).Error)
		u.Developer = d
	case models.RoleClient:
		c := &models.Client{UserID: u.ID}
		require.NoError(t, gdb.Create(c).Error)
		u.Client = c
	}
	return u
}
