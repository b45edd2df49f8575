package db

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/devconnect_be/internal/models"
)

func Migrations() []*gormigrate.Migration {
	return []*gormigrate.Migration{
		{
			ID: "20250901_create_users_and_profiles",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&models.User{}, &models.Developer{}, &models.Client{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("clients", "developers", "users")
			},
		},
		{
			ID: "20250903_create_projects_and_ratings",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&models.Project{}, &models.Rating{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("ratings", "projects")
			},
		},
		{
			ID: "20250910_create_conversations_and_messages",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&models.Conversation{}, &models.Message{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("messages", "conversations")
			},
		},
	}
}

// Migrate applies every pending migration in order.
func Migrate(gdb *gorm.DB) error {
	m := gormigrate.New(gdb, gormigrate.DefaultOptions, Migrations())
	return m.Migrate()
}
