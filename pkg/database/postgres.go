package database

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"ai-photo-bot/internal/models"
)

// New opens the Postgres connection and runs migrations. TranslateError is
// required so unique-index violations come back as gorm.ErrDuplicatedKey,
// which the photo repository relies on for dedup enforcement.
func New(databaseURL string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(
		&models.Payment{},
		&models.UserPhoto{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}
