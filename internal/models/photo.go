package models

import (
	"time"
)

// UserPhoto is one normalized photo accepted from one Telegram user.
// Rows are created exactly once by the intake pipeline and never updated.
// FileUniqueID is the dedup key, unique across the whole store.
type UserPhoto struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	UserID       int64     `json:"user_id" gorm:"not null;index"`
	FileID       string    `json:"file_id" gorm:"not null"`
	FileUniqueID string    `json:"file_unique_id" gorm:"not null;uniqueIndex"`
	StorageKey   string    `json:"storage_key" gorm:"not null"`
	Width        int       `json:"width"`
	Height       int       `json:"height"`
	FileSize     int64     `json:"file_size"`
	CreatedAt    time.Time `json:"created_at"`
}
