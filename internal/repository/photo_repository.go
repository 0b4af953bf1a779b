package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"ai-photo-bot/internal/models"
)

type PhotoRepository struct {
	db *gorm.DB
}

func NewPhotoRepository(db *gorm.DB) *PhotoRepository {
	return &PhotoRepository{db: db}
}

func (r *PhotoRepository) Count(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.UserPhoto{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

func (r *PhotoRepository) Exists(ctx context.Context, fileUniqueID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.UserPhoto{}).Where("file_unique_id = ?", fileUniqueID).Count(&count).Error
	return count > 0, err
}

// Create inserts the photo, rechecking the quota inside the transaction. The
// gatekeeper's earlier checks are a fast path only; this is where duplicates
// and the cap are actually enforced under concurrent uploads. A per-user
// advisory lock serializes the count-then-insert so two distinct photos
// racing at the cap cannot both pass the count. Duplicate keys surface as
// ErrDuplicatePhoto via gorm's error translation.
func (r *PhotoRepository) Create(ctx context.Context, photo *models.UserPhoto, limit int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", photo.UserID).Error; err != nil {
			return err
		}

		var count int64
		if err := tx.Model(&models.UserPhoto{}).Where("user_id = ?", photo.UserID).Count(&count).Error; err != nil {
			return err
		}
		if count >= int64(limit) {
			return ErrQuotaExceeded
		}

		if err := tx.Create(photo).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicatePhoto
			}
			return err
		}
		return nil
	})
}

func (r *PhotoRepository) GetByUserID(ctx context.Context, userID int64) ([]models.UserPhoto, error) {
	var photos []models.UserPhoto
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at").Find(&photos).Error
	return photos, err
}
