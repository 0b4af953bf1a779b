package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"ai-photo-bot/internal/models"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// GetStatus returns the payment status for a Telegram user. A user without a
// payment record gets the empty string, which the gatekeeper treats the same
// as any non-paid status.
func (r *PaymentRepository) GetStatus(ctx context.Context, userID int64) (string, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).Where("telegram_user_id = ?", userID).First(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return payment.Status, nil
}

func (r *PaymentRepository) GetByTelegramUserID(ctx context.Context, userID int64) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).Where("telegram_user_id = ?", userID).First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}
