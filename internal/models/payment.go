package models

import (
	"time"
)

const (
	PaymentStatusUnpaid  = "unpaid"
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
	PaymentStatusBonus   = "bonus"
)

// Payment maps a Telegram user to their payment state. The intake core only
// ever reads Status; the checkout and webhook services that write these rows
// live outside this repository.
type Payment struct {
	ID              uint      `json:"id" gorm:"primaryKey"`
	TelegramUserID  int64     `json:"telegram_user_id" gorm:"not null;uniqueIndex"`
	StripeSessionID string    `json:"stripe_session_id"`
	Status          string    `json:"status" gorm:"default:pending"`
	StarBalance     int       `json:"star_balance" gorm:"default:0"`
	CreatedAt       time.Time `json:"created_at"`
}
