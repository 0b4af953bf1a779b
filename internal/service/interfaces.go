package service

import (
	"context"

	"ai-photo-bot/internal/models"
	"ai-photo-bot/pkg/normalizer"
)

// PhotoStore is the authoritative UserPhoto store. Create must be atomic:
// under concurrent inserts of the same file_unique_id exactly one row wins
// and the loser sees repository.ErrDuplicatePhoto.
type PhotoStore interface {
	Count(ctx context.Context, userID int64) (int64, error)
	Exists(ctx context.Context, fileUniqueID string) (bool, error)
	Create(ctx context.Context, photo *models.UserPhoto, limit int) error
}

// PaymentReader reads a user's payment status; empty string means no record.
type PaymentReader interface {
	GetStatus(ctx context.Context, userID int64) (string, error)
}

// ByteFetcher retrieves raw photo bytes from the messaging platform.
type ByteFetcher interface {
	FetchBytes(ctx context.Context, fileID string) ([]byte, error)
}

type ImageNormalizer interface {
	Normalize(raw []byte) (*normalizer.Result, error)
}
