package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ai-photo-bot/internal/models"
	"ai-photo-bot/internal/repository"
	"ai-photo-bot/pkg/storage"
)

// IntakeService is the photo intake pipeline: gatekeeper decision, byte
// fetch, normalization, blob upload and the final commit. The service itself
// is stateless; concurrent intakes only meet at the store.
type IntakeService struct {
	photos   PhotoStore
	payments PaymentReader
	fetcher  ByteFetcher
	blobs    storage.BlobStorage
	norm     ImageNormalizer
	photoCap int
	logger   *zap.Logger
}

func NewIntakeService(
	photos PhotoStore,
	payments PaymentReader,
	fetcher ByteFetcher,
	blobs storage.BlobStorage,
	norm ImageNormalizer,
	photoCap int,
	logger *zap.Logger,
) *IntakeService {
	return &IntakeService{
		photos:   photos,
		payments: payments,
		fetcher:  fetcher,
		blobs:    blobs,
		norm:     norm,
		photoCap: photoCap,
		logger:   logger,
	}
}

func (s *IntakeService) PhotoCap() int {
	return s.photoCap
}

// Evaluate decides whether a candidate should be accepted. Payment status is
// checked first so nothing is fetched for unpaid users, then the quota, then
// the dedup key of the chosen variant. Read-only; calling it repeatedly for
// the same state returns the same decision.
func (s *IntakeService) Evaluate(ctx context.Context, userID int64, cand models.IntakeCandidate) (models.Decision, error) {
	status, err := s.payments.GetStatus(ctx, userID)
	if err != nil {
		return models.Decision{}, fmt.Errorf("payment lookup: %w", err)
	}
	if status != models.PaymentStatusPaid {
		return models.Decision{Outcome: models.OutcomePaymentRequired}, nil
	}

	count, err := s.photos.Count(ctx, userID)
	if err != nil {
		return models.Decision{}, fmt.Errorf("photo count: %w", err)
	}
	if count >= int64(s.photoCap) {
		return models.Decision{Outcome: models.OutcomeQuotaExceeded, Count: count}, nil
	}

	variant, ok := cand.Largest()
	if !ok {
		return models.Decision{}, errors.New("candidate has no variants")
	}

	exists, err := s.photos.Exists(ctx, variant.FileUniqueID)
	if err != nil {
		return models.Decision{}, fmt.Errorf("dedup lookup: %w", err)
	}
	if exists {
		return models.Decision{Outcome: models.OutcomeDuplicatePhoto, Count: count}, nil
	}

	return models.Decision{Outcome: models.OutcomeAccepted, Variant: variant, Count: count}, nil
}

// Process runs one full intake. Every outcome is typed; storage and fetch
// problems are logged for operators and reported as retryable failures. The
// blob is uploaded before the commit and removed again if the commit loses,
// so a failed intake leaves no partial state.
func (s *IntakeService) Process(ctx context.Context, userID int64, cand models.IntakeCandidate) models.IntakeResult {
	log := s.logger.With(
		zap.String("intake_id", uuid.NewString()),
		zap.Int64("user_id", userID),
	)

	decision, err := s.Evaluate(ctx, userID, cand)
	if err != nil {
		log.Error("intake evaluation failed", zap.Error(err))
		return models.IntakeResult{Outcome: models.OutcomeUnavailable, Cap: s.photoCap}
	}
	if decision.Outcome != models.OutcomeAccepted {
		return models.IntakeResult{Outcome: decision.Outcome, Count: decision.Count, Cap: s.photoCap}
	}

	raw, err := s.fetcher.FetchBytes(ctx, decision.Variant.FileID)
	if err != nil {
		log.Warn("photo fetch failed",
			zap.String("file_id", decision.Variant.FileID),
			zap.Error(err))
		return models.IntakeResult{Outcome: models.OutcomeFetchFailed, Count: decision.Count, Cap: s.photoCap}
	}

	normalized, err := s.norm.Normalize(raw)
	if err != nil {
		log.Warn("photo normalization failed",
			zap.String("file_unique_id", decision.Variant.FileUniqueID),
			zap.Error(err))
		return models.IntakeResult{Outcome: models.OutcomeNormalizationFailed, Count: decision.Count, Cap: s.photoCap}
	}

	key := storageKey(decision.Variant.FileUniqueID)
	if err := s.blobs.Upload(ctx, key, "image/jpeg", normalized.Data); err != nil {
		log.Error("blob upload failed", zap.String("storage_key", key), zap.Error(err))
		return models.IntakeResult{Outcome: models.OutcomeUnavailable, Count: decision.Count, Cap: s.photoCap}
	}

	photo := &models.UserPhoto{
		UserID:       userID,
		FileID:       decision.Variant.FileID,
		FileUniqueID: decision.Variant.FileUniqueID,
		StorageKey:   key,
		Width:        normalized.Width,
		Height:       normalized.Height,
		FileSize:     int64(len(normalized.Data)),
	}

	if err := s.photos.Create(ctx, photo, s.photoCap); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicatePhoto):
			// Lost a same-key race. The winner's row references this exact
			// key and content, so the blob stays.
			return models.IntakeResult{Outcome: models.OutcomeDuplicatePhoto, Count: decision.Count, Cap: s.photoCap}
		case errors.Is(err, repository.ErrQuotaExceeded):
			s.cleanupBlob(ctx, log, key)
			return models.IntakeResult{Outcome: models.OutcomeQuotaExceeded, Count: int64(s.photoCap), Cap: s.photoCap}
		default:
			log.Error("photo commit failed", zap.Error(err))
			s.cleanupBlob(ctx, log, key)
			return models.IntakeResult{Outcome: models.OutcomeUnavailable, Count: decision.Count, Cap: s.photoCap}
		}
	}

	count := decision.Count + 1
	log.Info("photo accepted",
		zap.String("file_unique_id", decision.Variant.FileUniqueID),
		zap.Int64("count", count))
	return models.IntakeResult{Outcome: models.OutcomeAccepted, Count: count, Cap: s.photoCap}
}

// cleanupBlob removes a blob whose commit failed so no partial state
// survives the intake.
func (s *IntakeService) cleanupBlob(ctx context.Context, log *zap.Logger, key string) {
	if err := s.blobs.Delete(ctx, key); err != nil {
		log.Warn("orphan blob cleanup failed", zap.String("storage_key", key), zap.Error(err))
	}
}

func storageKey(fileUniqueID string) string {
	return fmt.Sprintf("user_photos/%s.jpg", fileUniqueID)
}
