package handler

import (
	"context"
	"fmt"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"ai-photo-bot/internal/models"
	"ai-photo-bot/internal/service"
)

// BotHandler routes Telegram updates into the intake pipeline and renders
// the typed outcomes into user-facing text. The bot instance is constructed
// in main and injected here; there is no package-level bot state.
type BotHandler struct {
	bot      *tgbotapi.BotAPI
	intake   *service.IntakeService
	payments service.PaymentReader
	logger   *zap.Logger

	// Quota rejections repeat identically, but the user is only nagged once
	// per process lifetime per chat.
	mu       sync.Mutex
	notified map[int64]bool
}

func NewBotHandler(bot *tgbotapi.BotAPI, intake *service.IntakeService, payments service.PaymentReader, logger *zap.Logger) *BotHandler {
	return &BotHandler{
		bot:      bot,
		intake:   intake,
		payments: payments,
		logger:   logger,
		notified: make(map[int64]bool),
	}
}

// Run polls for updates until the context is cancelled. Each update is
// handled on its own goroutine; ordering between users is not guaranteed and
// the store enforces the per-user invariants under concurrency.
func (h *BotHandler) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := h.bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			h.bot.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			go h.handleUpdate(ctx, update)
		}
	}
}

func (h *BotHandler) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil {
		return
	}

	switch {
	case msg.IsCommand() && msg.Command() == "start":
		h.reply(msg.Chat.ID, "Welcome! Send me your selfies and I will prepare them for your AI portraits.")
	case len(msg.Photo) > 0:
		h.handlePhoto(ctx, msg)
	default:
		h.handleFallback(ctx, msg)
	}
}

func (h *BotHandler) handlePhoto(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	result := h.intake.Process(ctx, chatID, candidateFromSizes(msg.Photo))

	if result.Outcome == models.OutcomeQuotaExceeded && !h.markNotified(chatID) {
		// Already told this chat about the cap; stay silent.
		return
	}

	h.reply(chatID, renderResult(result))
}

// handleFallback answers non-photo messages: users without any payment
// record get the welcome pitch, everyone else a short prompt.
func (h *BotHandler) handleFallback(ctx context.Context, msg *tgbotapi.Message) {
	status, err := h.payments.GetStatus(ctx, msg.Chat.ID)
	if err != nil {
		h.logger.Error("payment lookup failed", zap.Int64("chat_id", msg.Chat.ID), zap.Error(err))
		return
	}

	if status == "" {
		h.reply(msg.Chat.ID, "Welcome! Send me your selfies and I will prepare them for your AI portraits.")
		return
	}
	h.reply(msg.Chat.ID, "Hello! How can I help you?")
}

// markNotified records the quota nag for a chat and reports whether this
// call was the first one.
func (h *BotHandler) markNotified(chatID int64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.notified[chatID] {
		return false
	}
	h.notified[chatID] = true
	return true
}

func (h *BotHandler) reply(chatID int64, text string) {
	if _, err := h.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		h.logger.Warn("failed to send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// candidateFromSizes maps the platform's resolution variants, preserving
// their reported order for the max-by-size scan.
func candidateFromSizes(sizes []tgbotapi.PhotoSize) models.IntakeCandidate {
	variants := make([]models.PhotoVariant, 0, len(sizes))
	for _, p := range sizes {
		variants = append(variants, models.PhotoVariant{
			FileID:       p.FileID,
			FileUniqueID: p.FileUniqueID,
			Width:        p.Width,
			Height:       p.Height,
			FileSize:     int64(p.FileSize),
		})
	}
	return models.IntakeCandidate{Variants: variants}
}

func renderResult(result models.IntakeResult) string {
	switch result.Outcome {
	case models.OutcomeAccepted:
		return fmt.Sprintf("✅ Photo accepted! Uploaded: %d/%d", result.Count, result.Cap)
	case models.OutcomePaymentRequired:
		return "Please pay before uploading photos."
	case models.OutcomeQuotaExceeded:
		return fmt.Sprintf("You have already uploaded the maximum of %d photos.", result.Cap)
	case models.OutcomeDuplicatePhoto:
		return "⛔ This photo is already uploaded, try another!"
	case models.OutcomeNormalizationFailed:
		return "❌ Error processing photo! Please send a different picture."
	case models.OutcomeFetchFailed:
		return "❌ Could not download your photo, please try sending it again."
	default:
		return "Something went wrong, please try again."
	}
}
