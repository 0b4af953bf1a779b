package handler

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"ai-photo-bot/internal/models"
	"ai-photo-bot/internal/repository"
)

// OpsHandler serves the operator-facing HTTP surface: health and read-only
// intake progress per user.
type OpsHandler struct {
	photos   *repository.PhotoRepository
	payments *repository.PaymentRepository
	photoCap int
}

func NewOpsHandler(photos *repository.PhotoRepository, payments *repository.PaymentRepository, photoCap int) *OpsHandler {
	return &OpsHandler{
		photos:   photos,
		payments: payments,
		photoCap: photoCap,
	}
}

func (h *OpsHandler) Health(c *fiber.Ctx) error {
	return c.JSON(models.SuccessResponse(nil, "ok"))
}

func (h *OpsHandler) GetUserPhotoCount(c *fiber.Ctx) error {
	userID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse("Invalid user ID"))
	}

	count, err := h.photos.Count(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse(err.Error()))
	}

	return c.JSON(models.SuccessResponse(fiber.Map{
		"user_id": userID,
		"count":   count,
		"cap":     h.photoCap,
	}, "Photo count retrieved successfully"))
}

func (h *OpsHandler) GetUserPhotos(c *fiber.Ctx) error {
	userID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse("Invalid user ID"))
	}

	photos, err := h.photos.GetByUserID(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse(err.Error()))
	}

	return c.JSON(models.SuccessResponse(photos, "Photos retrieved successfully"))
}

func (h *OpsHandler) GetUserPayment(c *fiber.Ctx) error {
	userID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse("Invalid user ID"))
	}

	payment, err := h.payments.GetByTelegramUserID(c.Context(), userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse("Payment not found"))
		}
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse(err.Error()))
	}

	return c.JSON(models.SuccessResponse(payment, "Payment retrieved successfully"))
}
