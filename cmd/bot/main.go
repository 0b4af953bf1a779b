package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ai-photo-bot/internal/config"
	"ai-photo-bot/internal/handler"
	"ai-photo-bot/internal/repository"
	"ai-photo-bot/internal/service"
	"ai-photo-bot/pkg/database"
	"ai-photo-bot/pkg/normalizer"
	"ai-photo-bot/pkg/storage"
	"ai-photo-bot/pkg/telegram"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("cannot initialize zap logger: %v", err)
	}
	defer logger.Sync()

	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file, using process environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config error", zap.Error(err))
	}

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("database error", zap.Error(err))
	}

	// Repositories
	photoRepo := repository.NewPhotoRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)

	// Blob storage for normalized photos
	blobStorage, err := storage.NewS3Storage(cfg.S3)
	if err != nil {
		logger.Fatal("storage error", zap.Error(err))
	}

	// Telegram client
	tgClient, err := telegram.NewClient(cfg.TelegramToken)
	if err != nil {
		logger.Fatal("telegram error", zap.Error(err))
	}

	// Intake pipeline
	intakeService := service.NewIntakeService(
		photoRepo,
		paymentRepo,
		tgClient,
		blobStorage,
		normalizer.New(),
		cfg.PhotoCap,
		logger,
	)

	// Handlers
	botHandler := handler.NewBotHandler(tgClient.API(), intakeService, paymentRepo, logger)
	opsHandler := handler.NewOpsHandler(photoRepo, paymentRepo, cfg.PhotoCap)

	// Operator HTTP surface
	app := fiber.New()
	app.Use(fiberlogger.New())
	app.Get("/health", opsHandler.Health)

	api := app.Group("/api")
	api.Get("/users/:id/photos/count", opsHandler.GetUserPhotoCount)
	api.Get("/users/:id/photos", opsHandler.GetUserPhotos)
	api.Get("/users/:id/payment", opsHandler.GetUserPayment)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return botHandler.Run(ctx)
	})
	g.Go(func() error {
		return app.Listen(":" + cfg.HTTPPort)
	})
	g.Go(func() error {
		<-ctx.Done()
		return app.Shutdown()
	})

	logger.Info("bot is running", zap.String("http_port", cfg.HTTPPort), zap.Int("photo_cap", cfg.PhotoCap))

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("service stopped", zap.Error(err))
	}
	logger.Info("shutdown complete")
}
