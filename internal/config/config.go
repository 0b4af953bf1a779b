package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
)

type S3Config struct {
	Endpoint        string `validate:"required"`
	Region          string
	Bucket          string `validate:"required"`
	AccessKeyID     string `validate:"required"`
	SecretAccessKey string `validate:"required"`
}

type Config struct {
	TelegramToken string `validate:"required"`
	DatabaseURL   string `validate:"required"`
	HTTPPort      string `validate:"required"`
	// PhotoCap is the per-user accepted photo limit.
	PhotoCap int `validate:"min=1"`
	S3       S3Config
}

// Load reads the configuration from the process environment and validates
// it. Missing required values are reported together by the validator.
func Load() (*Config, error) {
	cfg := &Config{
		TelegramToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		HTTPPort:      os.Getenv("PORT"),
		PhotoCap:      10,
	}

	if cfg.HTTPPort == "" {
		cfg.HTTPPort = "8080"
	}

	if v := os.Getenv("PHOTO_CAP"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid PHOTO_CAP %q: %w", v, err)
		}
		cfg.PhotoCap = n
	}

	cfg.S3.Endpoint = os.Getenv("S3_ENDPOINT")
	cfg.S3.Region = os.Getenv("S3_REGION")
	if cfg.S3.Region == "" {
		cfg.S3.Region = "auto"
	}
	cfg.S3.Bucket = os.Getenv("S3_BUCKET")
	cfg.S3.AccessKeyID = os.Getenv("S3_ACCESS_KEY_ID")
	cfg.S3.SecretAccessKey = os.Getenv("S3_SECRET_ACCESS_KEY")

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}
