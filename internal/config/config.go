package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string

	// Auth
	GhostcheckAPIKey string

	// DashScope review
	DashScopeAPIKey  string
	DashScopeModel   string
	DashScopeBaseURL string

	// Upload limits
	MaxUploadBytes int64

	// Review sizing
	MaxReviewSegments int
	MaxContextRunes   int
}

func Load() Config {
	// Local development convenience; absent .env is fine.
	_ = godotenv.Load()

	cfg := Config{
		Port: envOr("PORT", "8091"),

		GhostcheckAPIKey: os.Getenv("GHOSTCHECK_API_KEY"),

		DashScopeAPIKey:  os.Getenv("DASHSCOPE_API_KEY"),
		DashScopeModel:   envOr("DASHSCOPE_MODEL", "qwen-turbo"),
		DashScopeBaseURL: envOr("DASHSCOPE_BASE_URL", ""),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB

		MaxReviewSegments: envInt("MAX_REVIEW_SEGMENTS", 50),
		MaxContextRunes:   envInt("MAX_CONTEXT_RUNES", 30000),
	}

	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.MaxReviewSegments <= 0 {
		cfg.MaxReviewSegments = 50
	}
	if cfg.MaxContextRunes <= 0 {
		cfg.MaxContextRunes = 30000
	}

	return cfg
}

func (c Config) Validate() error {
	if c.GhostcheckAPIKey == "" {
		return fmt.Errorf("GHOSTCHECK_API_KEY is required")
	}
	// DASHSCOPE_API_KEY stays optional: compare works without it, only
	// the review step refuses.
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}
