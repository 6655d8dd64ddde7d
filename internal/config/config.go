package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds process level settings. None of them change comparison
// policy; the threshold and canonical size are fixed in the comparator.
type Config struct {
	HTTPAddr           string
	ReferenceImagePath string
	RedisAddr          string
	CacheTTL           time.Duration
	CacheSize          int
	LogLevel           string
	ShutdownTimeout    time.Duration
}

// Load reads an optional .env file and then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cacheTTL, err := time.ParseDuration(getEnv("CACHE_TTL", "5m"))
	if err != nil {
		return nil, fmt.Errorf("CACHE_TTL: %w", err)
	}
	cacheSize, err := strconv.Atoi(getEnv("CACHE_SIZE", "256"))
	if err != nil {
		return nil, fmt.Errorf("CACHE_SIZE: %w", err)
	}
	if cacheSize <= 0 {
		return nil, fmt.Errorf("CACHE_SIZE must be positive, got %d", cacheSize)
	}
	shutdownTimeout, err := time.ParseDuration(getEnv("SHUTDOWN_TIMEOUT", "15s"))
	if err != nil {
		return nil, fmt.Errorf("SHUTDOWN_TIMEOUT: %w", err)
	}

	return &Config{
		HTTPAddr:           getEnv("HTTP_ADDR", ":8080"),
		ReferenceImagePath: getEnv("REFERENCE_IMAGE_PATH", "images/reference.jpg"),
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		CacheTTL:           cacheTTL,
		CacheSize:          cacheSize,
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		ShutdownTimeout:    shutdownTimeout,
	}, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
