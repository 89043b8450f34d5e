package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/hmcavoy/mutiny-chess/internal/services"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    slog.Level

	// Storage backend: "redis" or "memory".
	StoreBackend string
	RedisURL     string

	// Generative backend. An empty API key disables remote generation;
	// every response then comes from the canned fallback corpus.
	GeminiAPIKey string
	GeminiModel  string

	// Generative-call ceilings. Zero means the built-in default.
	MaxCallsPerMove int
	MaxCallsPerGame int
	DailyGameLimit  int
}

func Load() *Config {
	return &Config{
		Port:            getEnv("PORT", "8080"),
		Environment:     getEnv("ENVIRONMENT", "development"),
		LogLevel:        parseLogLevel(getEnv("LOG_LEVEL", "info")),
		StoreBackend:    strings.ToLower(getEnv("STORE_BACKEND", "redis")),
		RedisURL:        getEnv("REDIS_URL", "localhost:6379"),
		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		GeminiModel:     getEnv("GEMINI_MODEL", services.DefaultGeminiModel),
		MaxCallsPerMove: getEnvInt("AI_MAX_CALLS_PER_MOVE", 0),
		MaxCallsPerGame: getEnvInt("AI_MAX_CALLS_PER_GAME", 0),
		DailyGameLimit:  getEnvInt("AI_DAILY_GAME_LIMIT", 0),
	}
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}
