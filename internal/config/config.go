package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Port           string
	MongoURI       string
	JWTSecret      string
	AllowedOrigins string
	SourcesFile    string

	// Pagination and search tuning
	PageSize         int
	SearchMinLength  int
	SearchMaxResults int

	// Cache behavior
	PageCacheTTL   time.Duration
	DetailCacheTTL time.Duration

	// Store call discipline
	StoreTimeout  time.Duration
	SearchTimeout time.Duration
	FetchRetries  int // retries after the first attempt
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "3001"),
		MongoURI:       getEnv("MONGODB_URI", ""),
		JWTSecret:      getEnv("JWT_SECRET", ""),
		AllowedOrigins: getEnv("ALLOWED_ORIGINS", ""),
		SourcesFile:    getEnv("SOURCES_FILE", "./sources.yaml"),

		PageSize:         getIntEnv("PAGE_SIZE", 6),
		SearchMinLength:  getIntEnv("SEARCH_MIN_LENGTH", 2),
		SearchMaxResults: getIntEnv("SEARCH_MAX_RESULTS", 5),

		PageCacheTTL:   getDurationEnv("PAGE_CACHE_TTL", 10*time.Minute),
		DetailCacheTTL: getDurationEnv("DETAIL_CACHE_TTL", 30*time.Minute),

		StoreTimeout:  getDurationEnv("STORE_TIMEOUT", 10*time.Second),
		SearchTimeout: getDurationEnv("SEARCH_TIMEOUT", 5*time.Second),
		FetchRetries:  getIntEnv("FETCH_RETRIES", 2),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		parsed, err := time.ParseDuration(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}
