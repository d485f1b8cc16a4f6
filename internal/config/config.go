package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port string
	Env  string

	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// Session cookie signing
	SessionSecret string

	// Gemini AI
	GeminiAPIKey         string
	GeminiConcurrentReqs int

	// Google OAuth / Calendar
	GoogleClientID     string
	GoogleClientSecret string
	OAuthRedirectURL   string
	CalendarTimezone   string

	// Caching
	ExtractionCacheTTLHours int

	// Frontend
	FrontendURL string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:                    getEnvOrDefault("PORT", "8080"),
		Env:                     getEnvOrDefault("ENV", "development"),
		DatabaseURL:             mustGetEnv("DATABASE_URL"),
		RedisURL:                mustGetEnv("REDIS_URL"),
		SessionSecret:           mustGetEnv("SESSION_SECRET"),
		GeminiAPIKey:            mustGetEnv("GEMINI_API_KEY"),
		GeminiConcurrentReqs:    getEnvAsIntOrDefault("GEMINI_CONCURRENT_REQUESTS", 5),
		GoogleClientID:          mustGetEnv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret:      mustGetEnv("GOOGLE_CLIENT_SECRET"),
		OAuthRedirectURL:        getEnvOrDefault("OAUTH_REDIRECT_URL", "http://localhost:8080/oauth2callback"),
		CalendarTimezone:        getEnvOrDefault("CALENDAR_TIMEZONE", "America/New_York"),
		ExtractionCacheTTLHours: getEnvAsIntOrDefault("EXTRACTION_CACHE_TTL_HOURS", 24),
		FrontendURL:             getEnvOrDefault("FRONTEND_URL", "http://localhost:5173"),
	}

	return cfg
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}
