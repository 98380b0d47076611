package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int
	LogLevel string

	// LLM oracles
	OracleBaseURL      string
	OracleAPIKey       string
	TranscriptionModel string
	ExtractionModel    string

	// HTTP client
	HTTPTimeout time.Duration

	// Resilience
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int

	// Cache
	CacheTTL time.Duration

	// Observability
	OTLPEndpoint string

	// Appwrite
	AppwriteEndpoint   string
	AppwriteProjectID  string
	AppwriteAPIKey     string
	AppwriteDatabaseID string

	// Appwrite collection IDs
	HistoryCollection    string
	ScheduleCollection   string
	CategoriesCollection string
	SpendingCollection   string
	MoodCollection       string
	OtherCollection      string

	// JWT / Auth
	JWTSecret string
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		OracleBaseURL:      getEnv("ORACLE_BASE_URL", "https://api.groq.com/openai"),
		OracleAPIKey:       getEnv("ORACLE_API_KEY", ""),
		TranscriptionModel: getEnv("TRANSCRIPTION_MODEL", "whisper-large-v3"),
		ExtractionModel:    getEnv("EXTRACTION_MODEL", "llama-3.3-70b-versatile"),

		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 30*time.Second),

		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		InitialBackoff: getEnvDuration("INITIAL_BACKOFF", 100*time.Millisecond),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 10),

		CacheTTL: getEnvDuration("CACHE_TTL", 5*time.Minute),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),

		AppwriteEndpoint:   getEnv("APPWRITE_ENDPOINT", "https://cloud.appwrite.io"),
		AppwriteProjectID:  getEnv("APPWRITE_PROJECT_ID", ""),
		AppwriteAPIKey:     getEnv("APPWRITE_API_KEY", ""),
		AppwriteDatabaseID: getEnv("APPWRITE_DATABASE_ID", "echoease"),

		HistoryCollection:    getEnv("COLLECTION_HISTORY", "history"),
		ScheduleCollection:   getEnv("COLLECTION_SCHEDULE", "schedule"),
		CategoriesCollection: getEnv("COLLECTION_CATEGORIES", "finance_categories"),
		SpendingCollection:   getEnv("COLLECTION_SPENDING", "spending"),
		MoodCollection:       getEnv("COLLECTION_MOOD", "mood"),
		OtherCollection:      getEnv("COLLECTION_OTHER", "other"),

		JWTSecret: getEnv("JWT_SECRET", "echoease-default-dev-secret-change-me"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
