package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application.
// The values are loaded from environment variables.
type AppConfig struct {
	// Core settings
	Port         string
	DatabasePath string
	LogLevel     string

	// Remote Trading 212 API settings
	T212APIBaseURL string
	CSVStorageHost string
	// CSVProxyBaseURL, when set, rewrites export download links into the
	// same-origin CSV proxy instead of hitting the storage host directly.
	// This is the dev/prod switch for the proxy layer.
	CSVProxyBaseURL string
	UpstreamTimeout time.Duration

	// Export orchestration policy. The remote export endpoint is heavily
	// rate limited, so all of these are tunable rather than hard-coded.
	ExportMaxRateLimitRetries int
	ExportInitialBackoff      time.Duration
	ExportBackoffCap          time.Duration
	ExportInterRequestDelay   time.Duration
	ExportInterRequestCap     time.Duration
	ExportStaleAfter          time.Duration

	// Ingestion settings
	IngestMaxConcurrentDownloads int

	// Report cache settings
	CacheExpiration      time.Duration
	CacheCleanupInterval time.Duration
	AccountCacheTTL      time.Duration

	// Frontend URL for CORS
	FrontendBaseURL string
}

// Cfg is a global instance of the AppConfig.
var Cfg *AppConfig

// LoadConfig loads configuration from environment variables or a .env file.
// It centralizes all configuration logic for the application.
func LoadConfig() {
	// 1. Try loading from the current directory (standard behavior)
	errEnv := godotenv.Load()

	// 2. If not found, try loading from the parent directory (common when running from /backend)
	if errEnv != nil {
		errEnv = godotenv.Load("../.env")
	}

	if errEnv != nil {
		if os.IsNotExist(errEnv) {
			log.Println("Info: No .env file found in current or parent directory. Relying on OS environment variables (expected in production).")
		} else {
			log.Printf("Warning: Error loading .env file: %v. Relying on OS environment variables.", errEnv)
		}
	} else {
		log.Println(".env file loaded successfully.")
	}

	log.Println("Loading application configuration...")

	Cfg = &AppConfig{
		// Core
		Port:         getEnv("PORT", "8080"),
		DatabasePath: getEnv("DATABASE_PATH", "./trading212tracker.db"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),

		// Remote API
		T212APIBaseURL:  getEnv("T212_API_BASE_URL", "https://live.trading212.com/api/v0"),
		CSVStorageHost:  getEnv("CSV_STORAGE_HOST", "t212-history-exports-prod.s3.eu-central-1.amazonaws.com"),
		CSVProxyBaseURL: getEnv("CSV_PROXY_BASE_URL", ""),
		UpstreamTimeout: getEnvAsDuration("UPSTREAM_TIMEOUT", 30*time.Second),

		// Export policy
		ExportMaxRateLimitRetries: getEnvAsInt("EXPORT_MAX_RATE_LIMIT_RETRIES", 2),
		ExportInitialBackoff:      getEnvAsDuration("EXPORT_INITIAL_BACKOFF", 20*time.Second),
		ExportBackoffCap:          getEnvAsDuration("EXPORT_BACKOFF_CAP", 60*time.Second),
		ExportInterRequestDelay:   getEnvAsDuration("EXPORT_INTER_REQUEST_DELAY", 20*time.Second),
		ExportInterRequestCap:     getEnvAsDuration("EXPORT_INTER_REQUEST_CAP", 120*time.Second),
		ExportStaleAfter:          getEnvAsDuration("EXPORT_STALE_AFTER", 7*24*time.Hour),

		// Ingestion
		IngestMaxConcurrentDownloads: getEnvAsInt("INGEST_MAX_CONCURRENT_DOWNLOADS", 4),

		// Caches
		CacheExpiration:      getEnvAsDuration("CACHE_EXPIRATION", 15*time.Minute),
		CacheCleanupInterval: getEnvAsDuration("CACHE_CLEANUP_INTERVAL", 30*time.Minute),
		AccountCacheTTL:      getEnvAsDuration("ACCOUNT_CACHE_TTL", 60*time.Second),

		// Frontend
		FrontendBaseURL: getEnv("APP_BASE_URL", "http://localhost:3000"),
	}

	log.Printf("Configuration loaded: Port=%s, LogLevel=%s, DBPath=%s, T212APIBaseURL=%s",
		Cfg.Port, Cfg.LogLevel, Cfg.DatabasePath, Cfg.T212APIBaseURL)
}

// getEnv retrieves an environment variable or returns a fallback value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return strings.TrimSpace(value)
	}
	return fallback
}

// getEnvAsInt retrieves an environment variable as an integer or returns a fallback.
func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid integer value for %s ('%s'), using default: %d", key, valueStr, fallback)
	return fallback
}

// getEnvAsDuration retrieves an environment variable as a time.Duration or returns a fallback.
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid duration value for %s ('%s'), using default: %s", key, valueStr, fallback.String())
	return fallback
}
