package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	// Server
	Env  string
	Port string

	// Location used for calendar windows (month, week, year boundaries).
	Location *time.Location

	// JWT
	JWTSecret        string
	JWTExpirationDur time.Duration

	// CORS
	CORSAllowedOrigins []string

	// Error reporting; empty disables Sentry.
	SentryDSN string

	// Pipeline endpoints (rollup rebuilds); empty disables them.
	PipelineAPIKey string

	// Maximum number of concurrent queries when assembling the financial overview.
	ReportConcurrency int
}

var appConfig *Config

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if not already loaded
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	config := &Config{
		Env:            getEnv("ENV", "development"),
		Port:           getEnv("PORT", "8080"),
		JWTSecret:      getEnv("JWT_SECRET", "fallback-secret-key-for-dev-only"),
		SentryDSN:      getEnv("SENTRY_DSN", ""),
		PipelineAPIKey: getEnv("PIPELINE_API_KEY", ""),
	}

	expStr := getEnv("JWT_EXPIRES_IN", "24h")
	expDur, err := time.ParseDuration(expStr)
	if err != nil {
		log.Printf("Warning: invalid JWT_EXPIRES_IN value '%s', falling back to 24h\n", expStr)
		expDur = 24 * time.Hour
	}
	config.JWTExpirationDur = expDur

	config.Location = loadLocation(getEnv("TZ", "Local"))
	config.CORSAllowedOrigins = splitList(getEnv("CORS_ALLOWED_ORIGINS", "*"))

	concurrency, err := strconv.Atoi(getEnv("REPORT_CONCURRENCY", "4"))
	if err != nil || concurrency < 1 {
		log.Printf("Warning: invalid REPORT_CONCURRENCY value, falling back to 4\n")
		concurrency = 4
	}
	config.ReportConcurrency = concurrency

	appConfig = config
	return config, nil
}

// Get returns the application configuration
func Get() *Config {
	if appConfig == nil {
		var err error
		appConfig, err = Load()
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
	}
	return appConfig
}

// loadLocation resolves a TZ name, falling back to the system location.
func loadLocation(name string) *time.Location {
	if name == "" || name == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Printf("Warning: unknown TZ '%s', falling back to system location\n", name)
		return time.Local
	}
	return loc
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
