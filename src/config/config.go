package config

import (
	"log"
	"os"
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

	// Security settings
	JWTSecret         string
	AccessTokenExpiry time.Duration

	// Plaid settings
	PlaidClientID   string
	PlaidSecret     string
	PlaidEnv        string
	PlaidClientName string

	// Sync settings
	SyncTimeout time.Duration

	// Categorization settings
	CategoryRulesPath string

	// Frontend URL for reference (e.g., CORS)
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

	// --- Secrets ---
	jwtSecret := getRequiredEnv("JWT_SECRET")
	plaidClientID := getRequiredEnv("PLAID_CLIENT_ID")
	plaidSecret := getRequiredEnv("PLAID_SECRET")

	plaidEnv := getEnv("PLAID_ENV", "sandbox")
	switch plaidEnv {
	case "sandbox", "development", "production":
	default:
		log.Printf("WARNING: Unknown PLAID_ENV '%s'. Falling back to sandbox.", plaidEnv)
		plaidEnv = "sandbox"
	}

	// --- Populate the Global Config Struct ---
	Cfg = &AppConfig{
		// Core
		Port:         getEnv("PORT", "8080"),
		DatabasePath: getEnv("DATABASE_PATH", "./expensio.db"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),

		// Security
		JWTSecret:         jwtSecret,
		AccessTokenExpiry: getEnvAsDuration("ACCESS_TOKEN_EXPIRY", 60*time.Minute),

		// Plaid
		PlaidClientID:   plaidClientID,
		PlaidSecret:     plaidSecret,
		PlaidEnv:        plaidEnv,
		PlaidClientName: getEnv("PLAID_CLIENT_NAME", "Expensio"),

		// Sync
		SyncTimeout: getEnvAsDuration("SYNC_TIMEOUT", 2*time.Minute),

		// Categorization
		CategoryRulesPath: getEnv("CATEGORY_RULES_PATH", ""),

		// URLs
		FrontendBaseURL: getEnv("APP_BASE_URL", "http://localhost:3000"),
	}

	log.Printf("Configuration loaded: Port=%s, LogLevel=%s, DBPath=%s, PlaidEnv=%s",
		Cfg.Port, Cfg.LogLevel, Cfg.DatabasePath, Cfg.PlaidEnv)
}

// getEnv retrieves an environment variable or returns a fallback value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Printf("Environment variable %s not set, using default: %s", key, fallback)
	return fallback
}

// getRequiredEnv retrieves an environment variable or terminates the application if not set.
func getRequiredEnv(key string) string {
	value, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(value) == "" {
		log.Fatalf("FATAL: Required environment variable %s is not set or is empty. Application cannot start securely.", key)
	}
	return value
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
