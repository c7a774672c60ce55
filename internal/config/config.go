package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	DBDSN       string
	LogLevel    string
	LogFile     string
	MetricsPort string
}

// Load reads configuration from the environment, falling back to an
// optional .env file for local development.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		Port:        getEnvOrDefault("PORT", "8080"),
		DBDSN:       getEnvOrDefault("DB_DSN", "groupcart.db"),
		LogLevel:    getEnvOrDefault("LOG_LEVEL", "info"),
		LogFile:     os.Getenv("LOG_FILE"),
		MetricsPort: getEnvOrDefault("METRICS_PORT", "9090"),
	}
	log.Printf("[config] PORT=%s DB_DSN=%s LOG_LEVEL=%s METRICS_PORT=%s", cfg.Port, cfg.DBDSN, cfg.LogLevel, cfg.MetricsPort)
	return cfg
}

// getEnvOrDefault returns environment variable value or default if not set
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
