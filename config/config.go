package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port string // default: 8080

	// Database
	PostgresDSN string

	// Cache
	RedisAddr string

	// Utility providers
	VoltraAPIKey     string
	VoltraBaseURL    string
	GridworksAPIKey  string
	GridworksBaseURL string
	HeliowattAPIKey  string
	HeliowattBaseURL string

	// Observability
	OTELExporterType     string // "stdout" or "otlp"
	OTELExporterEndpoint string // default: "localhost:4317"

	// Rate Limiting
	CostQueriesPerMinute int64 // per-account cost queries per minute, default: 60
}

func Load() (*Config, error) {
	// Load .env file if present (non-fatal if missing)
	_ = godotenv.Load()

	cfg := &Config{
		Port:                 getEnv("PORT", "8080"),
		PostgresDSN:          os.Getenv("POSTGRES_DSN"),
		RedisAddr:            os.Getenv("REDIS_ADDR"),
		VoltraAPIKey:         os.Getenv("VOLTRA_API_KEY"),
		VoltraBaseURL:        getEnv("VOLTRA_BASE_URL", "https://api.voltra.energy/v2"),
		GridworksAPIKey:      os.Getenv("GRIDWORKS_API_KEY"),
		GridworksBaseURL:     getEnv("GRIDWORKS_BASE_URL", "https://gridworks.io/api/v1"),
		HeliowattAPIKey:      os.Getenv("HELIOWATT_API_KEY"),
		HeliowattBaseURL:     getEnv("HELIOWATT_BASE_URL", "https://portal.heliowatt.com/export"),
		OTELExporterType:     getEnv("OTEL_EXPORTER_TYPE", "stdout"),
		OTELExporterEndpoint: getEnv("OTEL_EXPORTER_ENDPOINT", "localhost:4317"),
	}

	// Rate Limiting Default
	qpmStr := getEnv("COST_QUERIES_PER_MINUTE", "60")
	qpm, err := strconv.ParseInt(qpmStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid COST_QUERIES_PER_MINUTE: %w", err)
	}
	cfg.CostQueriesPerMinute = qpm

	// Validation
	if cfg.PostgresDSN == "" {
		return nil, fmt.Errorf("POSTGRES_DSN is required")
	}
	if cfg.RedisAddr == "" {
		return nil, fmt.Errorf("REDIS_ADDR is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
