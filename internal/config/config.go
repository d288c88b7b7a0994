package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server ServerConfig
	Ledger LedgerConfig
	Log    LogConfig
	Prices PriceConfig
	CORS   CORSConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port string
	Host string
	Addr string // Combined host:port for convenience
}

// LedgerConfig holds the location of the ledger workbooks and derivation tuning
type LedgerConfig struct {
	Dir              string
	ArchiveSubdir    string
	DeriveConcurrent int // Upper bound on instruments derived in parallel by bulk reads
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level  string
	Pretty bool
}

// PriceConfig holds the price refresh schedule. An empty schedule disables refreshing.
type PriceConfig struct {
	RefreshSchedule string
}

// CORSConfig holds CORS-specific configuration
type CORSConfig struct {
	AllowedOrigins []string
}

// Load reads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	concurrency, err := getEnvInt("DERIVE_CONCURRENCY", 4)
	if err != nil {
		return nil, err
	}
	if concurrency < 1 {
		return nil, fmt.Errorf("DERIVE_CONCURRENCY must be at least 1, got %d", concurrency)
	}
	pretty, err := getEnvBool("LOG_PRETTY", false)
	if err != nil {
		return nil, err
	}

	config := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "5001"),
			Host: getEnv("SERVER_HOST", "localhost"),
		},
		Ledger: LedgerConfig{
			Dir:              getEnv("LEDGER_DIR", "./data/ledgers"),
			ArchiveSubdir:    getEnv("LEDGER_ARCHIVE_SUBDIR", "archive"),
			DeriveConcurrent: concurrency,
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Pretty: pretty,
		},
		Prices: PriceConfig{
			RefreshSchedule: os.Getenv("PRICE_REFRESH_SCHEDULE"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost")),
		},
	}
	if _, set := os.LookupEnv("PRICE_REFRESH_SCHEDULE"); !set {
		config.Prices.RefreshSchedule = "*/15 9-16 * * 1-5"
	}

	// Combine host and port
	config.Server.Addr = fmt.Sprintf("%s:%s", config.Server.Host, config.Server.Port)

	return config, nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
