// Package config loads settings from environment variables with a .env fallback.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration values shared by the commands.
type Config struct {
	// Solana RPC
	RPCEndpoint    string
	WSEndpoint     string
	RPCMaxRetries  int
	RPCRetryDelay  time.Duration
	RPCTimeout     time.Duration
	RPCConcurrency int

	// Storage (empty DSN selects the in-memory store)
	PostgresDSN    string
	ClickhouseDSN  string
	MetadataMaxAge time.Duration // cached token metadata older than this is refetched

	// HTTP API
	HTTPAddr          string
	RequestTimeout    time.Duration
	RateLimitAttempts int
	RateLimitDelay    time.Duration

	// Heuristics
	TraceSignatureLimit    int
	ClusterSignatureLimit  int
	ExchangeSignatureLimit int
	GhostSignatureLimit    int
	GhostDormancy          time.Duration
	MemecoinKeywords       []string // empty selects the built-in list
	ExchangeWallets        []string // empty selects the built-in list

	// Kafka sink
	KafkaBrokers []string
	KafkaTopic   string
}

// Load reads configuration from environment variables with fallback to .env file.
// Priority order: Environment variables > .env file > hardcoded defaults
func Load() (*Config, error) {
	return LoadFiles()
}

// LoadFiles is Load with explicit dotenv files. Missing files are ignored.
func LoadFiles(files ...string) (*Config, error) {
	// godotenv never overrides variables already set in the environment.
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	cfg := &Config{
		RPCEndpoint:    getEnv("SOLANA_RPC_ENDPOINT", "https://api.mainnet-beta.solana.com"),
		WSEndpoint:     getEnv("SOLANA_WS_ENDPOINT", "wss://api.mainnet-beta.solana.com"),
		RPCMaxRetries:  getEnvInt("RPC_MAX_RETRIES", 3),
		RPCRetryDelay:  time.Duration(getEnvInt("RPC_RETRY_DELAY_MS", 1000)) * time.Millisecond,
		RPCTimeout:     time.Duration(getEnvInt("RPC_TIMEOUT_SECONDS", 30)) * time.Second,
		RPCConcurrency: getEnvInt("RPC_CONCURRENCY", 8),

		PostgresDSN:    getEnv("POSTGRES_DSN", ""),
		ClickhouseDSN:  getEnv("CLICKHOUSE_DSN", ""),
		MetadataMaxAge: time.Duration(getEnvInt("METADATA_TTL_HOURS", 24)) * time.Hour,

		HTTPAddr:          getEnv("HTTP_ADDR", ":3000"),
		RequestTimeout:    time.Duration(getEnvInt("REQUEST_TIMEOUT_SECONDS", 60)) * time.Second,
		RateLimitAttempts: getEnvInt("RATE_LIMIT_ATTEMPTS", 5),
		RateLimitDelay:    time.Duration(getEnvInt("RATE_LIMIT_DELAY_MS", 1200)) * time.Millisecond,

		TraceSignatureLimit:    getEnvInt("TRACE_SIGNATURE_LIMIT", 10),
		ClusterSignatureLimit:  getEnvInt("CLUSTER_SIGNATURE_LIMIT", 100),
		ExchangeSignatureLimit: getEnvInt("EXCHANGE_SIGNATURE_LIMIT", 50),
		GhostSignatureLimit:    getEnvInt("GHOST_SIGNATURE_LIMIT", 1000),
		GhostDormancy:          time.Duration(getEnvInt("GHOST_DORMANCY_DAYS", 7)) * 24 * time.Hour,
		MemecoinKeywords:       getEnvList("MEMECOIN_KEYWORDS"),
		ExchangeWallets:        getEnvList("EXCHANGE_WALLETS"),

		KafkaBrokers: getEnvList("KAFKA_BROKERS"),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "wallet-transfers"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set and valid.
func (c *Config) Validate() error {
	if c.RPCEndpoint == "" {
		return fmt.Errorf("SOLANA_RPC_ENDPOINT is required")
	}

	if c.RPCMaxRetries < 0 {
		return fmt.Errorf("RPC_MAX_RETRIES must not be negative")
	}

	if c.RPCConcurrency < 1 {
		return fmt.Errorf("RPC_CONCURRENCY must be at least 1")
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT_SECONDS must be positive")
	}

	if c.RateLimitAttempts < 1 {
		return fmt.Errorf("RATE_LIMIT_ATTEMPTS must be at least 1")
	}

	for key, v := range map[string]int{
		"TRACE_SIGNATURE_LIMIT":    c.TraceSignatureLimit,
		"CLUSTER_SIGNATURE_LIMIT":  c.ClusterSignatureLimit,
		"EXCHANGE_SIGNATURE_LIMIT": c.ExchangeSignatureLimit,
		"GHOST_SIGNATURE_LIMIT":    c.GhostSignatureLimit,
	} {
		if v < 1 {
			return fmt.Errorf("%s must be at least 1", key)
		}
	}

	if c.MetadataMaxAge < 0 {
		return fmt.Errorf("METADATA_TTL_HOURS must not be negative")
	}

	if c.GhostDormancy <= 0 {
		return fmt.Errorf("GHOST_DORMANCY_DAYS must be positive")
	}

	return nil
}

// UseMemory reports whether no database DSN is configured.
func (c *Config) UseMemory() bool {
	return c.PostgresDSN == "" && c.ClickhouseDSN == ""
}

// MaskedRPCEndpoint returns the RPC endpoint with any API key query hidden for logging.
func (c *Config) MaskedRPCEndpoint() string {
	base, query, ok := strings.Cut(c.RPCEndpoint, "?")
	if !ok {
		return base
	}
	return base + "?" + maskSecret(query)
}

// maskSecret hides all but the first and last 4 characters of a secret.
func maskSecret(s string) string {
	if len(s) <= 8 {
		if len(s) == 0 {
			return "(not set)"
		}
		return "****"
	}
	return s[:4] + "****" + s[len(s)-4:]
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an environment variable as an integer or returns a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvList splits a comma-separated variable, dropping blank items.
func getEnvList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
