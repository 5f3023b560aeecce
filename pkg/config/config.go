package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// SSOT: every environment variable is read here and nowhere else
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// External APIs
	AlphaVantage AlphaVantageConfig
	Reasoning    ReasoningConfig
	Scrape       ScrapeConfig

	// Advisory pipeline
	Advisor AdvisorConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// AlphaVantageConfig holds market-data provider configuration
type AlphaVantageConfig struct {
	APIKey  string
	BaseURL string

	// The free tier allows 5 requests per minute
	RequestsPerMinute int
	Timeout           time.Duration
}

// ReasoningConfig holds the reasoning-model endpoint configuration
// (OpenAI-compatible chat completions API)
type ReasoningConfig struct {
	Endpoint  string
	APIKey    string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// ScrapeConfig holds the secondary dividend-history source configuration
type ScrapeConfig struct {
	BaseURL string
	Enabled bool
}

// AdvisorConfig holds pipeline policy knobs
type AdvisorConfig struct {
	MaxHoldingsCeiling  int     // hard cap on constraints.maxHoldings
	MaxPromptBytes      int     // reject larger prompts before invocation
	WeightTolerance     float64 // |sum(weights) - 1| tolerance
	PersistRetries      int     // local retries for persistence failures only
	MarketLookupTimeout time.Duration
}

// Load reads configuration from environment variables
// SSOT: this is the only function that calls os.Getenv()
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8091"),
		Env:  getEnv("ENV", "development"),

		// Database
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", true),
		},

		// External APIs
		AlphaVantage: AlphaVantageConfig{
			APIKey:            getEnv("ALPHA_VANTAGE_API_KEY", ""),
			BaseURL:           getEnv("ALPHA_VANTAGE_BASE_URL", "https://www.alphavantage.co"),
			RequestsPerMinute: getEnvAsInt("ALPHA_VANTAGE_RPM", 5),
			Timeout:           getEnvAsDuration("ALPHA_VANTAGE_TIMEOUT", "5s"),
		},

		Reasoning: ReasoningConfig{
			Endpoint:  getEnv("REASONING_ENDPOINT", "https://api.openai.com/v1"),
			APIKey:    getEnv("REASONING_API_KEY", ""),
			Model:     getEnv("REASONING_MODEL", "gpt-4o-mini"),
			MaxTokens: getEnvAsInt("REASONING_MAX_TOKENS", 2000),
			Timeout:   getEnvAsDuration("REASONING_TIMEOUT", "45s"),
		},

		Scrape: ScrapeConfig{
			BaseURL: getEnv("DIVIDEND_SCRAPE_BASE_URL", "https://stockanalysis.com"),
			Enabled: getEnvAsBool("DIVIDEND_SCRAPE_ENABLED", true),
		},

		// Advisory pipeline
		Advisor: AdvisorConfig{
			MaxHoldingsCeiling:  getEnvAsInt("ADVISOR_MAX_HOLDINGS_CEILING", 100),
			MaxPromptBytes:      getEnvAsInt("ADVISOR_MAX_PROMPT_BYTES", 65536),
			WeightTolerance:     getEnvAsFloat("ADVISOR_WEIGHT_TOLERANCE", 1e-3),
			PersistRetries:      getEnvAsInt("ADVISOR_PERSIST_RETRIES", 3),
			MarketLookupTimeout: getEnvAsDuration("ADVISOR_MARKET_LOOKUP_TIMEOUT", "3s"),
		},

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "debug"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Advisor.MaxHoldingsCeiling <= 0 {
		return fmt.Errorf("ADVISOR_MAX_HOLDINGS_CEILING must be positive")
	}

	if c.Advisor.WeightTolerance <= 0 {
		return fmt.Errorf("ADVISOR_WEIGHT_TOLERANCE must be positive")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env", // Current directory
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
			filepath.Join(exeDir, "..", "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
